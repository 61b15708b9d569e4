package errors

import (
	"strings"
	"unicode"
)

// Input limits shared by the importers.
const (
	// MaxChordHeads is the largest chord the engine lays out. Larger chords
	// are clamped with a structural warning rather than rejected.
	MaxChordHeads = 8

	// MaxPitch bounds diatonic pitches (steps from middle C). Anything
	// beyond is far outside any ledger-line range and indicates bad input.
	MaxPitch = 63

	// MaxDuration is the longest single symbol duration accepted (a longa
	// with two dots, in ticks of 1536 per whole note).
	MaxDuration = 1536 * 4 * 2

	maxVoiceID = 64
)

// ValidateVoiceID validates a voice identifier.
//
// The rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters or whitespace
//   - Maximum length of 64 characters
func ValidateVoiceID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "voice id cannot be empty")
	}
	if len(id) > maxVoiceID {
		return New(ErrCodeInvalidInput, "voice id too long (max %d characters)", maxVoiceID)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "voice id %q contains invalid characters", id)
		}
	}
	return nil
}

// ValidateDuration checks a symbol duration in ticks.
// Zero is valid for symbols that do not take time (bars, clefs, ...).
func ValidateDuration(d int) error {
	if d < 0 {
		return New(ErrCodeInvalidInput, "negative duration %d", d)
	}
	if d > MaxDuration {
		return New(ErrCodeInvalidInput, "duration %d exceeds maximum %d", d, MaxDuration)
	}
	return nil
}

// ValidatePitch checks a diatonic pitch.
func ValidatePitch(p int) error {
	if p < -MaxPitch || p > MaxPitch {
		return New(ErrCodeInvalidInput, "pitch %d out of range [-%d, %d]", p, MaxPitch, MaxPitch)
	}
	return nil
}

// ValidatePath validates a file path given on the command line or in a
// request. It rejects empty paths, null bytes and control characters.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if len(path) > 4096 {
		return New(ErrCodeInvalidPath, "path too long (max 4096 characters)")
	}
	for _, r := range path {
		if r == 0 || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid control characters")
		}
	}
	return nil
}
