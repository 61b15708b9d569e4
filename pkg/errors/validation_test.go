package errors

import (
	"strings"
	"testing"
)

func TestValidateVoiceID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "V1", false},
		{"named", "soprano", false},
		{"with dash", "RH-1", false},

		{"empty", "", true},
		{"too long", strings.Repeat("v", 65), true},
		{"space", "right hand", true},
		{"control char", "v\x01", true},
		{"newline", "v\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVoiceID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVoiceID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDuration(t *testing.T) {
	tests := []struct {
		dur     int
		wantErr bool
	}{
		{0, false},
		{384, false},
		{1536, false},
		{MaxDuration, false},
		{MaxDuration + 1, true},
		{-1, true},
	}

	for _, tt := range tests {
		err := ValidateDuration(tt.dur)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDuration(%d) error = %v, wantErr %v", tt.dur, err, tt.wantErr)
		}
		if err != nil && !Is(err, ErrCodeInvalidInput) {
			t.Errorf("ValidateDuration(%d) code = %v, want %v", tt.dur, GetCode(err), ErrCodeInvalidInput)
		}
	}
}

func TestValidatePitch(t *testing.T) {
	tests := []struct {
		pitch   int
		wantErr bool
	}{
		{0, false},
		{-20, false},
		{MaxPitch, false},
		{-MaxPitch, false},
		{MaxPitch + 1, true},
		{-MaxPitch - 1, true},
	}

	for _, tt := range tests {
		err := ValidatePitch(tt.pitch)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePitch(%d) error = %v, wantErr %v", tt.pitch, err, tt.wantErr)
		}
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "tunes/minuet.json", false},
		{"absolute", "/tmp/out.json", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"null byte", "foo\x00bar", true},
		{"too long", strings.Repeat("a", 5000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
