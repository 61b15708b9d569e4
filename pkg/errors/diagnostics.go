package errors

import (
	"fmt"
	"sync/atomic"
)

// Severity ranks diagnostics. The zero value means "nothing to report".
type Severity int32

const (
	SeverityNone Severity = iota
	// SeverityInfo is used for diagnostics that do not change the output
	// noticeably, e.g. an underfull line that was left loose.
	SeverityInfo
	// SeverityWarning is used when the engine had to repair the input or
	// accept a visible defect (overlap, dropped beam).
	SeverityWarning
	// SeverityError is used for tunes that could not be laid out at all.
	SeverityError
)

// String returns a human-readable representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is a single recoverable irregularity found during layout.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Voice    int      `json:"voice"` // -1 when not voice specific
	Line     int      `json:"line"`  // -1 when not line specific
	Time     int      `json:"time"`  // tune time in ticks, -1 if unknown
}

// String formats the diagnostic for logs.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Code, d.Message)
}

// Where locates a diagnostic in a tune. Use [At] to build one.
type Where struct {
	Voice, Line, Time int
}

// At returns a location. Pass -1 for unknown components.
func At(voice, line, time int) Where {
	return Where{Voice: voice, Line: line, Time: time}
}

// Nowhere is the location of tune-wide diagnostics.
var Nowhere = Where{Voice: -1, Line: -1, Time: -1}

// Diagnostics accumulates the diagnostics of one tune.
// It is not safe for concurrent use; each layout pass owns its own value.
type Diagnostics struct {
	items []Diagnostic
	// Sink, if set, receives every diagnostic as it is recorded.
	Sink func(Diagnostic)
}

// Add records a diagnostic and raises the process-wide severity flag.
// On a nil receiver only the flag is raised.
func (d *Diagnostics) Add(code Code, where Where, format string, args ...any) {
	diag := Diagnostic{
		Code:     code,
		Severity: severityOf(code),
		Message:  fmt.Sprintf(format, args...),
		Voice:    where.Voice,
		Line:     where.Line,
		Time:     where.Time,
	}
	if d == nil {
		Raise(diag.Severity)
		return
	}
	d.items = append(d.items, diag)
	Raise(diag.Severity)
	if d.Sink != nil {
		d.Sink(diag)
	}
}

// Structural records a STRUCTURAL_WARNING.
func (d *Diagnostics) Structural(where Where, format string, args ...any) {
	d.Add(ErrCodeStructural, where, format, args...)
}

// Degenerate records a GEOMETRY_DEGENERATE diagnostic.
func (d *Diagnostics) Degenerate(where Where, format string, args ...any) {
	d.Add(ErrCodeDegenerate, where, format, args...)
}

// Items returns the recorded diagnostics in order.
func (d *Diagnostics) Items() []Diagnostic {
	if d == nil {
		return nil
	}
	return d.items
}

// Has reports whether a diagnostic with the given code was recorded.
func (d *Diagnostics) Has(code Code) bool {
	return d.Count(code) > 0
}

// Count returns the number of diagnostics with the given code.
func (d *Diagnostics) Count(code Code) int {
	if d == nil {
		return 0
	}
	n := 0
	for _, it := range d.items {
		if it.Code == code {
			n++
		}
	}
	return n
}

// Max returns the highest severity recorded, or SeverityNone.
func (d *Diagnostics) Max() Severity {
	max := SeverityNone
	if d == nil {
		return max
	}
	for _, it := range d.items {
		if it.Severity > max {
			max = it.Severity
		}
	}
	return max
}

func severityOf(code Code) Severity {
	switch code {
	case ErrCodeUnderflow, ErrCodeDegenerate:
		return SeverityInfo
	case ErrCodeStructural, ErrCodeOverflow:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// =============================================================================
// Process-wide severity flag
// =============================================================================

var severity atomic.Int32

// Raise lifts the process-wide severity flag to at least s.
func Raise(s Severity) {
	for {
		cur := severity.Load()
		if int32(s) <= cur {
			return
		}
		if severity.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// CurrentSeverity returns the highest severity raised since the last reset.
func CurrentSeverity() Severity {
	return Severity(severity.Load())
}

// ResetSeverity clears the process-wide flag.
// This is primarily useful for testing.
func ResetSeverity() {
	severity.Store(int32(SeverityNone))
}
