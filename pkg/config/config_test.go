package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	errs "github.com/matzehuels/engraver/pkg/errors"
)

func TestDefaultIsClamped(t *testing.T) {
	d := Default()
	c := d
	c.Clamp()
	if c != d {
		t.Errorf("Default() changes under Clamp:\n got %+v\nwant %+v", c, d)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, l Layout)
	}{
		{
			name:  "Empty",
			input: "",
			check: func(t *testing.T, l Layout) {
				if l != Default() {
					t.Error("empty document should give the defaults")
				}
			},
		},
		{
			name:  "Overrides",
			input: "width = 200\nmax_shrink = 0.5\n[beam]\nmax_slope = 0.3\n",
			check: func(t *testing.T, l Layout) {
				if l.Width != 200 || l.MaxShrink != 0.5 || l.Beam.MaxSlope != 0.3 {
					t.Errorf("got width=%v shrink=%v slope=%v", l.Width, l.MaxShrink, l.Beam.MaxSlope)
				}
				if l.Spacing.QuarterSpace != Default().Spacing.QuarterSpace {
					t.Error("unset fields should keep their default")
				}
			},
		},
		{
			name:  "Clamped",
			input: "max_shrink = 4\nfloat_hysteresis = -3\n[slur]\nmin_height = 20\nmax_height = 5\n",
			check: func(t *testing.T, l Layout) {
				if l.MaxShrink != 1 {
					t.Errorf("MaxShrink = %v, want 1", l.MaxShrink)
				}
				if l.FloatHysteresis != 0 {
					t.Errorf("FloatHysteresis = %v, want 0", l.FloatHysteresis)
				}
				if l.Slur.MaxHeight != 20 {
					t.Errorf("MaxHeight = %v, want 20", l.Slur.MaxHeight)
				}
			},
		},
		{
			name:    "UnknownKey",
			input:   "widht = 300\n",
			wantErr: true,
		},
		{
			name:    "Malformed",
			input:   "width = \n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Decode(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errs.Is(err, errs.ErrCodeInvalidConfig) {
					t.Errorf("code = %v, want %v", errs.GetCode(err), errs.ErrCodeInvalidConfig)
				}
				return
			}
			if tt.check != nil {
				tt.check(t, l)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	l := Default()
	l.Width = 321
	l.StretchLast = true
	l.Beam.MinStemLen[2] = 18

	var buf bytes.Buffer
	if err := l.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != l {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, l)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.toml")
	if err := os.WriteFile(path, []byte("width = 300\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if l.Width != 300 {
		t.Errorf("Width = %v, want 300", l.Width)
	}

	_, err = Load(filepath.Join(dir, "missing.toml"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("missing file code = %v, want %v", errs.GetCode(err), errs.ErrCodeFileNotFound)
	}
}

func TestStemMin(t *testing.T) {
	b := Default().Beam
	if b.StemMin(-1) != b.MinStemLen[0] || b.StemMin(9) != b.MinStemLen[4] {
		t.Error("StemMin should clamp the flag count")
	}
	if b.StemMin(2) != 17 {
		t.Errorf("StemMin(2) = %v, want 17", b.StemMin(2))
	}
}
