package sheet

import (
	"encoding/json"
	"fmt"
	"os"
)

// =============================================================================
// Sheet Serialization API
// =============================================================================

// Marshal serializes a Sheet to pretty-printed JSON bytes.
func Marshal(s Sheet) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Unmarshal deserializes JSON bytes into a Sheet.
func Unmarshal(data []byte) (Sheet, error) {
	var s Sheet
	if err := json.Unmarshal(data, &s); err != nil {
		return Sheet{}, fmt.Errorf("unmarshal sheet: %w", err)
	}
	for k := range s.Lines {
		if s.Lines[k].Number != k {
			return Sheet{}, fmt.Errorf("sheet line %d numbered %d", k, s.Lines[k].Number)
		}
	}
	return s, nil
}

// MarshalBook serializes the sheets of several tunes as a JSON array.
func MarshalBook(sheets []Sheet) ([]byte, error) {
	if sheets == nil {
		sheets = []Sheet{}
	}
	return json.MarshalIndent(sheets, "", "  ")
}

// WriteFile writes a Sheet to a JSON file.
func WriteFile(s Sheet, path string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a Sheet from a JSON file.
func ReadFile(path string) (Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sheet{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
