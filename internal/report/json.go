package report

import (
	"encoding/json"
	"fmt"
)

// MarshalIndent renders the tree as the structured document. The mods object
// keeps daemon insertion order, so rendering is stable and FromJSON
// reconstructs an identical tree.
func (r *Report) MarshalIndent() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}
	return data, nil
}

// FromJSON parses a structured document produced by MarshalIndent back into a
// report tree.
func FromJSON(data []byte) (*Report, error) {
	rep := NewReport()
	if err := json.Unmarshal(data, rep); err != nil {
		return nil, fmt.Errorf("failed to parse report document: %w", err)
	}
	return rep, nil
}
