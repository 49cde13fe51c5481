package result

import (
	"encoding/json"
	"os"
)

// WriteJSON writes sol to path as indented JSON.
func WriteJSON(path string, sol *Solution) error {
	b, err := json.MarshalIndent(sol, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadJSON reads a Solution previously written by WriteJSON.
func ReadJSON(path string) (*Solution, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sol Solution
	if err := json.Unmarshal(b, &sol); err != nil {
		return nil, err
	}
	return &sol, nil
}
