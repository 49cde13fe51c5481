package result

import (
	"encoding/json"
	"os"
)

// Checkpoint holds enough state to resume a SPEED search that tracks
// the best solution seen across an increasing candidate-length sweep,
// without re-verifying lengths already completed. JSON replaces the
// teacher's gob encoding so a checkpoint can be inspected without a
// decoder built for this program.
type Checkpoint struct {
	CompletedLen int       `json:"completed_len"` // candidate byte length fully searched so far
	Best         *Solution `json:"best,omitempty"`
}

// SaveCheckpoint writes search state to path.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	b, err := json.MarshalIndent(ckpt, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadCheckpoint loads search state previously written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ckpt Checkpoint
	if err := json.Unmarshal(b, &ckpt); err != nil {
		return nil, err
	}
	return &ckpt, nil
}
