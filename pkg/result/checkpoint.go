package result

import (
	"encoding/gob"
	"os"
)

// Checkpoint holds a paused session: registers, memory and the program it
// was running.
type Checkpoint struct {
	Program  string // path of the program image, or "inline"
	Image    []byte // program bytes as loaded
	Origin   uint16
	Snapshot Snapshot
	Memory   []byte // full 64 KiB address space
}

// SaveCheckpoint writes session state to a file.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(ckpt)
}

// LoadCheckpoint loads session state from a file.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ckpt Checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, err
	}
	return &ckpt, nil
}
