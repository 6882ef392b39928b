package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/thatsimonsguy/fireplace-controller/internal/ir"
)

// Store keeps the learned IR codebook in a JSON file next to the database.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (ir.Codebook, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open codebook: %w", err)
	}
	defer file.Close()

	var codebook ir.Codebook
	if err := json.NewDecoder(file).Decode(&codebook); err != nil {
		return nil, fmt.Errorf("decode codebook %s: %w", s.path, err)
	}
	for name, pulses := range codebook {
		for _, d := range pulses {
			if d <= 0 {
				return nil, fmt.Errorf("signal %s has non-positive duration %d", name, d)
			}
		}
	}
	return codebook, nil
}

// Save writes to a temp file and renames it over the old one.
func (s *Store) Save(codebook ir.Codebook) error {
	tmpPath := s.path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmpPath, err)
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(codebook); err != nil {
		file.Close()
		return fmt.Errorf("encode codebook: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync codebook: %w", err)
	}
	file.Close()

	return os.Rename(tmpPath, s.path)
}
