package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogiking/formpulse/internal/models"
)

// State is the full serialized repository aggregate. It must round-trip
// through a Snapshot provider without loss.
type State struct {
	Surveys         []*models.Survey            `json:"surveys"`
	Responses       []*models.Response          `json:"responses"`
	CurrentSurveyID string                      `json:"current_survey_id,omitempty"`
	Voted           map[string][]models.VotePair `json:"voted,omitempty"`
	Audit           []AuditEntry                `json:"audit,omitempty"`
}

// Snapshot is the persistence port: the repository loads one State at startup
// and writes the whole State back after every mutation.
type Snapshot interface {
	Load() (*State, error)
	Save(*State) error
}

// FileSnapshot persists the state as a JSON document on disk. Writes go
// through a temp file and rename so a crash never leaves a torn snapshot.
type FileSnapshot struct {
	path string
}

func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

func (f *FileSnapshot) Load() (*State, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", f.path, err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", f.path, err)
	}
	return &st, nil
}

func (f *FileSnapshot) Save(st *State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".formpulse-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", f.path, err)
	}
	return nil
}

var _ Snapshot = (*FileSnapshot)(nil)
