package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
)

const stateFileName = "state.json"

// stateFile is the on-disk form of the persisted tracking state.
type stateFile struct {
	State     domain.State `json:"state"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// StateFileRepository implements ports.StateRepository using a JSON file.
type StateFileRepository struct {
	dir string
	now func() time.Time
}

// NewStateFileRepository creates a new StateFileRepository for the given directory.
func NewStateFileRepository(dir string) *StateFileRepository {
	return &StateFileRepository{dir: dir, now: time.Now}
}

// Load reads the persisted state.
// Returns domain.StateStart and nil error if no state file exists.
func (r *StateFileRepository) Load(ctx context.Context) (domain.State, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.StateStart, nil
		}
		return domain.StateStart, err
	}

	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return domain.StateStart, fmt.Errorf("decode %s: %w", r.Path(), err)
	}
	return sf.State, nil
}

// Save persists the state atomically: the record is written to a temp file,
// synced and renamed over the state file.
func (r *StateFileRepository) Save(ctx context.Context, state domain.State) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(stateFile{State: state, UpdatedAt: r.now().UTC()}, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// Path returns the full path to the state file.
func (r *StateFileRepository) Path() string {
	return filepath.Join(r.dir, stateFileName)
}
