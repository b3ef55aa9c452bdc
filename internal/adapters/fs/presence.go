package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/tripdiary/internal/ports"
)

const presenceFileName = "tracking.active"

// PresenceFile implements ports.PresenceSignal with a marker file that
// exists while a trip is being tracked. Other processes (status bars,
// supervisors) can watch for it.
type PresenceFile struct {
	mu     sync.Mutex
	dir    string
	logger ports.Logger
}

// NewPresenceFile creates a presence signal in dir.
func NewPresenceFile(dir string, logger ports.Logger) *PresenceFile {
	return &PresenceFile{dir: dir, logger: logger}
}

// Path returns the full path to the marker file.
func (p *PresenceFile) Path() string {
	return filepath.Join(p.dir, presenceFileName)
}

// Active reports whether the marker file exists.
func (p *PresenceFile) Active() bool {
	_, err := os.Stat(p.Path())
	return err == nil
}

// Start creates the marker file.
func (p *PresenceFile) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		p.logger.Warn("presence: create dir failed", ports.Err(err))
		return
	}
	body := fmt.Sprintf("pid=%d since=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(p.Path(), []byte(body), 0o600); err != nil {
		p.logger.Warn("presence: write marker failed", ports.Err(err))
		return
	}
	p.logger.Debug("presence started", ports.String("path", p.Path()))
}

// Stop removes the marker file.
func (p *PresenceFile) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("presence: remove marker failed", ports.Err(err))
		return
	}
	p.logger.Debug("presence stopped")
}
