package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

const journalFileName = "transitions.jsonl"

// JournalConfig holds the retention settings of the transition journal.
type JournalConfig struct {
	// MaxRecords is the number of newest records kept when trimming.
	// Default: 10000
	MaxRecords int

	// CheckInterval is how often the journal is trimmed.
	// Default: 1 hour
	CheckInterval time.Duration
}

// DefaultJournalConfig returns a JournalConfig with sensible defaults.
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		MaxRecords:    10000,
		CheckInterval: time.Hour,
	}
}

// Journal implements ports.TransitionRecorder as an append-only JSON lines
// file, one record per committed transition.
type Journal struct {
	mu     sync.Mutex
	dir    string
	cfg    JournalConfig
	logger ports.Logger
}

// NewJournal creates a journal in dir.
func NewJournal(dir string, cfg JournalConfig, logger ports.Logger) *Journal {
	def := DefaultJournalConfig()
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = def.MaxRecords
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	return &Journal{dir: dir, cfg: cfg, logger: logger}
}

// Path returns the full path to the journal file.
func (j *Journal) Path() string {
	return filepath.Join(j.dir, journalFileName)
}

// Record appends rec to the journal.
func (j *Journal) Record(ctx context.Context, rec domain.TransitionRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode transition: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.dir, 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(j.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read returns up to limit of the newest records, oldest first.
// A limit of zero or less returns every record. Lines that fail to decode
// are skipped.
func (j *Journal) Read(limit int) ([]domain.TransitionRecord, error) {
	j.mu.Lock()
	lines, err := j.readLines()
	j.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	recs := make([]domain.TransitionRecord, 0, len(lines))
	for _, line := range lines {
		var rec domain.TransitionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Trim drops the oldest records beyond MaxRecords and returns how many
// were removed.
func (j *Journal) Trim(ctx context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	lines, err := j.readLines()
	if err != nil {
		return 0, err
	}
	excess := len(lines) - j.cfg.MaxRecords
	if excess <= 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	for _, line := range lines[excess:] {
		buf.Write(line)
		buf.WriteByte('\n')
	}

	tmp := j.Path() + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, j.Path()); err != nil {
		return 0, err
	}
	return excess, nil
}

// Run trims the journal immediately and then every CheckInterval until ctx
// is done.
func (j *Journal) Run(ctx context.Context) {
	j.trimOnce(ctx)

	ticker := time.NewTicker(j.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.trimOnce(ctx)
		}
	}
}

func (j *Journal) trimOnce(ctx context.Context) {
	removed, err := j.Trim(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Error("journal trim failed", ports.Err(err))
		}
		return
	}
	if removed > 0 {
		j.logger.Info("journal trimmed",
			ports.Int("removed", removed),
			ports.Int("kept", j.cfg.MaxRecords))
	}
}

// readLines returns the non-empty lines of the journal. Callers hold j.mu.
func (j *Journal) readLines() ([][]byte, error) {
	f, err := os.Open(j.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines [][]byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), b...))
	}
	return lines, sc.Err()
}
