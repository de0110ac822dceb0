// Package lockfile guards an experiment's output directory against
// concurrent engine runs: at most one process may hold the
// lock for a given output directory at a time.
package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/arvidsen/taguchi-engine/taguchierr"
)

const fileName = ".taguchi-engine.lock"

// Identity is the process identity recorded in a held lockfile.
type Identity struct {
	RunID     string    `json:"runId"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"startedAt"`
}

// Lock is a held lockfile; Release removes it.
type Lock struct {
	path string
}

// Acquire creates the lockfile in dir, failing with ErrLockHeld if one
// already exists. The lockfile's identity lets an operator diagnose which
// process holds it.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("lockfile: create output dir: %w", err)
	}
	path := filepath.Join(dir, fileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			existing, _ := readIdentity(path)
			return nil, fmt.Errorf("%w: %s held by pid=%d host=%s since %s",
				taguchierr.ErrLockHeld, path, existing.PID, existing.Hostname, existing.StartedAt)
		}
		return nil, fmt.Errorf("lockfile: %w", err)
	}
	defer f.Close()

	id := Identity{
		RunID:     uuid.NewString(),
		PID:       os.Getpid(),
		Hostname:  hostname(),
		StartedAt: time.Now(),
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(id); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("lockfile: write identity: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lockfile.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return os.Remove(l.path)
}

func readIdentity(path string) (Identity, error) {
	var id Identity
	b, err := os.ReadFile(path)
	if err != nil {
		return id, err
	}
	_ = json.Unmarshal(b, &id)
	return id, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
