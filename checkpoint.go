package taguchi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/arvidsen/taguchi-engine/taguchierr"
)

// ResultStore maps run index to its recorded repetition readings. The
// Controller is its sole mutating owner for the duration of a run; the
// Statistics Engine only ever sees a Snapshot.
type ResultStore struct {
	mu          sync.Mutex
	repetitions int
	runs        map[int][]MetricReading
}

// NewResultStore creates an empty store configured for R repetitions per
// run.
func NewResultStore(repetitions int) *ResultStore {
	return &ResultStore{repetitions: repetitions, runs: map[int][]MetricReading{}}
}

// Repetitions returns the configured repetition count R.
func (s *ResultStore) Repetitions() int { return s.repetitions }

// SetReadings replaces the full repetition list for a run (used both by
// normal trial completion and by checkpoint resume).
func (s *ResultStore) SetReadings(run int, readings []MetricReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]MetricReading, len(readings))
	copy(cp, readings)
	s.runs[run] = cp
}

// CompletedRepetitions reports how many repetitions of run are currently
// recorded (including nil/missing placeholders, since those still occupy a
// repetition slot pending a resumed retry).
func (s *ResultStore) CompletedRepetitions(run int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs[run])
}

// IsRunComplete reports whether run has at least R recorded repetitions.
func (s *ResultStore) IsRunComplete(run int) bool {
	return s.CompletedRepetitions(run) >= s.repetitions
}

// Snapshot returns a copy of the store's run map with a fresh slice per
// run, safe for the Statistics Engine to range over concurrently with
// further SetReadings calls. The MetricReading maps inside the slices are
// shared with the store, not copied.
func (s *ResultStore) Snapshot() map[int][]MetricReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int][]MetricReading, len(s.runs))
	for run, readings := range s.runs {
		cp := make([]MetricReading, len(readings))
		copy(cp, readings)
		out[run] = cp
	}
	return out
}

// EngineVersion is stamped into every checkpoint document.
const EngineVersion = "taguchi-engine/1"

// MetricSpecSnapshot is the serializable form of a MetricSpec.
type MetricSpecSnapshot struct {
	Name      string   `yaml:"name"`
	Criterion string   `yaml:"criterion"` // "larger" | "smaller" | "nominal"
	Target    *float64 `yaml:"target,omitempty"`
}

// ConfigSnapshot is the portion of the experiment configuration a
// checkpoint must remember to support a faithful resume without the
// caller re-supplying the original configuration file.
type ConfigSnapshot struct {
	ControlFactors       []Factor             `yaml:"controlFactors"`
	NoiseFactors         []Factor             `yaml:"noiseFactors"`
	Metrics              []MetricSpecSnapshot `yaml:"metrics"`
	Interactions         []InteractionRequest `yaml:"interactions"`
	Repetitions          int                  `yaml:"repetitions"`
	TargetExecutablePath string               `yaml:"targetExecutablePath"`
	FixedArgs            []FixedArg           `yaml:"fixedArgs"`
	FixedEnv             map[string]string    `yaml:"fixedEnv"`
	TrialTimeoutSeconds  float64              `yaml:"trialTimeoutSeconds"`
	MaxRetries           int                  `yaml:"maxRetries"`
	ShowTargetOutput     bool                 `yaml:"showTargetOutput"`
	OutputDirectory      string               `yaml:"outputDirectory"`
	MaxParallelTrials    int                  `yaml:"maxParallelTrials"`
}

// AssignmentSnapshot is the serializable form of an Assignment.
type AssignmentSnapshot struct {
	ArrayDesignation  string         `yaml:"arrayDesignation"`
	FactorColumn      map[string]int `yaml:"factorColumn"`
	InteractionColumn map[string]int `yaml:"interactionColumn,omitempty"` // keyed by InteractionRequest.Key()
}

// SnapshotAssignment converts a live Assignment into its serializable form.
func SnapshotAssignment(a Assignment) AssignmentSnapshot {
	ic := make(map[string]int, len(a.InteractionColumn))
	for ir, col := range a.InteractionColumn {
		ic[ir.Key()] = col
	}
	return AssignmentSnapshot{
		ArrayDesignation:  a.Array.Designation,
		FactorColumn:      a.FactorColumn,
		InteractionColumn: ic,
	}
}

// CheckpointDoc is the single structured document persisted after every
// completed trial.
type CheckpointDoc struct {
	EngineVersion string                   `yaml:"engineVersion"`
	Config        ConfigSnapshot           `yaml:"config"`
	Assignment    AssignmentSnapshot       `yaml:"assignment"`
	Runs          map[int][]MetricReading  `yaml:"runs"`
	Counter       uint64                   `yaml:"counter"`
	Digest        string                   `yaml:"digest,omitempty"`
}

// Checkpointer persists and loads a single experiment's CheckpointDoc under
// an output directory, atomically.
type Checkpointer struct {
	path string
}

// NewCheckpointer returns a Checkpointer writing to
// "<outputDirectory>/checkpoint.yaml".
func NewCheckpointer(outputDirectory string) *Checkpointer {
	return &Checkpointer{path: filepath.Join(outputDirectory, "checkpoint.yaml")}
}

// OpenCheckpointer returns a Checkpointer bound to an exact file path,
// for resuming from a state file whose location was given directly rather
// than derived from an output directory.
func OpenCheckpointer(path string) *Checkpointer {
	return &Checkpointer{path: path}
}

// Path returns the checkpoint file path.
func (c *Checkpointer) Path() string { return c.path }

// canonicalDigest returns the SHA-256 hex digest of doc's canonical YAML
// encoding with Digest cleared.
func canonicalDigest(doc CheckpointDoc) (string, error) {
	doc.Digest = ""
	body, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// Save atomically persists doc: it stamps doc's digest, writes to a
// temporary sibling file, fsyncs it, and renames it over the target path.
func (c *Checkpointer) Save(doc CheckpointDoc) error {
	digest, err := canonicalDigest(doc)
	if err != nil {
		return fmt.Errorf("taguchi: checkpoint digest: %w", err)
	}
	doc.Digest = digest

	body, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("taguchi: checkpoint marshal: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("taguchi: checkpoint dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("taguchi: checkpoint temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("taguchi: checkpoint write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("taguchi: checkpoint fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("taguchi: checkpoint close: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("taguchi: checkpoint rename: %w", err)
	}
	return nil
}

// Load reads and validates the checkpoint's digest, failing with
// ErrCheckpointCorrupt on mismatch or when the file does not parse.
func (c *Checkpointer) Load() (CheckpointDoc, error) {
	var doc CheckpointDoc
	body, err := os.ReadFile(c.path)
	if err != nil {
		return doc, fmt.Errorf("taguchi: checkpoint read: %w", err)
	}
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return doc, fmt.Errorf("%w: %s: unmarshal: %v", taguchierr.ErrCheckpointCorrupt, c.path, err)
	}
	want := doc.Digest
	got, err := canonicalDigest(doc)
	if err != nil {
		return doc, fmt.Errorf("taguchi: checkpoint digest: %w", err)
	}
	if want != got {
		return doc, fmt.Errorf("%w: %s", taguchierr.ErrCheckpointCorrupt, c.path)
	}
	return doc, nil
}

// CompletedRepetitions returns how many leading repetitions of run are
// already recorded (non-nil) in doc, so a resumed trial can pick up at
// exactly the first missing repetition instead of redoing the whole run.
func CompletedRepetitions(doc CheckpointDoc, run int) int {
	n := 0
	for _, r := range doc.Runs[run] {
		if r == nil {
			break
		}
		n++
	}
	return n
}

// IncompleteRuns returns, in ascending order, the run indices with fewer
// than R recorded repetitions — the resume schedule.
func IncompleteRuns(doc CheckpointDoc, totalRuns int) []int {
	var out []int
	for run := 1; run <= totalRuns; run++ {
		readings := doc.Runs[run]
		complete := 0
		for _, r := range readings {
			if r != nil {
				complete++
			}
		}
		if complete < doc.Config.Repetitions {
			out = append(out, run)
		}
	}
	return out
}
