// Package report shapes the Statistics Engine's output plus the raw run
// table into a single, language-neutral payload. It knows
// nothing about any output format — rendering to HTML, Markdown, or JSON is
// a collaborator's job, not this package's.
package report

import (
	"github.com/arvidsen/taguchi-engine/stats"
	"github.com/arvidsen/taguchi-engine/taguchierr"
)

// RunRecord is one row of the raw experiment data: the run's control-level
// assignment and every repetition's metric readings (a nil entry marks a
// repetition that failed after its retry budget).
type RunRecord struct {
	Run            int
	ControlLevels  map[string]int
	Readings       []map[string]float64
}

// Payload is the complete result of an experiment: its design, the raw run
// table, and one analysis Report per metric.
type Payload struct {
	ArrayDesignation string
	FactorColumn     map[string]int
	Runs             []RunRecord
	Reports          map[string]stats.Report
	Warnings         []taguchierr.Warning
}

// MetricNames returns the payload's metric names. They come from a map,
// so their order is not defined; callers that need a stable order sort
// the result.
func (p Payload) MetricNames() []string {
	out := make([]string, 0, len(p.Reports))
	for name := range p.Reports {
		out = append(out, name)
	}
	return out
}

// AllWarnings concatenates the payload-level warnings with every metric
// report's own warnings, useful for a single "what should I worry about"
// summary.
func (p Payload) AllWarnings() []taguchierr.Warning {
	out := append([]taguchierr.Warning(nil), p.Warnings...)
	for _, r := range p.Reports {
		out = append(out, r.Warnings...)
	}
	return out
}
