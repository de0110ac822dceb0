// Package stats implements the Statistics Engine: S/N
// transformation, main-effect and interaction-effect estimation, ANOVA
// with pooling, optimal-level selection, and prediction with a confidence
// interval. Every stage is a pure function over an immutable snapshot of
// the result store — no stage mutates shared state or depends on another
// stage's internal fields, matching this codebase's rejection of
// inheritance/dispatch between analysis stages.
package stats

import "github.com/arvidsen/taguchi-engine/taguchierr"

// Criterion is the tagged union of S/N transforms this package supports
// LargerBetter | SmallerBetter | Nominal(target).
type Criterion struct {
	kind   criterionKind
	target float64
}

type criterionKind int

const (
	LargerBetter criterionKind = iota
	SmallerBetter
	Nominal
)

// NewLargerBetter builds a "bigger response is better" criterion.
func NewLargerBetter() Criterion { return Criterion{kind: LargerBetter} }

// NewSmallerBetter builds a "smaller response is better" criterion.
func NewSmallerBetter() Criterion { return Criterion{kind: SmallerBetter} }

// NewNominal builds a "response should hit target" criterion.
func NewNominal(target float64) Criterion { return Criterion{kind: Nominal, target: target} }

// Kind reports which of the three transforms this criterion uses.
func (c Criterion) Kind() criterionKind { return c.kind }

// Target returns the nominal target value (meaningful only when
// Kind() == Nominal).
func (c Criterion) Target() float64 { return c.target }

func (c Criterion) String() string {
	switch c.kind {
	case LargerBetter:
		return "LargerBetter"
	case SmallerBetter:
		return "SmallerBetter"
	default:
		return "Nominal"
	}
}

// MetricSpec names a metric and the criterion its S/N ratio is computed
// under.
type MetricSpec struct {
	Name      string
	Criterion Criterion
}

// RunSN is one run's computed S/N ratio plus the raw-scale sample mean, or
// a reason it was dropped from analysis.
type RunSN struct {
	Run     int
	Eta     float64
	RawMean float64
	Dropped bool
}

// EffectEstimate is the signed deviation of a level's main effect from the
// grand mean, alongside its magnitude.
type EffectEstimate struct {
	Factor    string
	Level     int
	Signed    float64
	Magnitude float64
}

// MainEffectTable holds, per control factor, the S/N and raw-scale average
// at each level.
type MainEffectTable struct {
	Factor  string
	SNByLevel  []float64 // index 0 == level 1
	RawByLevel []float64
}

// InteractionEffectTable holds the S/N cell mean for every (levelA, levelB)
// pair of a reserved interaction.
type InteractionEffectTable struct {
	FactorA, FactorB string
	// Cell[a-1][b-1] is the mean eta over runs where FactorA=a, FactorB=b.
	Cell [][]float64
}

// ANOVASource is one row of an ANOVA table: a control factor or a reserved
// interaction.
type ANOVASource struct {
	Name           string
	DOF            int
	SS             float64
	MS             float64
	F              float64
	P              float64
	ContributionPC float64
	Pooled         bool
}

// ANOVATable is a full decomposition of the response's variation: each
// source's row plus the error row and totals.
type ANOVATable struct {
	Sources  []ANOVASource
	ErrorDOF int
	ErrorSS  float64
	ErrorMS  float64
	TotalDOF int
	TotalSS  float64
}

// Prediction is the point estimate and confidence interval at the optimal
// configuration, on both the eta and raw scales.
type Prediction struct {
	Eta          float64
	EtaLower     float64
	EtaUpper     float64
	Raw          float64
	RawLower     float64
	RawUpper     float64
	RawApproximate bool // true whenever any interaction contributed
	NEff         float64
	HalfWidth    float64
}

// Report is the complete per-metric analysis output.
type Report struct {
	Metric          string
	Criterion       Criterion
	OptimalLevel    map[string]int
	Prediction      Prediction
	Initial         ANOVATable
	Pooled          *ANOVATable
	PooledSources   []string
	MainEffects     map[string]MainEffectTable
	Interactions    map[string]InteractionEffectTable // keyed by "A\x00B"
	Effects         []EffectEstimate
	Warnings        []taguchierr.Warning
}
