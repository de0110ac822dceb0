package taguchi

import (
	"fmt"

	"github.com/arvidsen/taguchi-engine/taguchierr"
)

// Role distinguishes a factor that is optimized (Control) from one that is
// varied to measure robustness (Noise).
type Role int

const (
	Control Role = iota
	Noise
)

func (r Role) String() string {
	if r == Noise {
		return "Noise"
	}
	return "Control"
}

// Binding describes how a factor's chosen level is passed to the target
// executable. At least one of CliFlag or EnvVar must be set; NewFactor
// rejects a factor with neither (ErrInvalidBinding).
type Binding struct {
	CliFlag string // e.g. "--workers"; empty means "not passed as a CLI arg"
	EnvVar  string // e.g. "WORKERS"; empty means "not passed as an env var"
}

// HasCli reports whether this binding passes the level as a CLI argument.
func (b Binding) HasCli() bool { return b.CliFlag != "" }

// HasEnv reports whether this binding passes the level as an environment
// variable.
func (b Binding) HasEnv() bool { return b.EnvVar != "" }

func (b Binding) validate(factorName string) error {
	if !b.HasCli() && !b.HasEnv() {
		return fmt.Errorf("%w: factor=%s: binding must set CliFlag and/or EnvVar",
			taguchierr.ErrInvalidBinding, factorName)
	}
	return nil
}

// Level is a single point in a factor's level set: an OA level index
// (1-based) paired with the string payload passed to the target.
type Level struct {
	Index int
	Value string
}

// Factor is a control or noise input to the experiment: a unique name, a
// role, a binding describing how its level reaches the target, and an
// ordered set of levels whose index aligns with the orthogonal array's
// level encoding.
type Factor struct {
	Name    string
	Role    Role
	Binding Binding
	Levels  []Level
}

// NewFactor builds a Factor from an ordered slice of string payload values,
// assigning 1-based OA level indices in order. It fails with
// ErrInvalidBinding if neither binding target is set, and with a plain
// error if fewer than two levels are supplied (an OA column needs at least
// two distinct levels to carry information).
func NewFactor(name string, role Role, binding Binding, values []string) (Factor, error) {
	if len(values) < 2 {
		return Factor{}, fmt.Errorf("taguchi: factor %s needs at least 2 levels, got %d", name, len(values))
	}
	if err := binding.validate(name); err != nil {
		return Factor{}, err
	}
	levels := make([]Level, len(values))
	for i, v := range values {
		levels[i] = Level{Index: i + 1, Value: v}
	}
	return Factor{Name: name, Role: role, Binding: binding, Levels: levels}, nil
}

// LevelCount returns the number of levels the factor carries.
func (f Factor) LevelCount() int { return len(f.Levels) }

// LevelsOf returns the factor's ordered (index, value) sequence.
func LevelsOf(f Factor) []Level { return f.Levels }

// LevelAt returns the Level at the given 1-based OA index, failing with
// ErrInvalidLevelIndex if index is out of 1..L.
func LevelAt(f Factor, index int) (Level, error) {
	if index < 1 || index > len(f.Levels) {
		return Level{}, fmt.Errorf("%w: factor=%s: index=%d: valid range is 1..%d",
			taguchierr.ErrInvalidLevelIndex, f.Name, index, len(f.Levels))
	}
	return f.Levels[index-1], nil
}

// Bindings returns the effective CLI flag and environment variable name for
// the factor, either of which may be empty.
func Bindings(f Factor) (cli string, env string) {
	return f.Binding.CliFlag, f.Binding.EnvVar
}

// InteractionRequest names an unordered pair of control factors whose
// interaction effect should be estimated. Both factors must share the same
// level count and must be co-assignable on the chosen array's interaction
// table.
type InteractionRequest struct {
	A, B string
}

// Key returns a canonical, order-independent string for use as a map key.
func (ir InteractionRequest) Key() string {
	a, b := ir.A, ir.B
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}
