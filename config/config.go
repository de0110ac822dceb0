// Package config decodes the engine's YAML configuration surface
// into the concrete types the core packages consume,
// materializing float/int ranges into explicit level payloads before any
// Factor is constructed.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	taguchi "github.com/arvidsen/taguchi-engine"
	"github.com/arvidsen/taguchi-engine/stats"
)

// FloatRange discretizes into levels "min", "min+step", ... up to max
// (inclusive, within floating point tolerance).
type FloatRange struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

// IntRange discretizes into levels min, min+step, ..., up to max.
type IntRange struct {
	Min  int `yaml:"min"`
	Max  int `yaml:"max"`
	Step int `yaml:"step"`
}

// FactorSpec is one entry of the controlFactors/noiseFactors config lists.
// Exactly one of Levels, FloatRange, or IntRange should be set.
type FactorSpec struct {
	Name       string      `yaml:"name"`
	CliArg     string      `yaml:"cliArg"`
	EnvVar     string      `yaml:"envVar"`
	Levels     []string    `yaml:"levels"`
	FloatRange *FloatRange `yaml:"floatRange"`
	IntRange   *IntRange   `yaml:"intRange"`
}

// MetricSpec is one entry of the metricsToAnalyze config list.
type MetricSpec struct {
	Name      string   `yaml:"name"`
	Criterion string   `yaml:"criterion"` // "larger" | "smaller" | "nominal"
	Target    *float64 `yaml:"target"`
}

// InteractionSpec is one entry of the interactions config list.
type InteractionSpec struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Duration decodes a YAML scalar like "30s" or "2m" via time.ParseDuration,
// since yaml.v3 has no built-in time.Duration support.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: trialTimeout: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the fully decoded, ready-to-run engine configuration.
type Config struct {
	Repetitions              int                    `yaml:"repetitions"`
	OutputDirectory          string                 `yaml:"outputDirectory"`
	TargetExecutablePath     string                 `yaml:"targetExecutablePath"`
	Verbose                  bool                   `yaml:"verbose"`
	ShowTargetOutput         bool                   `yaml:"showTargetOutput"`
	MetricsToAnalyze         []MetricSpec           `yaml:"metricsToAnalyze"`
	FixedCommandLineArgs     yaml.Node              `yaml:"fixedCommandLineArguments"`
	FixedEnvironmentVars     map[string]string      `yaml:"fixedEnvironmentVariables"`
	ControlFactors           []FactorSpec           `yaml:"controlFactors"`
	NoiseFactors             []FactorSpec           `yaml:"noiseFactors"`
	Interactions             []InteractionSpec      `yaml:"interactions"`
	TrialTimeout             Duration               `yaml:"trialTimeout"`
	MaxRetries               int                    `yaml:"maxRetries"`
	MaxParallelTrials        int                    `yaml:"maxParallelTrials"`
}

// Load reads and decodes a configuration file from path.
func Load(path string) (Config, error) {
	var cfg Config
	body, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Repetitions <= 0 {
		return cfg, fmt.Errorf("config: repetitions must be a positive integer")
	}
	if cfg.TargetExecutablePath == "" {
		return cfg, fmt.Errorf("config: targetExecutablePath is required")
	}
	return cfg, nil
}

// binding builds the taguchi.Binding for a factor spec.
func (fs FactorSpec) binding() taguchi.Binding {
	return taguchi.Binding{CliFlag: fs.CliArg, EnvVar: fs.EnvVar}
}

// levelValues materializes the factor's level payloads, discretizing
// FloatRange/IntRange into strings when Levels itself is not given.
func (fs FactorSpec) levelValues() ([]string, error) {
	if len(fs.Levels) > 0 {
		return fs.Levels, nil
	}
	if fs.FloatRange != nil {
		r := fs.FloatRange
		if r.Step <= 0 {
			return nil, fmt.Errorf("config: factor %s: floatRange.step must be positive", fs.Name)
		}
		var out []string
		for v := r.Min; v <= r.Max+1e-9; v += r.Step {
			out = append(out, strconv.FormatFloat(round9(v), 'g', -1, 64))
		}
		return out, nil
	}
	if fs.IntRange != nil {
		r := fs.IntRange
		if r.Step <= 0 {
			return nil, fmt.Errorf("config: factor %s: intRange.step must be positive", fs.Name)
		}
		var out []string
		for v := r.Min; v <= r.Max; v += r.Step {
			out = append(out, strconv.Itoa(v))
		}
		return out, nil
	}
	return nil, fmt.Errorf("config: factor %s: none of levels, floatRange, intRange set", fs.Name)
}

func round9(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

// BuildCriterion converts the config's string criterion into a
// stats.Criterion.
func (m MetricSpec) BuildCriterion() (stats.Criterion, error) {
	switch m.Criterion {
	case "larger":
		return stats.NewLargerBetter(), nil
	case "smaller":
		return stats.NewSmallerBetter(), nil
	case "nominal":
		if m.Target == nil {
			return stats.Criterion{}, fmt.Errorf("config: metric %s: nominal criterion requires target", m.Name)
		}
		return stats.NewNominal(*m.Target), nil
	default:
		return stats.Criterion{}, fmt.Errorf("config: metric %s: unknown criterion %q", m.Name, m.Criterion)
	}
}

// BuildMetricSpec converts the config's MetricSpec into a stats.MetricSpec.
func (m MetricSpec) BuildMetricSpec() (stats.MetricSpec, error) {
	crit, err := m.BuildCriterion()
	if err != nil {
		return stats.MetricSpec{}, err
	}
	return stats.MetricSpec{Name: m.Name, Criterion: crit}, nil
}

// BuildInteractionRequest converts the config's InteractionSpec into a
// taguchi.InteractionRequest.
func (i InteractionSpec) BuildInteractionRequest() taguchi.InteractionRequest {
	return taguchi.InteractionRequest{A: i.A, B: i.B}
}

// BuildFactor converts a FactorSpec into a taguchi.Factor of the given role.
func (fs FactorSpec) BuildFactor(role taguchi.Role) (taguchi.Factor, error) {
	values, err := fs.levelValues()
	if err != nil {
		return taguchi.Factor{}, err
	}
	return taguchi.NewFactor(fs.Name, role, fs.binding(), values)
}

// FixedArgs decodes the ordered fixedCommandLineArguments map (a null
// value means "flag with no value") into []taguchi.FixedArg, preserving
// document order via the raw yaml.Node mapping content.
func (c Config) FixedArgs() ([]taguchi.FixedArg, error) {
	if c.FixedCommandLineArgs.Kind == 0 {
		return nil, nil
	}
	if c.FixedCommandLineArgs.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config: fixedCommandLineArguments must be a mapping")
	}
	content := c.FixedCommandLineArgs.Content
	args := make([]taguchi.FixedArg, 0, len(content)/2)
	for i := 0; i+1 < len(content); i += 2 {
		flag := content[i].Value
		valNode := content[i+1]
		if valNode.Tag == "!!null" {
			args = append(args, taguchi.FixedArg{Flag: flag})
			continue
		}
		v := valNode.Value
		args = append(args, taguchi.FixedArg{Flag: flag, Value: &v})
	}
	return args, nil
}
