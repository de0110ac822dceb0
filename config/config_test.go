package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDecodesFullConfig(t *testing.T) {
	path := writeConfig(t, `
repetitions: 3
outputDirectory: out
targetExecutablePath: /bin/true
trialTimeout: 30s
maxRetries: 2
metricsToAnalyze:
  - name: latency
    criterion: smaller
controlFactors:
  - name: workers
    cliArg: --workers
    levels: ["1", "2"]
fixedCommandLineArguments:
  --verbose: null
  --mode: fast
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Repetitions != 3 {
		t.Errorf("Repetitions = %d, want 3", cfg.Repetitions)
	}
	if time := cfg.TrialTimeout; time == 0 {
		t.Errorf("TrialTimeout not decoded")
	}
	args, err := cfg.FixedArgs()
	if err != nil {
		t.Fatalf("FixedArgs: %v", err)
	}
	if len(args) != 2 {
		t.Fatalf("FixedArgs = %v, want 2 entries", args)
	}
	if args[0].Flag != "--verbose" || args[0].Value != nil {
		t.Errorf("args[0] = %+v, want --verbose with nil value", args[0])
	}
	if args[1].Flag != "--mode" || args[1].Value == nil || *args[1].Value != "fast" {
		t.Errorf("args[1] = %+v, want --mode=fast", args[1])
	}
}

func TestLoadRejectsMissingRepetitions(t *testing.T) {
	path := writeConfig(t, "targetExecutablePath: /bin/true\n")
	if _, err := Load(path); err == nil {
		t.Errorf("expected error for missing repetitions")
	}
}

func TestLoadRejectsMissingTargetExecutable(t *testing.T) {
	path := writeConfig(t, "repetitions: 1\n")
	if _, err := Load(path); err == nil {
		t.Errorf("expected error for missing targetExecutablePath")
	}
}

func TestFactorSpecBuildFactorFromExplicitLevels(t *testing.T) {
	fs := FactorSpec{Name: "algo", CliArg: "--algo", Levels: []string{"a", "b", "c"}}
	f, err := fs.BuildFactor(0)
	if err != nil {
		t.Fatalf("BuildFactor: %v", err)
	}
	if f.LevelCount() != 3 {
		t.Errorf("LevelCount = %d, want 3", f.LevelCount())
	}
}

func TestFactorSpecBuildFactorFromFloatRange(t *testing.T) {
	fs := FactorSpec{Name: "ratio", CliArg: "--ratio", FloatRange: &FloatRange{Min: 0.1, Max: 0.3, Step: 0.1}}
	f, err := fs.BuildFactor(0)
	if err != nil {
		t.Fatalf("BuildFactor: %v", err)
	}
	if f.LevelCount() != 3 {
		t.Errorf("LevelCount = %d, want 3 (0.1, 0.2, 0.3)", f.LevelCount())
	}
}

func TestFactorSpecBuildFactorFromIntRange(t *testing.T) {
	fs := FactorSpec{Name: "workers", CliArg: "--workers", IntRange: &IntRange{Min: 2, Max: 8, Step: 2}}
	f, err := fs.BuildFactor(0)
	if err != nil {
		t.Fatalf("BuildFactor: %v", err)
	}
	if f.LevelCount() != 4 {
		t.Errorf("LevelCount = %d, want 4 (2,4,6,8)", f.LevelCount())
	}
}

func TestFactorSpecRejectsZeroStep(t *testing.T) {
	fs := FactorSpec{Name: "bad", CliArg: "--bad", IntRange: &IntRange{Min: 1, Max: 5, Step: 0}}
	if _, err := fs.BuildFactor(0); err == nil {
		t.Errorf("expected error for zero step")
	}
}

func TestMetricSpecBuildCriterionNominalRequiresTarget(t *testing.T) {
	m := MetricSpec{Name: "temp", Criterion: "nominal"}
	if _, err := m.BuildCriterion(); err == nil {
		t.Errorf("expected error for nominal criterion without target")
	}
	target := 36.6
	m.Target = &target
	if _, err := m.BuildCriterion(); err != nil {
		t.Errorf("BuildCriterion with target set: %v", err)
	}
}

func TestMetricSpecBuildCriterionUnknown(t *testing.T) {
	m := MetricSpec{Name: "x", Criterion: "biggest"}
	if _, err := m.BuildCriterion(); err == nil {
		t.Errorf("expected error for unknown criterion")
	}
}
