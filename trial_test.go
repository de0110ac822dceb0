package taguchi

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestParseResponseFindsLastSentinelOccurrence(t *testing.T) {
	stdout := []byte("noise\n" + ResultSentinel + "\n{\"result\":{\"a\":1}}\n" +
		"garbage\n" + ResultSentinel + "\n{\"result\":{\"a\":2}}\n")
	reading, _, err := parseResponse(stdout)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if reading["a"] != 2 {
		t.Errorf("a = %v, want 2 (from the last sentinel)", reading["a"])
	}
}

func TestParseResponseMissingSentinel(t *testing.T) {
	if _, _, err := parseResponse([]byte("no sentinel here\n")); err == nil {
		t.Errorf("expected error for missing sentinel")
	}
}

func TestParseResponseMissingResultKey(t *testing.T) {
	stdout := []byte(ResultSentinel + "\n{\"other\":{\"ok\":1}}\n")
	if _, _, err := parseResponse(stdout); err == nil {
		t.Errorf("expected error for response missing \"result\" key")
	}
}

func TestParseResponseSkipsBlankLinesAfterSentinel(t *testing.T) {
	stdout := []byte(ResultSentinel + "\n\n\n{\"result\":{\"ok\":1.5}}\n")
	reading, _, err := parseResponse(stdout)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if reading["ok"] != 1.5 {
		t.Errorf("ok = %v, want 1.5", reading["ok"])
	}
}

func TestBuildInvocationAppliesControlThenNoise(t *testing.T) {
	control, err := NewFactor("workers", Control, Binding{CliFlag: "--workers"}, []string{"1", "2"})
	if err != nil {
		t.Fatalf("NewFactor: %v", err)
	}
	noise, err := NewFactor("pattern", Noise, Binding{EnvVar: "PATTERN"}, []string{"seq", "rand"})
	if err != nil {
		t.Fatalf("NewFactor: %v", err)
	}
	cfg := TrialConfig{FixedArgs: []FixedArg{{Flag: "--verbose"}, {Flag: "--mode", Value: strPtr("fast")}}}

	args, env, warnings, err := buildInvocation(
		[]Factor{control}, map[string]int{"workers": 2},
		[]Factor{noise}, map[string]int{"pattern": 1},
		cfg,
	)
	if err != nil {
		t.Fatalf("buildInvocation: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	wantArgs := []string{"--verbose", "--mode", "fast", "--workers", "2"}
	if len(args) != len(wantArgs) {
		t.Fatalf("args = %v, want %v", args, wantArgs)
	}
	for i := range wantArgs {
		if args[i] != wantArgs[i] {
			t.Errorf("args[%d] = %s, want %s", i, args[i], wantArgs[i])
		}
	}
	if len(env) != 1 || env[0] != "PATTERN=seq" {
		t.Errorf("env = %v, want [PATTERN=seq]", env)
	}
}

func TestBuildInvocationNoiseOverridesControlWarns(t *testing.T) {
	control, _ := NewFactor("mode", Control, Binding{CliFlag: "--mode"}, []string{"a", "b"})
	noise, _ := NewFactor("disturbance", Noise, Binding{CliFlag: "--mode"}, []string{"x", "y"})

	_, _, warnings, err := buildInvocation(
		[]Factor{control}, map[string]int{"mode": 1},
		[]Factor{noise}, map[string]int{"disturbance": 2},
		TrialConfig{},
	)
	if err != nil {
		t.Fatalf("buildInvocation: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 NoiseOverridesControl warning, got %d: %v", len(warnings), warnings)
	}
}

func writeScriptTarget(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "target.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunTrialRecordsSuccessfulRepetitions(t *testing.T) {
	target := writeScriptTarget(t, "echo '"+ResultSentinel+"'\necho '{\"result\":{\"latency\":1.5}}'\n")
	control, _ := NewFactor("mode", Control, Binding{CliFlag: "--mode"}, []string{"a", "b"})
	cfg := TrialConfig{TargetExecutablePath: target, Timeout: 5 * time.Second}

	readings, _, err := RunTrial(context.Background(), 1, []Factor{control}, map[string]int{"mode": 1}, nil, 2, 1, nil, cfg, nil)
	if err != nil {
		t.Fatalf("RunTrial: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("readings = %v, want 2 entries", readings)
	}
	for i, r := range readings {
		if r == nil || r["latency"] != 1.5 {
			t.Errorf("reading %d = %v, want latency=1.5", i, r)
		}
	}
}

func TestRunTrialSkipsRepetitionsAlreadyRecorded(t *testing.T) {
	target := writeScriptTarget(t, "echo '"+ResultSentinel+"'\necho '{\"result\":{\"latency\":2.0}}'\n")
	control, _ := NewFactor("mode", Control, Binding{CliFlag: "--mode"}, []string{"a", "b"})
	cfg := TrialConfig{TargetExecutablePath: target, Timeout: 5 * time.Second}
	existing := []MetricReading{{"latency": 9.0}, nil}

	readings, _, err := RunTrial(context.Background(), 1, []Factor{control}, map[string]int{"mode": 1}, nil, 2, 2, existing, cfg, nil)
	if err != nil {
		t.Fatalf("RunTrial: %v", err)
	}
	if readings[0]["latency"] != 9.0 {
		t.Errorf("existing repetition overwritten: %v", readings[0])
	}
	if readings[1] == nil || readings[1]["latency"] != 2.0 {
		t.Errorf("repetition 2 = %v, want latency=2.0", readings[1])
	}
}

func TestRunTrialRecordsNilReadingAfterRetriesExhausted(t *testing.T) {
	target := writeScriptTarget(t, "echo 'no sentinel here'\n")
	control, _ := NewFactor("mode", Control, Binding{CliFlag: "--mode"}, []string{"a", "b"})
	cfg := TrialConfig{TargetExecutablePath: target, Timeout: 2 * time.Second, MaxRetries: 0}

	readings, warnings, err := RunTrial(context.Background(), 1, []Factor{control}, map[string]int{"mode": 1}, nil, 1, 1, nil, cfg, nil)
	if err != nil {
		t.Fatalf("RunTrial: %v", err)
	}
	if readings[0] != nil {
		t.Errorf("expected nil reading after exhausted retries, got %v", readings[0])
	}
	if len(warnings) == 0 {
		t.Errorf("expected a FailedTrial warning")
	}
}
