package taguchi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/arvidsen/taguchi-engine/logging"
	"github.com/arvidsen/taguchi-engine/taguchierr"
)

// ResultSentinel is the exact ASCII marker the target must print on its own
// line immediately before its JSON response.
const ResultSentinel = "v^v^v^RESULT^v^v^v"

// MetricReading is one repetition's parsed metric values.
type MetricReading map[string]float64

// FixedArg is one fixed (non-factor) CLI argument. A nil Value means "flag
// with no value" (e.g. "--verbose").
type FixedArg struct {
	Flag  string
	Value *string
}

// TrialConfig carries everything the Trial Driver needs beyond the factor
// set itself: the target binary, fixed invocation arguments, and the
// per-trial timeout/retry policy.
type TrialConfig struct {
	TargetExecutablePath string
	FixedArgs            []FixedArg
	FixedEnv             map[string]string
	Timeout              time.Duration
	MaxRetries           int // default 2 extra attempts per failed repetition
	ShowTargetOutput     bool
}

// DefaultMaxRetries is the retry budget applied when a
// TrialConfig does not set one.
const DefaultMaxRetries = 2

// DefaultTrialTimeout is the default per-trial wall-clock timeout.
const DefaultTrialTimeout = 600 * time.Second

func (c TrialConfig) retries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return DefaultMaxRetries
}

func (c TrialConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTrialTimeout
}

// RunTrial executes one row of the design: for each of the `repetitions`
// repetitions, it cycles the noise factors, assembles the invocation,
// drives the target, and parses its response. Noise factor f at repetition
// r (1-based) takes level ((r-1) mod len(f.Levels)) + 1; multiple noise
// factors cycle independently. A repetition that ultimately fails after
// the retry budget is recorded as a nil MetricReading and noted as a
// FailedTrial warning; RunTrial itself only returns a non-nil error for
// fatal, non-retryable conditions (an invalid control level, for example).
// startRep lets a resumed run skip repetitions already recorded in a
// checkpoint (a resume picks up at the first missing repetition of the first incomplete run, not the next run);
// already set to 1 for a fresh run. existing holds those already-recorded
// readings and is copied into the front of the returned slice unchanged.
func RunTrial(
	ctx context.Context,
	run int,
	controlFactors []Factor,
	controlLevelIdx map[string]int,
	noiseFactors []Factor,
	repetitions int,
	startRep int,
	existing []MetricReading,
	cfg TrialConfig,
	sink logging.Sink,
) ([]MetricReading, []taguchierr.Warning, error) {
	readings := make([]MetricReading, repetitions)
	copy(readings, existing)
	var warnings []taguchierr.Warning

	if startRep < 1 {
		startRep = 1
	}
	for rep := startRep; rep <= repetitions; rep++ {
		noiseLevelIdx := make(map[string]int, len(noiseFactors))
		for _, nf := range noiseFactors {
			noiseLevelIdx[nf.Name] = ((rep-1)%len(nf.Levels) + 1)
		}

		args, env, overrideWarnings, err := buildInvocation(controlFactors, controlLevelIdx, noiseFactors, noiseLevelIdx, cfg)
		if err != nil {
			return nil, warnings, err
		}
		warnings = append(warnings, overrideWarnings...)

		reading, repWarnings, failed := runRepetitionWithRetry(ctx, run, rep, args, env, cfg, sink)
		warnings = append(warnings, repWarnings...)
		if failed {
			warnings = append(warnings, taguchierr.NewWarning(taguchierr.ErrFailedTrial,
				fmt.Sprintf("run=%d rep=%d", run, rep), "retry budget exhausted"))
			readings[rep-1] = nil
			continue
		}
		readings[rep-1] = reading
	}
	return readings, warnings, nil
}

// buildInvocation concatenates fixed CLI args/env with per-factor bindings.
// Control factors are applied first, then noise factors; a noise factor
// whose binding target collides with a control factor's wins, and the
// collision is reported as a NoiseOverridesControl warning.
func buildInvocation(
	controlFactors []Factor,
	controlLevelIdx map[string]int,
	noiseFactors []Factor,
	noiseLevelIdx map[string]int,
	cfg TrialConfig,
) (args []string, env []string, warnings []taguchierr.Warning, err error) {
	for _, a := range cfg.FixedArgs {
		args = append(args, a.Flag)
		if a.Value != nil {
			args = append(args, *a.Value)
		}
	}
	envMap := make(map[string]string, len(cfg.FixedEnv))
	for k, v := range cfg.FixedEnv {
		envMap[k] = v
	}

	cliSeen := map[string]string{} // flag -> source ("control factor X")
	envSeen := map[string]string{}

	apply := func(f Factor, idx int, source string, allowOverride bool) error {
		lvl, lerr := LevelAt(f, idx)
		if lerr != nil {
			return lerr
		}
		cli, envVar := Bindings(f)
		if cli != "" {
			// Duplicate flags are appended in order; most CLI parsers take
			// the last occurrence, which is how a later (noise) factor
			// overrides an earlier (control) one on the same flag.
			if prior, ok := cliSeen[cli]; ok && allowOverride {
				warnings = append(warnings, taguchierr.NewWarning(taguchierr.ErrNoiseOverridesControl, cli,
					fmt.Sprintf("%s overrides %s", source, prior)))
			}
			cliSeen[cli] = source
			args = append(args, cli, lvl.Value)
		}
		if envVar != "" {
			if prior, ok := envSeen[envVar]; ok && allowOverride {
				warnings = append(warnings, taguchierr.NewWarning(taguchierr.ErrNoiseOverridesControl, envVar,
					fmt.Sprintf("%s overrides %s", source, prior)))
			}
			envSeen[envVar] = source
			envMap[envVar] = lvl.Value
		}
		return nil
	}

	for _, f := range controlFactors {
		idx, ok := controlLevelIdx[f.Name]
		if !ok {
			continue
		}
		if err := apply(f, idx, "control:"+f.Name, false); err != nil {
			return nil, nil, warnings, err
		}
	}
	for _, f := range noiseFactors {
		idx, ok := noiseLevelIdx[f.Name]
		if !ok {
			continue
		}
		if err := apply(f, idx, "noise:"+f.Name, true); err != nil {
			return nil, nil, warnings, err
		}
	}

	for k, v := range envMap {
		env = append(env, k+"="+v)
	}
	return args, env, warnings, nil
}

// runRepetitionWithRetry drives one repetition, retrying transient parse
// and timeout failures up to cfg.retries() extra attempts via a constant
// backoff (the policy calls for a small fixed attempt budget, not
// exponential growth).
func runRepetitionWithRetry(
	ctx context.Context,
	run, rep int,
	args, env []string,
	cfg TrialConfig,
	sink logging.Sink,
) (MetricReading, []taguchierr.Warning, bool) {
	var warnings []taguchierr.Warning
	var lastErr error

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(200*time.Millisecond), uint64(cfg.retries()))
	var reading MetricReading
	attempt := 0
	op := func() error {
		attempt++
		r, w, err := launchAndParse(ctx, run, rep, attempt, args, env, cfg, sink)
		warnings = append(warnings, w...)
		if err != nil {
			lastErr = err
			return err
		}
		reading = r
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		if sink != nil {
			sink.Warnw("trial repetition failed after retries", "run", run, "rep", rep, "error", lastErr)
		}
		return nil, warnings, true
	}
	return reading, warnings, false
}

func launchAndParse(
	ctx context.Context,
	run, rep, attempt int,
	args, env []string,
	cfg TrialConfig,
	sink logging.Sink,
) (MetricReading, []taguchierr.Warning, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, cfg.TargetExecutablePath, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if sink != nil {
		sink.Debugw("launching trial", "run", run, "rep", rep, "attempt", attempt, "args", args)
	}

	runErr := cmd.Run()

	if timeoutCtx.Err() == context.DeadlineExceeded {
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil, nil, fmt.Errorf("%w: run=%d rep=%d after %s", taguchierr.ErrTrialTimeout, run, rep, cfg.timeout())
	}

	if cfg.ShowTargetOutput && sink != nil {
		if stderr.Len() > 0 {
			sink.Infow("target stderr", "run", run, "rep", rep, "output", stderr.String())
		}
	}

	reading, warnings, perr := parseResponse(stdout.Bytes())
	if perr != nil {
		detail := perr.Error()
		if runErr != nil {
			detail = fmt.Sprintf("%s (exit error: %v)", detail, runErr)
		}
		return nil, warnings, fmt.Errorf("%w: run=%d rep=%d: %s", taguchierr.ErrResponseParseError, run, rep, detail)
	}
	return reading, warnings, nil
}

// parseResponse scans stdout for the last occurrence of ResultSentinel and
// decodes the JSON object on the next non-empty line. Non-finite metric
// values are dropped with a NonFiniteMetric warning; the remaining metrics
// are retained.
func parseResponse(stdout []byte) (MetricReading, []taguchierr.Warning, error) {
	lines := strings.Split(string(stdout), "\n")
	sentinelAt := -1
	for i, l := range lines {
		if strings.TrimRight(l, "\r") == ResultSentinel {
			sentinelAt = i
		}
	}
	if sentinelAt == -1 {
		return nil, nil, fmt.Errorf("sentinel %q not found in target output", ResultSentinel)
	}

	var jsonLine string
	found := false
	for i := sentinelAt + 1; i < len(lines); i++ {
		candidate := strings.TrimSpace(lines[i])
		if candidate == "" {
			continue
		}
		jsonLine = candidate
		found = true
		break
	}
	if !found {
		return nil, nil, fmt.Errorf("no non-empty line after sentinel")
	}

	var payload struct {
		Result map[string]float64 `json:"result"`
	}
	if err := json.Unmarshal([]byte(jsonLine), &payload); err != nil {
		return nil, nil, fmt.Errorf("malformed JSON response: %w", err)
	}
	if payload.Result == nil {
		return nil, nil, fmt.Errorf("response JSON missing \"result\" key")
	}

	reading := MetricReading{}
	var warnings []taguchierr.Warning
	for k, v := range payload.Result {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			warnings = append(warnings, taguchierr.NewWarning(taguchierr.ErrNonFiniteMetric, k, fmt.Sprintf("value=%v", v)))
			continue
		}
		reading[k] = v
	}
	return reading, warnings, nil
}

