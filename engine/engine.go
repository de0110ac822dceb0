// Package engine implements the Controller: the explicit
// Design -> Execute -> Analyze state machine that
// owns the Result Store for the lifetime of an experiment, checkpoints
// after every completed trial, and assembles the final report payload.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	taguchi "github.com/arvidsen/taguchi-engine"
	"github.com/arvidsen/taguchi-engine/config"
	"github.com/arvidsen/taguchi-engine/lockfile"
	"github.com/arvidsen/taguchi-engine/logging"
	"github.com/arvidsen/taguchi-engine/report"
	"github.com/arvidsen/taguchi-engine/stats"
)

// Controller drives one experiment end to end. It is stateless between
// calls; all durable state lives in the checkpoint file.
type Controller struct {
	sink logging.Sink
}

// New builds a Controller that logs to sink. A nil sink is replaced with
// a no-op sink.
func New(sink logging.Sink) *Controller {
	if sink == nil {
		sink = logging.NewNop()
	}
	return &Controller{sink: sink}
}

// design is everything the Design phase produces: the realized factor
// set, metric specs, interaction requests, and the resulting column
// assignment.
type design struct {
	controlFactors []taguchi.Factor
	noiseFactors   []taguchi.Factor
	metrics        []config.MetricSpec
	interactions   []taguchi.InteractionRequest
	assignment     taguchi.Assignment
	trialCfg       taguchi.TrialConfig
	maxParallel    int
}

func buildDesign(cfg config.Config) (design, error) {
	var d design
	for _, fs := range cfg.ControlFactors {
		f, err := fs.BuildFactor(taguchi.Control)
		if err != nil {
			return d, err
		}
		d.controlFactors = append(d.controlFactors, f)
	}
	for _, fs := range cfg.NoiseFactors {
		f, err := fs.BuildFactor(taguchi.Noise)
		if err != nil {
			return d, err
		}
		d.noiseFactors = append(d.noiseFactors, f)
	}
	d.metrics = cfg.MetricsToAnalyze
	for _, is := range cfg.Interactions {
		d.interactions = append(d.interactions, is.BuildInteractionRequest())
	}

	assignment, err := taguchi.Assign(d.controlFactors, d.interactions)
	if err != nil {
		return d, err
	}
	d.assignment = assignment

	fixedArgs, err := cfg.FixedArgs()
	if err != nil {
		return d, err
	}
	d.trialCfg = taguchi.TrialConfig{
		TargetExecutablePath: cfg.TargetExecutablePath,
		FixedArgs:            fixedArgs,
		FixedEnv:             cfg.FixedEnvironmentVars,
		Timeout:              time.Duration(cfg.TrialTimeout),
		MaxRetries:           cfg.MaxRetries,
		ShowTargetOutput:     cfg.ShowTargetOutput,
	}
	d.maxParallel = cfg.MaxParallelTrials
	return d, nil
}

func snapshotConfig(cfg config.Config, d design) (taguchi.ConfigSnapshot, error) {
	metricSnaps := make([]taguchi.MetricSpecSnapshot, len(d.metrics))
	for i, m := range d.metrics {
		metricSnaps[i] = taguchi.MetricSpecSnapshot{Name: m.Name, Criterion: m.Criterion, Target: m.Target}
	}
	fixedArgs, err := cfg.FixedArgs()
	if err != nil {
		return taguchi.ConfigSnapshot{}, err
	}
	return taguchi.ConfigSnapshot{
		ControlFactors:       d.controlFactors,
		NoiseFactors:         d.noiseFactors,
		Metrics:              metricSnaps,
		Interactions:         d.interactions,
		Repetitions:          cfg.Repetitions,
		TargetExecutablePath: cfg.TargetExecutablePath,
		FixedArgs:            fixedArgs,
		FixedEnv:             cfg.FixedEnvironmentVars,
		TrialTimeoutSeconds:  time.Duration(cfg.TrialTimeout).Seconds(),
		MaxRetries:           cfg.MaxRetries,
		ShowTargetOutput:     cfg.ShowTargetOutput,
		OutputDirectory:      cfg.OutputDirectory,
		MaxParallelTrials:    cfg.MaxParallelTrials,
	}, nil
}

// Start designs a fresh experiment from cfg, executes every run, and
// returns the assembled report payload.
func (c *Controller) Start(ctx context.Context, cfg config.Config) (*report.Payload, error) {
	d, err := buildDesign(cfg)
	if err != nil {
		return nil, err
	}

	lock, err := lockfile.Acquire(cfg.OutputDirectory)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	store := taguchi.NewResultStore(cfg.Repetitions)
	checkpointer := taguchi.NewCheckpointer(cfg.OutputDirectory)

	cfgSnapshot, err := snapshotConfig(cfg, d)
	if err != nil {
		return nil, err
	}
	doc := taguchi.CheckpointDoc{
		EngineVersion: taguchi.EngineVersion,
		Config:        cfgSnapshot,
		Assignment:    taguchi.SnapshotAssignment(d.assignment),
		Runs:          map[int][]taguchi.MetricReading{},
	}

	return c.execute(ctx, d, cfg.Repetitions, store, checkpointer, doc)
}

// Resume reloads a checkpoint from statePath, rebuilds the design that
// produced it, and continues execution at the first incomplete
// repetition of the first incomplete run.
func (c *Controller) Resume(ctx context.Context, statePath string) (*report.Payload, error) {
	checkpointer := taguchi.OpenCheckpointer(statePath)
	doc, err := checkpointer.Load()
	if err != nil {
		return nil, err
	}

	d, err := designFromSnapshot(doc)
	if err != nil {
		return nil, err
	}

	lock, err := lockfile.Acquire(doc.Config.OutputDirectory)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	repetitions := doc.Config.Repetitions
	store := taguchi.NewResultStore(repetitions)
	for run, readings := range doc.Runs {
		store.SetReadings(run, readings)
	}

	return c.execute(ctx, d, repetitions, store, checkpointer, doc)
}

// AnalyzeOnly reloads a checkpoint from statePath and re-runs only the
// Analyze phase over whatever runs are already recorded, without
// executing any further trials.
func (c *Controller) AnalyzeOnly(statePath string) (*report.Payload, error) {
	checkpointer := taguchi.OpenCheckpointer(statePath)
	doc, err := checkpointer.Load()
	if err != nil {
		return nil, err
	}
	d, err := designFromSnapshot(doc)
	if err != nil {
		return nil, err
	}
	return assemble(d, doc.Runs, doc.Config.Repetitions)
}

func designFromSnapshot(doc taguchi.CheckpointDoc) (design, error) {
	var d design
	d.controlFactors = doc.Config.ControlFactors
	d.noiseFactors = doc.Config.NoiseFactors
	d.interactions = doc.Config.Interactions

	metrics := make([]config.MetricSpec, len(doc.Config.Metrics))
	for i, m := range doc.Config.Metrics {
		metrics[i] = config.MetricSpec{Name: m.Name, Criterion: m.Criterion, Target: m.Target}
	}
	d.metrics = metrics

	assignment, err := taguchi.Assign(d.controlFactors, d.interactions)
	if err != nil {
		return d, err
	}
	d.assignment = assignment

	d.trialCfg = taguchi.TrialConfig{
		TargetExecutablePath: doc.Config.TargetExecutablePath,
		FixedArgs:            doc.Config.FixedArgs,
		FixedEnv:             doc.Config.FixedEnv,
		Timeout:              time.Duration(doc.Config.TrialTimeoutSeconds * float64(time.Second)),
		MaxRetries:           doc.Config.MaxRetries,
		ShowTargetOutput:     doc.Config.ShowTargetOutput,
	}
	d.maxParallel = doc.Config.MaxParallelTrials
	return d, nil
}

// execute runs every incomplete run to completion, checkpointing after
// each, then assembles the report. With d.maxParallel <= 1 (the default)
// runs execute one at a time on the calling goroutine. With
// d.maxParallel > 1, independent runs execute concurrently (bounded by
// errgroup.SetLimit) while a single dedicated goroutine serializes every
// checkpoint write, so resume's on-disk ordering guarantee holds
// regardless of trial-level parallelism. Noise-cycling order within a run
// is unaffected either way: RunTrial always walks a run's own repetitions
// sequentially.
func (c *Controller) execute(
	ctx context.Context,
	d design,
	repetitions int,
	store *taguchi.ResultStore,
	checkpointer *taguchi.Checkpointer,
	doc taguchi.CheckpointDoc,
) (*report.Payload, error) {
	totalRuns := d.assignment.Array.N()
	pending := taguchi.IncompleteRuns(doc, totalRuns)

	// Snapshot each pending run's starting point once, up front and
	// single-threaded: the parallel branch below must never let a worker
	// read doc.Runs concurrently with the writer goroutine's writes to it.
	startRep := make(map[int]int, len(pending))
	existing := make(map[int][]taguchi.MetricReading, len(pending))
	for _, run := range pending {
		startRep[run] = taguchi.CompletedRepetitions(doc, run) + 1
		existing[run] = doc.Runs[run]
	}

	if d.maxParallel <= 1 {
		for _, run := range pending {
			readings, err := c.runOne(ctx, d, run, repetitions, startRep[run], existing[run])
			if err != nil {
				return nil, err
			}
			store.SetReadings(run, readings)
			doc.Runs[run] = readings
			doc.Counter++
			if err := checkpointer.Save(doc); err != nil {
				return nil, fmt.Errorf("engine: checkpoint after run %d: %w", run, err)
			}
		}
		return assemble(d, store.Snapshot(), repetitions)
	}

	type completedRun struct {
		run      int
		readings []taguchi.MetricReading
	}
	results := make(chan completedRun, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxParallel)
	for _, run := range pending {
		run := run
		g.Go(func() error {
			readings, err := c.runOne(gctx, d, run, repetitions, startRep[run], existing[run])
			if err != nil {
				return err
			}
			results <- completedRun{run: run, readings: readings}
			return nil
		})
	}

	writeErrCh := make(chan error, 1)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		remaining := len(pending)
		for remaining > 0 {
			cr, ok := <-results
			if !ok {
				// A worker failed; no further runs will complete.
				return
			}
			remaining--
			store.SetReadings(cr.run, cr.readings)
			doc.Runs[cr.run] = cr.readings
			doc.Counter++
			if err := checkpointer.Save(doc); err != nil {
				writeErrCh <- fmt.Errorf("engine: checkpoint after run %d: %w", cr.run, err)
				return
			}
		}
	}()

	runErr := g.Wait()
	close(results)
	<-writerDone

	select {
	case err := <-writeErrCh:
		return nil, err
	default:
	}
	if runErr != nil {
		return nil, runErr
	}

	return assemble(d, store.Snapshot(), repetitions)
}

// runOne executes every remaining repetition of a single run, starting at
// startRep with existing already carrying any repetitions a prior resume
// recorded.
func (c *Controller) runOne(ctx context.Context, d design, run, repetitions, startRep int, existing []taguchi.MetricReading) ([]taguchi.MetricReading, error) {
	controlLevelIdx, err := taguchi.RowLevels(d.assignment, d.controlFactors, run)
	if err != nil {
		return nil, err
	}

	c.sink.Infow("starting run", "run", run, "startRep", startRep)

	readings, warnings, err := taguchi.RunTrial(
		ctx, run, d.controlFactors, controlLevelIdx, d.noiseFactors,
		repetitions, startRep, existing, d.trialCfg, c.sink,
	)
	if err != nil {
		return nil, fmt.Errorf("engine: run %d: %w", run, err)
	}
	for _, w := range warnings {
		c.sink.Warnw("trial warning", "run", run, "warning", w.Error())
	}
	return readings, nil
}

func assemble(d design, runs map[int][]taguchi.MetricReading, repetitions int) (*report.Payload, error) {
	controlFactorStats := make([]stats.Factor, len(d.controlFactors))
	for i, f := range d.controlFactors {
		controlFactorStats[i] = stats.Factor{Name: f.Name, Levels: f.LevelCount()}
	}

	interactionSpecs := make([]stats.InteractionSpec, len(d.interactions))
	for i, ir := range d.interactions {
		interactionSpecs[i] = stats.InteractionSpec{A: ir.A, B: ir.B}
	}

	metricSpecs := make([]stats.MetricSpec, len(d.metrics))
	for i, m := range d.metrics {
		crit, err := m.BuildCriterion()
		if err != nil {
			return nil, err
		}
		metricSpecs[i] = stats.MetricSpec{Name: m.Name, Criterion: crit}
	}

	runsRaw := make(map[int][]map[string]float64, len(runs))
	for run, readings := range runs {
		converted := make([]map[string]float64, len(readings))
		for i, r := range readings {
			if r == nil {
				continue
			}
			converted[i] = map[string]float64(r)
		}
		runsRaw[run] = converted
	}

	totalRuns := d.assignment.Array.N()
	levelsOf := func(run int) (map[string]int, error) {
		return taguchi.RowLevels(d.assignment, d.controlFactors, run)
	}

	payload, err := report.Assemble(
		d.assignment.Array.Designation,
		d.assignment.FactorColumn,
		controlFactorStats,
		interactionSpecs,
		metricSpecs,
		runsRaw,
		totalRuns,
		levelsOf,
		stats.AnalyzeConfig{Repetitions: repetitions},
	)
	if err != nil {
		return nil, err
	}
	return &payload, nil
}
