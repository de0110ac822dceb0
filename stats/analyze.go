package stats

import (
	"fmt"

	"github.com/arvidsen/taguchi-engine/taguchierr"
)

// RunInput is one completed run's raw data, shaped for the statistics
// engine's consumption: its control-factor level assignment and the
// finite metric readings recorded for the metric under analysis. A
// run with zero readings (every repetition failed, or every reading for
// this metric was non-finite) is dropped from analysis.
type RunInput struct {
	Run           int
	ControlLevels map[string]int
	Readings      []float64
}

// AnalyzeConfig parameterizes the pooling policy and the confidence level
// used for prediction.
type AnalyzeConfig struct {
	Alpha       float64 // confidence significance level, default 0.05
	Pooling     PoolingThresholds
	ForcePool   bool // true whenever the caller expects zero error DOF is possible
	Repetitions int  // repetitions per run (r), used in the prediction interval's 1/r term; default 1
}

func (c AnalyzeConfig) alpha() float64 {
	if c.Alpha > 0 {
		return c.Alpha
	}
	return 0.05
}

func (c AnalyzeConfig) repetitions() int {
	if c.Repetitions > 0 {
		return c.Repetitions
	}
	return 1
}

func (c AnalyzeConfig) pooling() PoolingThresholds {
	if c.Pooling.PValue == 0 && c.Pooling.ContributionPC == 0 {
		return DefaultPoolingThresholds()
	}
	return c.Pooling
}

// Analyze runs the full Statistics Engine pipeline for one metric over one
// completed (or partially completed) experiment: S/N transform, main and
// interaction effects, initial and pooled ANOVA, optimal-level selection,
// and prediction with a confidence interval.
func Analyze(metric MetricSpec, controlFactors []Factor, interactions []InteractionSpec, runs []RunInput, cfg AnalyzeConfig) Report {
	var warnings []taguchierr.Warning
	var obs []runObservation

	for _, ri := range runs {
		rsn, warn := computeRunSN(ri.Run, ri.Readings, metric.Criterion)
		if warn != nil {
			warnings = append(warnings, *warn)
		}
		if rsn.Dropped {
			continue
		}
		obs = append(obs, runObservation{eta: rsn.Eta, raw: rsn.RawMean, levels: ri.ControlLevels})
	}

	n := len(obs)
	grandMean := 0.0
	rawGrandMean := 0.0
	for _, o := range obs {
		grandMean += o.eta
		rawGrandMean += o.raw
	}
	if n > 0 {
		grandMean /= float64(n)
		rawGrandMean /= float64(n)
	}
	totalSS := 0.0
	for _, o := range obs {
		d := o.eta - grandMean
		totalSS += d * d
	}
	totalDOF := n - 1
	if totalDOF < 0 {
		totalDOF = 0
	}

	mainEffects := make(map[string]MainEffectTable, len(controlFactors))
	ssByFactor := make(map[string]float64, len(controlFactors))
	var sources []sourceRaw
	for _, f := range controlFactors {
		table, src := mainEffect(f, obs, grandMean)
		mainEffects[f.Name] = table
		ssByFactor[f.Name] = src.SS
		sources = append(sources, src)
	}

	factorByName := make(map[string]Factor, len(controlFactors))
	for _, f := range controlFactors {
		factorByName[f.Name] = f
	}

	interactionTables := make(map[string]InteractionEffectTable, len(interactions))
	for _, is := range interactions {
		a, okA := factorByName[is.A]
		b, okB := factorByName[is.B]
		if !okA || !okB {
			continue
		}
		table, src := interactionEffect(a, b, obs, grandMean, ssByFactor[is.A], ssByFactor[is.B])
		key := interactionKey(is.A, is.B)
		interactionTables[key] = table
		sources = append(sources, src)
	}

	initial := buildANOVA(sources, totalSS, totalDOF)
	forcePool := cfg.ForcePool || initial.ErrorDOF <= 0
	pooled, pooledNames := poolANOVA(initial, sources, totalSS, totalDOF, cfg.pooling(), forcePool)

	pooledSet := map[string]bool{}
	for _, name := range pooledNames {
		pooledSet[name] = true
	}
	if pooled != nil {
		for i := range initial.Sources {
			if pooledSet[initial.Sources[i].Name] {
				initial.Sources[i].Pooled = true
			}
		}
	}

	finalTable := initial
	if pooled != nil {
		finalTable = *pooled
	}

	retained := map[string]bool{}
	retainedDOF := 0
	for _, f := range controlFactors {
		if !pooledSet[f.Name] {
			retained[f.Name] = true
			retainedDOF += f.Levels - 1
		}
	}

	optimal := optimalLevels(mainEffects)
	etaPred := predictEta(grandMean, mainEffects, optimal, retained)
	rawPred := predictRaw(rawGrandMean, mainEffects, optimal, retained)
	neff := nEff(n, retainedDOF)
	lower, upper, halfWidth := predictionInterval(etaPred, finalTable.ErrorMS, finalTable.ErrorDOF, neff, cfg.repetitions(), cfg.alpha())

	approximate := false
	for _, is := range interactions {
		if !pooledSet[interactionKey(is.A, is.B)] {
			approximate = true
			break
		}
	}

	pred := Prediction{
		Eta:            etaPred,
		EtaLower:       lower,
		EtaUpper:       upper,
		Raw:            rawPred,
		RawLower:       inverseTransform(lower, metric.Criterion),
		RawUpper:       inverseTransform(upper, metric.Criterion),
		RawApproximate: approximate,
		NEff:           neff,
		HalfWidth:      halfWidth,
	}

	var effects []EffectEstimate
	for _, f := range controlFactors {
		effects = append(effects, effectEstimates(mainEffects[f.Name], grandMean)...)
	}

	return Report{
		Metric:        metric.Name,
		Criterion:     metric.Criterion,
		OptimalLevel:  optimal,
		Prediction:    pred,
		Initial:       initial,
		Pooled:        pooled,
		PooledSources: pooledNames,
		MainEffects:   mainEffects,
		Interactions:  interactionTables,
		Effects:       effects,
		Warnings:      warnings,
	}
}

func interactionKey(a, b string) string { return fmt.Sprintf("%s\x00%s", a, b) }
