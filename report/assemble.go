package report

import (
	"github.com/arvidsen/taguchi-engine/stats"
	"github.com/arvidsen/taguchi-engine/taguchierr"
)

// ControlLevelsFunc returns the control-factor level assignment for a run
// index, matching taguchi.RowLevels's signature without this package
// depending on the root package directly.
type ControlLevelsFunc func(run int) (map[string]int, error)

// Assemble builds a Payload: it runs stats.Analyze once per metric spec
// over the run table, then packages the raw run data and every per-metric
// Report together.
func Assemble(
	arrayDesignation string,
	factorColumn map[string]int,
	controlFactors []stats.Factor,
	interactions []stats.InteractionSpec,
	metrics []stats.MetricSpec,
	runs map[int][]map[string]float64,
	totalRuns int,
	levelsOf ControlLevelsFunc,
	cfg stats.AnalyzeConfig,
) (Payload, error) {
	records := make([]RunRecord, 0, totalRuns)
	levelsByRun := make(map[int]map[string]int, totalRuns)
	var warnings []taguchierr.Warning

	for run := 1; run <= totalRuns; run++ {
		levels, err := levelsOf(run)
		if err != nil {
			return Payload{}, err
		}
		levelsByRun[run] = levels
		records = append(records, RunRecord{Run: run, ControlLevels: levels, Readings: runs[run]})
	}

	reports := make(map[string]stats.Report, len(metrics))
	for _, m := range metrics {
		var inputs []stats.RunInput
		for run := 1; run <= totalRuns; run++ {
			var vals []float64
			for _, reading := range runs[run] {
				if reading == nil {
					continue
				}
				if v, ok := reading[m.Name]; ok {
					vals = append(vals, v)
				}
			}
			inputs = append(inputs, stats.RunInput{Run: run, ControlLevels: levelsByRun[run], Readings: vals})
		}
		rep := stats.Analyze(m, controlFactors, interactions, inputs, cfg)
		reports[m.Name] = rep
		warnings = append(warnings, rep.Warnings...)
	}

	return Payload{
		ArrayDesignation: arrayDesignation,
		FactorColumn:     factorColumn,
		Runs:             records,
		Reports:          reports,
		Warnings:         warnings,
	}, nil
}
