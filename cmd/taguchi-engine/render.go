package main

import (
	"fmt"
	"sort"

	"github.com/arvidsen/taguchi-engine/report"
	"github.com/arvidsen/taguchi-engine/stats"
)

func printPayload(p *report.Payload) {
	fmt.Printf("array: %s\n", p.ArrayDesignation)
	names := p.MetricNames()
	sort.Strings(names)
	for _, name := range names {
		r := p.Reports[name]
		fmt.Printf("\nmetric %s (%s)\n", r.Metric, r.Criterion)
		fmt.Printf("  optimal level: %v\n", r.OptimalLevel)
		fmt.Printf("  predicted eta: %.4f [%.4f, %.4f]\n", r.Prediction.Eta, r.Prediction.EtaLower, r.Prediction.EtaUpper)
		fmt.Printf("  predicted raw: %.4f [%.4f, %.4f]%s\n", r.Prediction.Raw, r.Prediction.RawLower, r.Prediction.RawUpper, approximateSuffix(r.Prediction.RawApproximate))
		fmt.Printf("  n_eff: %.3f\n", r.Prediction.NEff)
		printANOVA("initial ANOVA", r.Initial)
		if r.Pooled != nil {
			printANOVA("pooled ANOVA", *r.Pooled)
			fmt.Printf("  pooled sources: %v\n", r.PooledSources)
		}
		for _, w := range r.Warnings {
			fmt.Printf("  warning: %s\n", w.Error())
		}
	}
	for _, w := range p.Warnings {
		fmt.Printf("warning: %s\n", w.Error())
	}
}

func approximateSuffix(approx bool) string {
	if approx {
		return " (approximate: interaction contributes)"
	}
	return ""
}

func printANOVA(label string, t stats.ANOVATable) {
	fmt.Printf("  %s (totalDOF=%d totalSS=%.4f):\n", label, t.TotalDOF, t.TotalSS)
	for _, s := range t.Sources {
		pooledMark := ""
		if s.Pooled {
			pooledMark = " [pooled]"
		}
		fmt.Printf("    %-16s DOF=%-3d SS=%-10.4f MS=%-10.4f F=%-8.4f p=%-8.4f contrib=%5.1f%%%s\n",
			s.Name, s.DOF, s.SS, s.MS, s.F, s.P, s.ContributionPC, pooledMark)
	}
	fmt.Printf("    %-16s DOF=%-3d SS=%-10.4f MS=%-10.4f\n", "error", t.ErrorDOF, t.ErrorSS, t.ErrorMS)
}
