package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// sourceRaw is a variance source before its error term and downstream
// statistics (MS, F, p, contribution) are known.
type sourceRaw struct {
	Name string
	DOF  int
	SS   float64
}

// buildANOVA turns raw sources plus the response's total SS/DOF into a full
// ANOVATable: error SS/DOF by subtraction, MS = SS/DOF,
// F = MS/MSerror, p from the upper-tail F distribution, and contribution %
// clamped at zero.
func buildANOVA(sources []sourceRaw, totalSS float64, totalDOF int) ANOVATable {
	sourceDOF, sourceSS := 0, 0.0
	for _, s := range sources {
		sourceDOF += s.DOF
		sourceSS += s.SS
	}
	errorDOF := totalDOF - sourceDOF
	errorSS := totalSS - sourceSS
	if errorDOF < 0 {
		errorDOF = 0
	}
	if errorSS < 0 {
		errorSS = 0
	}
	errorMS := 0.0
	if errorDOF > 0 {
		errorMS = errorSS / float64(errorDOF)
	}

	out := make([]ANOVASource, len(sources))
	for i, s := range sources {
		ms := 0.0
		if s.DOF > 0 {
			ms = s.SS / float64(s.DOF)
		}
		f, p := 0.0, 1.0
		if errorDOF > 0 && errorMS > 0 {
			f = ms / errorMS
			p = fDistUpperTail(f, s.DOF, errorDOF)
		}
		contrib := 0.0
		if totalSS > 0 {
			contrib = 100 * (s.SS - float64(s.DOF)*errorMS) / totalSS
			if contrib < 0 {
				contrib = 0
			}
		}
		out[i] = ANOVASource{Name: s.Name, DOF: s.DOF, SS: s.SS, MS: ms, F: f, P: p, ContributionPC: contrib}
	}

	return ANOVATable{
		Sources:  out,
		ErrorDOF: errorDOF,
		ErrorSS:  errorSS,
		ErrorMS:  errorMS,
		TotalDOF: totalDOF,
		TotalSS:  totalSS,
	}
}

// fDistUpperTail returns P(F(d1,d2) >= f), the p-value for an ANOVA F-test.
func fDistUpperTail(f float64, d1, d2 int) float64 {
	if d1 <= 0 || d2 <= 0 {
		return 1
	}
	dist := distuv.F{D1: float64(d1), D2: float64(d2)}
	return 1 - dist.CDF(f)
}

// fCritical returns the (1-alpha) upper-tail critical value of F(d1,d2),
// used to size the prediction confidence interval.
func fCritical(alpha float64, d1, d2 int) float64 {
	if d1 <= 0 || d2 <= 0 {
		return 0
	}
	dist := distuv.F{D1: float64(d1), D2: float64(d2)}
	return dist.Quantile(1 - alpha)
}

// PoolingThresholds controls which sources get pooled into error.
type PoolingThresholds struct {
	PValue            float64 // pool if p > PValue (default 0.25)
	ContributionPC    float64 // pool if contribution% < ContributionPC (default 5)
}

// DefaultPoolingThresholds is a common Taguchi convention
// documents as the engine's default.
func DefaultPoolingThresholds() PoolingThresholds {
	return PoolingThresholds{PValue: 0.25, ContributionPC: 5}
}

// poolANOVA builds the second, pooled ANOVA table by moving sources that
// fail the significance/contribution thresholds into error, then
// recomputing MS/F/p/contribution for the survivors against the new
// (larger) error term. If zero-error-DOF forced pooling, the least
// contributing sources are pooled one at a time until error DOF is
// positive, regardless of threshold. Returns nil if no source would be
// pooled, or if pooling would leave nothing but error.
func poolANOVA(initial ANOVATable, sources []sourceRaw, totalSS float64, totalDOF int, t PoolingThresholds, forcePool bool) (*ANOVATable, []string) {
	keep := make([]sourceRaw, 0, len(sources))
	var pooled []string

	bySig := append([]ANOVASource(nil), initial.Sources...)
	sort.SliceStable(bySig, func(i, j int) bool { return bySig[i].ContributionPC < bySig[j].ContributionPC })

	shouldPool := map[string]bool{}
	if initial.ErrorDOF <= 0 {
		// p and F are meaningless with no error term to test against; fall
		// straight through to the forced-pooling path below instead of
		// treating every source as insignificant.
	} else {
		for _, s := range initial.Sources {
			if s.P > t.PValue || s.ContributionPC < t.ContributionPC {
				shouldPool[s.Name] = true
			}
		}
	}

	if forcePool && initial.ErrorDOF <= 0 {
		need := 1 - initial.ErrorDOF
		for _, s := range bySig {
			if need <= 0 {
				break
			}
			if shouldPool[s.Name] {
				continue
			}
			shouldPool[s.Name] = true
			need -= s.DOF
		}
	}

	for _, s := range sources {
		if shouldPool[s.Name] {
			pooled = append(pooled, s.Name)
			continue
		}
		keep = append(keep, s)
	}

	if len(pooled) == 0 {
		return nil, nil
	}
	if len(keep) == 0 {
		// Pooling would leave only error: report the initial table instead.
		return nil, pooled
	}
	table := buildANOVA(keep, totalSS, totalDOF)
	return &table, pooled
}
