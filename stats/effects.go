package stats

// Factor describes a control factor purely in the terms the statistics
// engine needs: its name and how many levels it has. It intentionally
// carries none of the root package's binding/role machinery, keeping this
// package a standalone, reusable numerical core.
type Factor struct {
	Name   string
	Levels int
}

// InteractionSpec names a reserved two-factor interaction to analyze.
type InteractionSpec struct {
	A, B string
}

// runObservation is one kept run's eta/raw mean plus the control-factor
// levels it was run at.
type runObservation struct {
	eta    float64
	raw    float64
	levels map[string]int
}

// mainEffect computes the S/N and raw-scale average at each level of f
// for each level, along with the sum of squares that level
// assignment explains.
func mainEffect(f Factor, obs []runObservation, grandMean float64) (MainEffectTable, sourceRaw) {
	sumEta := make([]float64, f.Levels)
	sumRaw := make([]float64, f.Levels)
	count := make([]int, f.Levels)

	for _, o := range obs {
		lvl, ok := o.levels[f.Name]
		if !ok || lvl < 1 || lvl > f.Levels {
			continue
		}
		sumEta[lvl-1] += o.eta
		sumRaw[lvl-1] += o.raw
		count[lvl-1]++
	}

	snByLevel := make([]float64, f.Levels)
	rawByLevel := make([]float64, f.Levels)
	ss := 0.0
	for l := 0; l < f.Levels; l++ {
		if count[l] > 0 {
			snByLevel[l] = sumEta[l] / float64(count[l])
			rawByLevel[l] = sumRaw[l] / float64(count[l])
			d := snByLevel[l] - grandMean
			ss += float64(count[l]) * d * d
		}
	}

	table := MainEffectTable{Factor: f.Name, SNByLevel: snByLevel, RawByLevel: rawByLevel}
	src := sourceRaw{Name: f.Name, DOF: f.Levels - 1, SS: ss}
	return table, src
}

// interactionEffect computes the S/N cell means for the (a,b) grid of two
// factors and the interaction sum of squares, net of
// each factor's own main-effect contribution.
func interactionEffect(a, b Factor, obs []runObservation, grandMean, ssA, ssB float64) (InteractionEffectTable, sourceRaw) {
	sum := make([][]float64, a.Levels)
	count := make([][]int, a.Levels)
	for i := range sum {
		sum[i] = make([]float64, b.Levels)
		count[i] = make([]int, b.Levels)
	}

	for _, o := range obs {
		la, ok1 := o.levels[a.Name]
		lb, ok2 := o.levels[b.Name]
		if !ok1 || !ok2 || la < 1 || la > a.Levels || lb < 1 || lb > b.Levels {
			continue
		}
		sum[la-1][lb-1] += o.eta
		count[la-1][lb-1]++
	}

	cell := make([][]float64, a.Levels)
	ssCells := 0.0
	for i := range cell {
		cell[i] = make([]float64, b.Levels)
		for j := range cell[i] {
			if count[i][j] > 0 {
				cell[i][j] = sum[i][j] / float64(count[i][j])
				d := cell[i][j] - grandMean
				ssCells += float64(count[i][j]) * d * d
			}
		}
	}

	ssInteraction := ssCells - ssA - ssB
	if ssInteraction < 0 {
		ssInteraction = 0
	}
	dof := (a.Levels - 1) * (b.Levels - 1)

	table := InteractionEffectTable{FactorA: a.Name, FactorB: b.Name, Cell: cell}
	src := sourceRaw{Name: a.Name + "x" + b.Name, DOF: dof, SS: ssInteraction}
	return table, src
}

// effectEstimates flattens a MainEffectTable into one EffectEstimate per
// level, signed relative to grandMean.
func effectEstimates(t MainEffectTable, grandMean float64) []EffectEstimate {
	out := make([]EffectEstimate, len(t.SNByLevel))
	for l, v := range t.SNByLevel {
		signed := v - grandMean
		mag := signed
		if mag < 0 {
			mag = -mag
		}
		out[l] = EffectEstimate{Factor: t.Factor, Level: l + 1, Signed: signed, Magnitude: mag}
	}
	return out
}
