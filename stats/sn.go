package stats

import (
	"math"
	"strconv"

	"github.com/arvidsen/taguchi-engine/taguchierr"
)

// computeRunSN computes one run's S/N ratio from its finite metric
// readings under the given criterion. NaN/missing
// entries are assumed already filtered out of readings by the caller.
func computeRunSN(run int, readings []float64, crit Criterion) (RunSN, *taguchierr.Warning) {
	r := len(readings)
	if r == 0 {
		return RunSN{Run: run, Dropped: true}, nil
	}

	mean := 0.0
	for _, y := range readings {
		mean += y
	}
	mean /= float64(r)

	switch crit.Kind() {
	case LargerBetter:
		sum := 0.0
		for _, y := range readings {
			if y == 0 {
				w := taguchierr.NewWarning(taguchierr.ErrSnUndefined, runLabel(run), "LargerBetter reading is zero")
				return RunSN{Run: run, Dropped: true}, &w
			}
			sum += 1 / (y * y)
		}
		eta := -10 * math.Log10(sum/float64(r))
		return RunSN{Run: run, Eta: eta, RawMean: mean}, nil

	case SmallerBetter:
		sum := 0.0
		for _, y := range readings {
			sum += y * y
		}
		msd := sum / float64(r)
		eta := -10 * math.Log10(msd)
		return RunSN{Run: run, Eta: eta, RawMean: mean}, nil

	default: // Nominal
		t := crit.Target()
		if r == 1 {
			d := readings[0] - t
			eta := -10 * math.Log10(d*d)
			w := taguchierr.NewWarning(taguchierr.ErrSingleRepetitionNominal, runLabel(run), "")
			return RunSN{Run: run, Eta: eta, RawMean: mean}, &w
		}
		variance := sampleVariance(readings, mean)
		if variance == 0 {
			w := taguchierr.NewWarning(taguchierr.ErrSnUndefined, runLabel(run), "Nominal sample variance is zero")
			return RunSN{Run: run, Dropped: true}, &w
		}
		eta := 10 * math.Log10((mean*mean)/variance)
		return RunSN{Run: run, Eta: eta, RawMean: mean}, nil
	}
}

func sampleVariance(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss / float64(len(xs)-1)
}

// inverseTransform maps an eta value back to the raw scale for the given
// criterion. This is only approximate for prediction bounds, since
// It assumes the within-run variability implied by eta is representative
// at the predicted configuration.
func inverseTransform(eta float64, crit Criterion) float64 {
	switch crit.Kind() {
	case LargerBetter:
		msd := math.Pow(10, -eta/10)
		if msd <= 0 {
			return math.Inf(1)
		}
		return 1 / math.Sqrt(msd)
	case SmallerBetter:
		msd := math.Pow(10, -eta/10)
		return math.Sqrt(msd)
	default: // Nominal: recover |y-t| from eta assuming s ~ 0, return target-offset estimate
		d := math.Sqrt(math.Pow(10, -eta/10))
		return crit.Target() + d
	}
}

func runLabel(run int) string { return "run=" + strconv.Itoa(run) }
