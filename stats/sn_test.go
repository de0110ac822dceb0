package stats

import (
	"math"
	"testing"
)

const tolerance = 1e-4

func almostEqual(a, b, tol float64) bool {
	if math.IsInf(a, 1) && math.IsInf(b, 1) {
		return true
	}
	return math.Abs(a-b) < tol
}

func TestComputeRunSNLargerBetter(t *testing.T) {
	readings := []float64{2, 4, 6}
	msd := (1.0/4.0 + 1.0/16.0 + 1.0/36.0) / 3.0
	want := -10 * math.Log10(msd)

	rsn, warn := computeRunSN(1, readings, NewLargerBetter())
	if warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}
	if !almostEqual(rsn.Eta, want, tolerance) {
		t.Errorf("Eta = %f, want %f", rsn.Eta, want)
	}
}

func TestComputeRunSNSmallerBetter(t *testing.T) {
	readings := []float64{1, 2, 3}
	want := -10 * math.Log10(14.0/3.0)

	rsn, warn := computeRunSN(1, readings, NewSmallerBetter())
	if warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}
	if !almostEqual(rsn.Eta, want, tolerance) {
		t.Errorf("Eta = %f, want %f", rsn.Eta, want)
	}
}

func TestComputeRunSNNominal(t *testing.T) {
	readings := []float64{9, 10, 11}
	rsn, warn := computeRunSN(1, readings, NewNominal(10))
	if warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}
	if rsn.Dropped {
		t.Fatalf("run unexpectedly dropped")
	}
	if rsn.RawMean != 10 {
		t.Errorf("RawMean = %f, want 10", rsn.RawMean)
	}
}

func TestComputeRunSNNominalZeroVarianceDropped(t *testing.T) {
	readings := []float64{5, 5, 5}
	rsn, warn := computeRunSN(1, readings, NewNominal(5))
	if warn == nil {
		t.Fatalf("expected SnUndefined warning for zero variance")
	}
	if !rsn.Dropped {
		t.Errorf("expected run to be dropped")
	}
}

func TestComputeRunSNLargerBetterZeroReadingUndefined(t *testing.T) {
	readings := []float64{0, 1, 2}
	rsn, warn := computeRunSN(1, readings, NewLargerBetter())
	if warn == nil {
		t.Fatalf("expected SnUndefined warning for zero reading")
	}
	if !rsn.Dropped {
		t.Errorf("expected run to be dropped")
	}
}

func TestComputeRunSNSingleRepetitionNominalFallback(t *testing.T) {
	rsn, warn := computeRunSN(1, []float64{7}, NewNominal(5))
	if warn == nil {
		t.Fatalf("expected SingleRepetitionNominal warning")
	}
	want := -10 * math.Log10(4)
	if !almostEqual(rsn.Eta, want, tolerance) {
		t.Errorf("Eta = %f, want %f", rsn.Eta, want)
	}
}

func TestComputeRunSNEmptyReadingsDropped(t *testing.T) {
	rsn, warn := computeRunSN(1, nil, NewSmallerBetter())
	if warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}
	if !rsn.Dropped {
		t.Errorf("expected empty readings to drop the run")
	}
}
