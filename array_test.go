package taguchi

import "testing"

func TestCatalogDimensions(t *testing.T) {
	wantRows := map[string]int{
		"L4(2^3)":       4,
		"L8(2^7)":       8,
		"L9(3^4)":       9,
		"L12(2^11)":     12,
		"L16(2^15)":     16,
		"L18(2^1 3^7)":  18,
		"L27(3^13)":     27,
		"L36(2^3 3^4)":  36,
	}
	cat := Catalog()
	for name, rows := range wantRows {
		arr, ok := cat[name]
		if !ok {
			t.Errorf("catalog missing %q", name)
			continue
		}
		if arr.N() != rows {
			t.Errorf("%s: N() = %d, want %d", name, arr.N(), rows)
		}
	}
}

func TestCatalogColumnConsistency(t *testing.T) {
	for name, arr := range Catalog() {
		if len(arr.Rows) == 0 {
			t.Errorf("%s: no rows", name)
			continue
		}
		want := len(arr.Rows[0])
		if want != arr.C() {
			t.Errorf("%s: C() = %d, want %d", name, arr.C(), want)
		}
		for i, row := range arr.Rows {
			if len(row) != want {
				t.Errorf("%s: row %d has %d columns, want %d", name, i, len(row), want)
			}
		}
	}
}

func TestCatalogBalance(t *testing.T) {
	for name, arr := range Catalog() {
		for col := 0; col < arr.C(); col++ {
			counts := map[int]int{}
			for _, row := range arr.Rows {
				counts[row[col]]++
			}
			var want int
			first := true
			for _, c := range counts {
				if first {
					want, first = c, false
					continue
				}
				if c != want {
					t.Errorf("%s: column %d unbalanced: counts=%v", name, col, counts)
				}
			}
		}
	}
}

func TestCatalogLevelBounds(t *testing.T) {
	for name, arr := range Catalog() {
		for i, row := range arr.Rows {
			for j, v := range row {
				want := arr.LevelCounts[j]
				if v < 1 || v > want {
					t.Errorf("%s[%d][%d] = %d, out of range 1..%d", name, i, j, v, want)
				}
			}
		}
	}
}

// TestCatalogPairwiseBalance checks the defining strength-2 orthogonal
// array property for every catalog entry: for any two columns, every
// (levelA, levelB) combination occurs the same number of times across all
// rows. TestCatalogBalance above only checks single-column balance; a
// table can pass that and still fail pairwise balance.
func TestCatalogPairwiseBalance(t *testing.T) {
	for name, arr := range Catalog() {
		c := arr.C()
		for i := 0; i < c; i++ {
			for j := i + 1; j < c; j++ {
				counts := map[[2]int]int{}
				for _, row := range arr.Rows {
					counts[[2]int{row[i], row[j]}]++
				}
				var want int
				first := true
				for _, cnt := range counts {
					if first {
						want, first = cnt, false
						continue
					}
					if cnt != want {
						t.Errorf("%s: columns %d,%d unbalanced: counts=%v", name, i, j, counts)
					}
				}
				wantCombos := arr.LevelCounts[i] * arr.LevelCounts[j]
				if len(counts) != wantCombos {
					t.Errorf("%s: columns %d,%d saw %d distinct level combinations, want %d (every pair of levels must occur)", name, i, j, len(counts), wantCombos)
				}
			}
		}
	}
}

func TestTwoLevelInteractionTableXORConsistency(t *testing.T) {
	arr := Catalog()["L8(2^7)"]
	for pair, col := range arr.Interactions {
		if pair.C1^pair.C2 != col {
			t.Errorf("interaction column for (%d,%d) = %d, want XOR = %d", pair.C1, pair.C2, col, pair.C1^pair.C2)
		}
	}
}

func TestSelectPicksSmallestSuitableArray(t *testing.T) {
	arr, err := Select([]int{2, 2, 2}, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if arr.Designation != "L4(2^3)" {
		t.Errorf("Select([2,2,2]) = %s, want L4(2^3)", arr.Designation)
	}
}

func TestSelectRequiresInteractionCapableArray(t *testing.T) {
	arr, err := Select([]int{2, 2, 2}, [][2]int{{2, 2}})
	if err != nil {
		t.Fatalf("Select with interaction: %v", err)
	}
	if len(arr.Interactions) == 0 {
		t.Errorf("Select should have picked an array with an interaction table, got %s", arr.Designation)
	}
}

func TestSelectFailsWhenNoArrayFits(t *testing.T) {
	levels := make([]int, 40)
	for i := range levels {
		levels[i] = 2
	}
	if _, err := Select(levels, nil); err == nil {
		t.Errorf("expected ErrNoSuitableArray for 40 two-level factors")
	}
}
