package taguchi

import (
	"fmt"
	"sort"

	"github.com/arvidsen/taguchi-engine/taguchierr"
)

// ColPair is an unordered pair of 1-based column indices, used as an
// Array's interaction-table key.
type ColPair struct{ C1, C2 int }

func newColPair(a, b int) ColPair {
	if b < a {
		a, b = b, a
	}
	return ColPair{C1: a, C2: b}
}

// Array is a standard orthogonal array: its designation, its N×C matrix of
// 1-based level indices, the level count carried by each column, and an
// interaction table mapping a pair of columns to the column that expresses
// their interaction. Arrays built over more than two levels carry no
// interaction table here (see DESIGN.md for the scope decision); such
// arrays are still fully usable for main-effect estimation.
type Array struct {
	Designation  string
	Rows         [][]int
	LevelCounts  []int // per column, 1-based column index i has LevelCounts[i-1]
	Interactions map[ColPair]int
}

// N returns the array's row count.
func (a Array) N() int { return len(a.Rows) }

// C returns the array's column count.
func (a Array) C() int { return len(a.LevelCounts) }

// DOF returns the array's usable degrees of freedom, N-1.
func (a Array) DOF() int { return a.N() - 1 }

// ColumnsWithLevels returns the 1-based column indices whose level count
// equals l, in ascending order.
func (a Array) ColumnsWithLevels(l int) []int {
	var cols []int
	for i, lc := range a.LevelCounts {
		if lc == l {
			cols = append(cols, i+1)
		}
	}
	return cols
}

// InteractionColumn returns the column (1-based) expressing the interaction
// between columns c1 and c2, and whether one is defined.
func (a Array) InteractionColumn(c1, c2 int) (int, bool) {
	col, ok := a.Interactions[newColPair(c1, c2)]
	return col, ok
}

// catalog is the fixed library of standard arrays, built once at package
// init by the generators in array_data.go.
var catalog = buildCatalog()

// Catalog returns the full standard-array catalog keyed by designation, for
// callers that want to inspect or choose an array directly.
func Catalog() map[string]Array {
	out := make(map[string]Array, len(catalog))
	for k, v := range catalog {
		out[k] = v
	}
	return out
}

// factorDOF is the classic Taguchi degrees-of-freedom count for a factor
// with l levels: l-1.
func factorDOF(levels int) int { return levels - 1 }

// interactionDOF is the DOF an interaction between an l1-level and an
// l2-level factor consumes: (l1-1)(l2-1).
func interactionDOF(l1, l2 int) int { return (l1 - 1) * (l2 - 1) }

// Select picks the smallest catalog array whose DOF budget covers the given
// control factors (by level count) and requested interactions (as pairs of
// level counts), tie-broken by fewest rows then lexicographic designation.
// It fails with ErrNoSuitableArray if no entry satisfies the requirement or
// cannot host the requested level mix (a non-2-level interaction request
// needs an array that actually carries that level's interaction table).
func Select(factorLevelCounts []int, interactionLevelPairs [][2]int) (Array, error) {
	needDOF := 0
	maxLevel := 2
	levelCount := map[int]int{} // level -> count of factors needing it
	for _, l := range factorLevelCounts {
		needDOF += factorDOF(l)
		levelCount[l]++
		if l > maxLevel {
			maxLevel = l
		}
	}
	for _, pair := range interactionLevelPairs {
		needDOF += interactionDOF(pair[0], pair[1])
	}

	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ai, aj := catalog[names[i]], catalog[names[j]]
		if ai.N() != aj.N() {
			return ai.N() < aj.N()
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		arr := catalog[name]
		if arr.DOF() < needDOF {
			continue
		}
		if !arrayCanHostLevelMix(arr, levelCount) {
			continue
		}
		if !arrayCanHostInteractions(arr, interactionLevelPairs) {
			continue
		}
		return arr, nil
	}
	return Array{}, fmt.Errorf("%w: need DOF>=%d, levels=%v", taguchierr.ErrNoSuitableArray, needDOF, levelCount)
}

func arrayCanHostLevelMix(arr Array, levelCount map[int]int) bool {
	for level, need := range levelCount {
		if len(arr.ColumnsWithLevels(level)) < need {
			return false
		}
	}
	return true
}

func arrayCanHostInteractions(arr Array, pairs [][2]int) bool {
	if len(pairs) == 0 {
		return true
	}
	// Interaction reservation is only supported on arrays that carry a
	// usable interaction table, and only between same-level factors
	// Interaction requests can only be resolved against a two-level pair.
	if len(arr.Interactions) == 0 {
		return false
	}
	for _, p := range pairs {
		if p[0] != p[1] {
			return false
		}
		if len(arr.ColumnsWithLevels(p[0])) < 2 {
			return false
		}
	}
	return true
}
