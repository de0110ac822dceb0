package taguchi

import (
	"fmt"
	"sort"

	"github.com/arvidsen/taguchi-engine/taguchierr"
)

// Assignment is the immutable outcome of Design Assignment: for each
// control factor, the column of the chosen array it occupies, and for each
// requested interaction, the column reserved to express it. Column
// assignments are disjoint by construction.
type Assignment struct {
	Array              Array
	FactorColumn       map[string]int
	InteractionColumn  map[InteractionRequest]int
}

// Assign selects the smallest suitable array (via Select) and greedily
// assigns columns: factors are sorted by descending level count then by
// name, and each is placed in the leftmost unused column of matching level
// count. Requested interactions are then resolved against the array's
// interaction table and their columns reserved. Fails with
// ErrInteractionColumnConflict if a reserved column collides with a factor
// or another reservation.
func Assign(controlFactors []Factor, interactions []InteractionRequest) (Assignment, error) {
	levelCounts := make([]int, len(controlFactors))
	byName := map[string]Factor{}
	for i, f := range controlFactors {
		levelCounts[i] = f.LevelCount()
		byName[f.Name] = f
	}

	var pairs [][2]int
	for _, ir := range interactions {
		a, ok1 := byName[ir.A]
		b, ok2 := byName[ir.B]
		if !ok1 || !ok2 {
			return Assignment{}, fmt.Errorf("taguchi: interaction %s x %s references an unknown factor", ir.A, ir.B)
		}
		pairs = append(pairs, [2]int{a.LevelCount(), b.LevelCount()})
	}

	arr, err := Select(levelCounts, pairs)
	if err != nil {
		return Assignment{}, err
	}

	sorted := append([]Factor(nil), controlFactors...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].LevelCount() != sorted[j].LevelCount() {
			return sorted[i].LevelCount() > sorted[j].LevelCount()
		}
		return sorted[i].Name < sorted[j].Name
	})

	used := map[int]bool{}
	factorColumn := map[string]int{}
	for _, f := range sorted {
		col, ok := leftmostUnusedColumn(arr, f.LevelCount(), used)
		if !ok {
			return Assignment{}, fmt.Errorf("%w: no free column of %d levels for factor %s on array %s",
				taguchierr.ErrInteractionColumnConflict, f.LevelCount(), f.Name, arr.Designation)
		}
		factorColumn[f.Name] = col
		used[col] = true
	}

	interactionColumn := map[InteractionRequest]int{}
	for _, ir := range interactions {
		c1, c2 := factorColumn[ir.A], factorColumn[ir.B]
		col, ok := arr.InteractionColumn(c1, c2)
		if !ok {
			return Assignment{}, fmt.Errorf("%w: no interaction column for %s x %s on array %s",
				taguchierr.ErrInteractionColumnConflict, ir.A, ir.B, arr.Designation)
		}
		if used[col] {
			return Assignment{}, fmt.Errorf("%w: interaction column %d for %s x %s already in use",
				taguchierr.ErrInteractionColumnConflict, col, ir.A, ir.B)
		}
		interactionColumn[ir] = col
		used[col] = true
	}

	return Assignment{Array: arr, FactorColumn: factorColumn, InteractionColumn: interactionColumn}, nil
}

func leftmostUnusedColumn(arr Array, levels int, used map[int]bool) (int, bool) {
	for _, col := range arr.ColumnsWithLevels(levels) {
		if !used[col] {
			return col, true
		}
	}
	return 0, false
}

// RowLevels returns the level index each control factor takes on the given
// 1-based run index, using the Assignment's column layout.
func RowLevels(a Assignment, controlFactors []Factor, run int) (map[string]int, error) {
	if run < 1 || run > a.Array.N() {
		return nil, fmt.Errorf("%w: run index %d out of range 1..%d", taguchierr.ErrInvalidLevelIndex, run, a.Array.N())
	}
	row := a.Array.Rows[run-1]
	out := make(map[string]int, len(controlFactors))
	for _, f := range controlFactors {
		col, ok := a.FactorColumn[f.Name]
		if !ok {
			return nil, fmt.Errorf("taguchi: factor %s has no column in this assignment", f.Name)
		}
		out[f.Name] = row[col-1]
	}
	return out, nil
}
