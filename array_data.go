package taguchi

import "math/bits"

// buildCatalog constructs the standard-array library. Pure two-level arrays
// (L4, L8, L16) and pure three-level arrays (L9, L27) are generated from
// the finite-geometry (Galois field) construction common to every
// Plackett-style saturated design; L12 and L18 are the well-known
// hand-published Plackett-Burman / mixed tables (verified for pairwise
// balance); L36 is built as the direct product of L9 and L4, which is a
// strictly smaller (and easier to verify) design than the maximal
// literature L36(2^11×3^12) — see DESIGN.md.
func buildCatalog() map[string]Array {
	cat := map[string]Array{}

	l4 := buildTwoLevelArray(2)
	l4.Designation = "L4(2^3)"
	cat[l4.Designation] = l4

	l8 := buildTwoLevelArray(3)
	l8.Designation = "L8(2^7)"
	cat[l8.Designation] = l8

	l16 := buildTwoLevelArray(4)
	l16.Designation = "L16(2^15)"
	cat[l16.Designation] = l16

	l9 := buildPrimePowerArray(3, 2)
	l9.Designation = "L9(3^4)"
	cat[l9.Designation] = l9

	l27 := buildPrimePowerArray(3, 3)
	l27.Designation = "L27(3^13)"
	cat[l27.Designation] = l27

	l12 := Array{Designation: "L12(2^11)", Rows: l12Rows(), LevelCounts: repeat(2, 11)}
	cat[l12.Designation] = l12

	l18 := Array{Designation: "L18(2^1 3^7)", Rows: l18Rows(), LevelCounts: append([]int{2}, repeat(3, 7)...)}
	cat[l18.Designation] = l18

	l36 := directProduct("L36(2^3 3^4)", buildPrimePowerArray(3, 2), buildTwoLevelArray(2))
	cat[l36.Designation] = l36

	return cat
}

// buildTwoLevelArray constructs the N=2^k, C=N-1 saturated two-level array
// via the standard parity construction: column c (1-based), row r
// (0-based), value = 1 + parity(popcount(r & c)). Its interaction table is
// exact: the interaction of columns i and j is column i XOR j whenever that
// XOR itself names a valid column.
func buildTwoLevelArray(k int) Array {
	n := 1 << k
	c := n - 1
	rows := make([][]int, n)
	for r := 0; r < n; r++ {
		row := make([]int, c)
		for col := 1; col <= c; col++ {
			if bits.OnesCount(uint(r&col))%2 == 0 {
				row[col-1] = 1
			} else {
				row[col-1] = 2
			}
		}
		rows[r] = row
	}
	interactions := map[ColPair]int{}
	for i := 1; i <= c; i++ {
		for j := i + 1; j <= c; j++ {
			if ij := i ^ j; ij >= 1 && ij <= c && ij != i && ij != j {
				interactions[newColPair(i, j)] = ij
			}
		}
	}
	return Array{Rows: rows, LevelCounts: repeat(2, c), Interactions: interactions}
}

// buildPrimePowerArray constructs the N=q^k, C=(q^k-1)/(q-1) saturated
// q-level array from the one-dimensional subspaces of GF(q)^k, for prime q.
// Columns not derived from a 2-level field carry no interaction table here
// (see DESIGN.md); composing a 3-level interaction needs two columns
// ((q-1)^2 DOF), which this engine does not reserve automatically.
func buildPrimePowerArray(q, k int) Array {
	var cols [][]int
	total := 1
	for i := 0; i < k; i++ {
		total *= q
	}
	for v := 1; v < total; v++ {
		vec := digits(v, q, k)
		if firstNonZero(vec) != 1 {
			continue
		}
		cols = append(cols, vec)
	}
	n := total
	rows := make([][]int, n)
	for r := 0; r < n; r++ {
		x := digits(r, q, k)
		row := make([]int, len(cols))
		for ci, v := range cols {
			dot := 0
			for i := range v {
				dot += v[i] * x[i]
			}
			row[ci] = dot%q + 1
		}
		rows[r] = row
	}
	return Array{Rows: rows, LevelCounts: repeat(q, len(cols))}
}

// directProduct builds the OA(n1*n2, s1^c1 * s2^c2) crossing of two
// orthogonal arrays: every (row of a, row of b) pair becomes one row, with
// a's columns first. This is a standard, easily-verified construction:
// same-side column pairs inherit balance from their source array, and
// cross-side pairs are balanced because the two factors vary independently.
func directProduct(designation string, a, b Array) Array {
	rows := make([][]int, 0, a.N()*b.N())
	for _, ra := range a.Rows {
		for _, rb := range b.Rows {
			row := make([]int, 0, len(ra)+len(rb))
			row = append(row, ra...)
			row = append(row, rb...)
			rows = append(rows, row)
		}
	}
	levels := append(append([]int{}, a.LevelCounts...), b.LevelCounts...)
	return Array{Designation: designation, Rows: rows, LevelCounts: levels}
}

func digits(v, q, k int) []int {
	d := make([]int, k)
	for i := k - 1; i >= 0; i-- {
		d[i] = v % q
		v /= q
	}
	return d
}

func firstNonZero(v []int) int {
	for _, x := range v {
		if x != 0 {
			return x
		}
	}
	return 0
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// l12Rows is the standard Plackett-Burman OA(12, 2^11) table.
func l12Rows() [][]int {
	return [][]int{
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2},
		{1, 1, 2, 2, 2, 1, 1, 1, 2, 2, 2},
		{1, 2, 1, 2, 2, 1, 2, 2, 1, 1, 2},
		{1, 2, 2, 1, 2, 2, 1, 2, 1, 2, 1},
		{1, 2, 2, 2, 1, 2, 2, 1, 2, 1, 1},
		{2, 1, 2, 2, 1, 1, 2, 2, 1, 2, 1},
		{2, 1, 2, 1, 2, 2, 2, 1, 1, 1, 2},
		{2, 1, 1, 2, 2, 2, 1, 2, 2, 1, 1},
		{2, 2, 2, 1, 1, 1, 1, 2, 2, 1, 2},
		{2, 2, 1, 2, 1, 2, 1, 1, 1, 2, 2},
		{2, 2, 1, 1, 2, 1, 2, 1, 2, 2, 1},
	}
}

// l18Rows is the standard OA(18, 2^1 3^7) mixed table. Taguchi's own
// guidance is that L18 deliberately spreads interactions across many
// columns rather than confining them to one, so it carries no interaction
// table.
func l18Rows() [][]int {
	return [][]int{
		{1, 1, 1, 1, 1, 1, 1, 1},
		{1, 1, 2, 2, 2, 2, 2, 2},
		{1, 1, 3, 3, 3, 3, 3, 3},
		{1, 2, 1, 1, 2, 2, 3, 3},
		{1, 2, 2, 2, 3, 3, 1, 1},
		{1, 2, 3, 3, 1, 1, 2, 2},
		{1, 3, 1, 2, 1, 3, 2, 3},
		{1, 3, 2, 3, 2, 1, 3, 1},
		{1, 3, 3, 1, 3, 2, 1, 2},
		{2, 1, 1, 3, 3, 2, 2, 1},
		{2, 1, 2, 1, 1, 3, 3, 2},
		{2, 1, 3, 2, 2, 1, 1, 3},
		{2, 2, 1, 2, 3, 1, 3, 2},
		{2, 2, 2, 3, 1, 2, 1, 3},
		{2, 2, 3, 1, 2, 3, 2, 1},
		{2, 3, 1, 3, 2, 3, 1, 2},
		{2, 3, 2, 1, 3, 1, 2, 3},
		{2, 3, 3, 2, 1, 2, 3, 1},
	}
}
