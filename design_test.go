package taguchi

import "testing"

func mustFactor(t *testing.T, name string, values []string) Factor {
	t.Helper()
	f, err := NewFactor(name, Control, Binding{CliFlag: "--" + name}, values)
	if err != nil {
		t.Fatalf("NewFactor(%s): %v", name, err)
	}
	return f
}

func TestAssignDisjointColumns(t *testing.T) {
	factors := []Factor{
		mustFactor(t, "a", []string{"1", "2"}),
		mustFactor(t, "b", []string{"1", "2"}),
		mustFactor(t, "c", []string{"1", "2"}),
	}
	assignment, err := Assign(factors, nil)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	seen := map[int]string{}
	for name, col := range assignment.FactorColumn {
		if other, dup := seen[col]; dup {
			t.Errorf("column %d assigned to both %s and %s", col, other, name)
		}
		seen[col] = name
	}
	if len(assignment.FactorColumn) != 3 {
		t.Errorf("expected 3 factor columns, got %d", len(assignment.FactorColumn))
	}
}

func TestAssignReservesInteractionColumn(t *testing.T) {
	factors := []Factor{
		mustFactor(t, "a", []string{"1", "2"}),
		mustFactor(t, "b", []string{"1", "2"}),
	}
	ir := InteractionRequest{A: "a", B: "b"}
	assignment, err := Assign(factors, []InteractionRequest{ir})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	col, ok := assignment.InteractionColumn[ir]
	if !ok {
		t.Fatalf("expected interaction column reserved for a x b")
	}
	if col == assignment.FactorColumn["a"] || col == assignment.FactorColumn["b"] {
		t.Errorf("interaction column %d collides with a factor column", col)
	}
}

func TestRowLevelsWithinBounds(t *testing.T) {
	factors := []Factor{
		mustFactor(t, "a", []string{"lo", "hi"}),
		mustFactor(t, "b", []string{"lo", "hi"}),
	}
	assignment, err := Assign(factors, nil)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	for run := 1; run <= assignment.Array.N(); run++ {
		levels, err := RowLevels(assignment, factors, run)
		if err != nil {
			t.Fatalf("RowLevels(%d): %v", run, err)
		}
		for _, f := range factors {
			idx := levels[f.Name]
			if idx < 1 || idx > f.LevelCount() {
				t.Errorf("run %d: factor %s level index %d out of range", run, f.Name, idx)
			}
		}
	}
}

func TestRowLevelsRejectsOutOfRangeRun(t *testing.T) {
	factors := []Factor{mustFactor(t, "a", []string{"1", "2"})}
	assignment, err := Assign(factors, nil)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := RowLevels(assignment, factors, 0); err == nil {
		t.Errorf("expected error for run 0")
	}
	if _, err := RowLevels(assignment, factors, assignment.Array.N()+1); err == nil {
		t.Errorf("expected error for run beyond array size")
	}
}
