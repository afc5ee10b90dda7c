package clr

import "testing"

// buildParentChild constructs a minimal parent/child table pair to drive
// materializeRunList directly, mirroring spec section 8's end-to-end
// scenario 3: a 3-row parent whose run-list starts are 1, 3, 3 over a
// 4-row child table.
func buildParentChild(starts []uint32, childRowCount int) (*Table, *Table) {
	child := &Table{
		Def:      TableDef{ID: MethodDef, Name: "MethodDef"},
		RowCount: uint32(childRowCount),
	}
	for i := 0; i < childRowCount; i++ {
		child.rows = append(child.rows, &Row{Table: MethodDef, Index: uint32(i + 1)})
	}

	parentDef := TableDef{ID: TypeDef, Name: "TypeDef", Columns: []ColumnDef{
		{Name: "MethodList", Kind: ColRunList, Target: MethodDef},
	}}
	parent := &Table{Def: parentDef, RowCount: uint32(len(starts))}
	for i, start := range starts {
		parent.rows = append(parent.rows, &Row{
			Table: TypeDef,
			Index: uint32(i + 1),
			Raw:   []uint32{start},
		})
	}
	return parent, child
}

func TestMaterializeRunListThreeParents(t *testing.T) {
	parent, child := buildParentChild([]uint32{1, 3, 3}, 4)

	got := make([][]uint32, len(parent.rows))
	for i, row := range parent.rows {
		rows := materializeRunList(parent, row, 0, child)
		for _, r := range rows {
			got[i] = append(got[i], r.Index)
		}
	}

	want := [][]uint32{{1, 2}, nil, {3, 4}}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("parent %d: got %v, want %v", i+1, got[i], want[i])
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("parent %d: got %v, want %v", i+1, got[i], want[i])
			}
		}
	}
}

func TestMaterializeRunListSizeOneNeverElided(t *testing.T) {
	parent, child := buildParentChild([]uint32{1, 2}, 2)
	row := parent.rows[0]
	got := materializeRunList(parent, row, 0, child)
	if len(got) != 1 {
		t.Fatalf("run-list of size 1 should produce a 1-element sequence, got %v", got)
	}
	if got[0].Index != 1 {
		t.Errorf("got[0].Index = %d, want 1", got[0].Index)
	}
}

func TestMaterializeRunListEmptyIsNeverNil(t *testing.T) {
	parent, child := buildParentChild([]uint32{1, 1}, 0)
	row := parent.rows[0]
	got := materializeRunList(parent, row, 0, child)
	if got == nil {
		t.Error("materializeRunList should never return a nil slice")
	}
	if len(got) != 0 {
		t.Errorf("expected an empty run-list, got %v", got)
	}
}

func TestTableRowBoundaryInvariant(t *testing.T) {
	table := &Table{Def: TableDef{ID: Field, Name: "Field"}, RowCount: 3}
	for i := 0; i < 3; i++ {
		table.rows = append(table.rows, &Row{Table: Field, Index: uint32(i + 1)})
	}

	if table.Row(0) != nil {
		t.Error("Row(0) should be absent")
	}
	for i := uint32(1); i <= 3; i++ {
		if r := table.Row(i); r == nil || r.Index != i {
			t.Errorf("Row(%d) should be present with Index %d", i, i)
		}
	}
	if table.Row(4) != nil {
		t.Error("Row(n+1) should be absent")
	}
}
