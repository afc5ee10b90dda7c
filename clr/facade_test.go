package clr

import "testing"

// schemaFromDef builds the []resolvedColumn linkRow walks, in the same
// order as def.Columns, for tables constructed by hand in these tests
// (parseTablesStream normally computes this from the heap-size flags and
// row counts; these fixtures skip byte-level parsing entirely).
func schemaFromDef(def TableDef) []resolvedColumn {
	schema := make([]resolvedColumn, len(def.Columns))
	for i, col := range def.Columns {
		schema[i] = resolvedColumn{ColumnDef: col}
	}
	return schema
}

// TestModuleNameRoundTrip covers spec section 8's end-to-end scenario 1: a
// minimal Module table row whose Name column resolves through a hand-built
// #Strings heap back to the original string.
func TestModuleNameRoundTrip(t *testing.T) {
	strings := newStringsHeap([]byte("\x00MyAssembly.dll\x00"), 0x1000)

	table := &Table{Def: tableCatalog[Module], RowCount: 1}
	table.Schema = schemaFromDef(table.Def)
	table.rows = []*Row{{
		Table:    Module,
		Index:    1,
		Raw:      []uint32{0, 1, 0, 0, 0}, // Generation, Name@1, Mvid/EncId/EncBaseId absent
		Resolved: make([]any, 5),
	}}
	tables := &Tables{ByID: map[TableID]*Table{Module: table}}

	linkTables(tables, strings, nil, nil, newMemorySink())

	mod := ModuleRow{tables.Table(Module).Row(1)}
	if got, want := mod.Name(), "MyAssembly.dll"; got != want {
		t.Errorf("ModuleRow.Name() = %q, want %q", got, want)
	}
}

// TestDuplicateStringsStreamLastWins covers scenario 2: when two stream
// directory entries share the name "#Strings", the last one present wins
// for shortcut resolution, while both remain individually enumerable.
func TestDuplicateStringsStreamLastWins(t *testing.T) {
	root := &MetadataRoot{
		Streams: []StreamHeader{
			{Name: "#Strings", Offset: 100, Size: 10},
			{Name: "#US", Offset: 110, Size: 4},
			{Name: "#Strings", Offset: 200, Size: 20},
		},
	}

	sh, ok := root.lastStreamNamed("#Strings")
	if !ok {
		t.Fatal("lastStreamNamed(#Strings) should find a match")
	}
	if sh.Offset != 200 {
		t.Errorf("lastStreamNamed(#Strings).Offset = %d, want 200 (the later duplicate)", sh.Offset)
	}

	all := root.allStreamsNamed("#Strings")
	if len(all) != 2 {
		t.Fatalf("allStreamsNamed(#Strings) = %d entries, want 2", len(all))
	}
	if all[0].Offset != 100 || all[1].Offset != 200 {
		t.Errorf("allStreamsNamed(#Strings) = %+v, want offsets [100, 200] in file order", all)
	}
}

// TestManifestResourceResolvesToAssemblyRef covers scenario 6: a
// ManifestResource row whose Implementation coded index points at an
// AssemblyRef row classifies as an external, data-less resource.
func TestManifestResourceResolvesToAssemblyRef(t *testing.T) {
	strings := newStringsHeap([]byte("\x00OtherAssembly\x00"), 0x1000)

	asmRefTable := &Table{Def: tableCatalog[AssemblyRef], RowCount: 1}
	asmRefTable.Schema = schemaFromDef(asmRefTable.Def)
	asmRefTable.rows = []*Row{{
		Table:    AssemblyRef,
		Index:    1,
		Raw:      []uint32{1, 0, 0, 0, 0, 0, 1, 0, 0}, // MajorVersion 1, Name@1, rest zero
		Resolved: make([]any, 9),
	}}

	mrTable := &Table{Def: tableCatalog[ManifestResource], RowCount: 1}
	mrTable.Schema = schemaFromDef(mrTable.Def)
	// Implementation coded index: tag 1 (AssemblyRef, per CodedImplementation's
	// {File, AssemblyRef, ExportedType} table order) targeting row 1.
	const tagBits = 2
	implRaw := uint32(1)<<tagBits | 1
	mrTable.rows = []*Row{{
		Table:    ManifestResource,
		Index:    1,
		Raw:      []uint32{0, 0, 0, implRaw},
		Resolved: make([]any, 4),
	}}

	tables := &Tables{ByID: map[TableID]*Table{
		AssemblyRef:      asmRefTable,
		ManifestResource: mrTable,
	}}
	linkTables(tables, strings, nil, nil, newMemorySink())

	resources := buildResources(&CLIHeader{}, nil, tables, newMemorySink())
	if len(resources) != 1 {
		t.Fatalf("buildResources returned %d resources, want 1", len(resources))
	}
	res := resources[0]
	if res.Kind != ResourceAssembly {
		t.Fatalf("res.Kind = %v, want ResourceAssembly", res.Kind)
	}
	if res.AssemblyRefRow == nil {
		t.Fatal("res.AssemblyRefRow should be set")
	}
	if got := (AssemblyRefRow{res.AssemblyRefRow}).Name(); got != "OtherAssembly" {
		t.Errorf("resolved AssemblyRef name = %q, want %q", got, "OtherAssembly")
	}
	if res.Raw != nil || res.Set != nil {
		t.Error("an external resource must not carry local payload data")
	}
}
