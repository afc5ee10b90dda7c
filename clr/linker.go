package clr

// HeapRef is the resolved form of a heap-referencing column (string,
// GUID, or blob heap). Value holds the decoded form (string for
// #Strings/#GUID, raw bytes for #Blob); Item carries the raw bytes and
// source RVA every heap item records per spec section 3.
type HeapRef struct {
	Value  any
	Item   HeapItem
	Absent bool
}

// linkTables runs spec section 4.5's post-processing pass: every raw
// column value in every row is converted into either a HeapRef, a *Row
// (simple or coded index), a []*Row (run-list), or left as a plain
// integer (ColU16/ColU32). Everything that can't be resolved degrades to
// an absent HeapRef or a nil reference; the row itself is never dropped.
func linkTables(tables *Tables, strings *StringsHeap, guids *GUIDHeap, blobs *BlobHeap, sink DiagnosticSink) {
	if tables == nil {
		return
	}
	for _, table := range tables.ByID {
		for _, row := range table.rows {
			linkRow(table, row, tables, strings, guids, blobs, sink)
		}
	}
}

func linkRow(table *Table, row *Row, tables *Tables, strings *StringsHeap, guids *GUIDHeap, blobs *BlobHeap, sink DiagnosticSink) {
	for i, col := range table.Schema {
		raw := row.Raw[i]
		switch col.Kind {
		case ColU16, ColU32:
			row.Resolved[i] = raw
		case ColStringHeap:
			value, item := strings.Get(raw)
			row.Resolved[i] = HeapRef{Value: value, Item: item, Absent: item.Absent}
		case ColGUIDHeap:
			value, item := guids.Get(raw)
			row.Resolved[i] = HeapRef{Value: value, Item: item, Absent: item.Absent}
		case ColBlobHeap:
			item := blobs.Get(raw)
			row.Resolved[i] = HeapRef{Value: item.Raw, Item: item, Absent: item.Absent}
		case ColSimpleIndex:
			target := tables.ByID[col.Target]
			if raw == 0 || target == nil {
				row.Resolved[i] = (*Row)(nil)
				continue
			}
			r := target.Row(raw)
			if r == nil {
				sink.Warnf(TableIndexOutOfRange, table.Def.Name+"."+col.Name, "row index %d out of range for table %s", raw, tableName(col.Target))
			}
			row.Resolved[i] = r
		case ColCodedIndex:
			row.Resolved[i] = resolveCoded(col.Coded, raw, tables)
		case ColRunList:
			row.Resolved[i] = materializeRunList(table, row, i, tables.ByID[col.Target])
		}
	}
}

// resolveCoded splits a raw coded-index value into its tag and 1-based
// row index and looks the selected candidate table up directly in
// tables.ByID (which, by link time, always has its final row count).
func resolveCoded(kind CodedIndexKind, raw uint32, tables *Tables) *Row {
	def := codedIndexCatalog[kind]
	tagMask := uint32(1)<<uint(def.TagBits) - 1
	tag := raw & tagMask
	rowIdx := raw >> uint(def.TagBits)

	if int(tag) >= len(def.Tables) {
		return nil
	}
	targetID := def.Tables[tag]
	if targetID == unusedTableSlot || rowIdx == 0 {
		return nil
	}
	target := tables.ByID[targetID]
	if target == nil {
		return nil
	}
	return target.Row(rowIdx)
}

// materializeRunList resolves a run-list column into the concrete
// ordered sequence of child rows this parent row owns, per spec section
// 4.5: from this row's start index up to (but not including) the next
// parent row's start index, or through the child table's last row for
// the final parent row. Empty ranges produce an empty (non-nil) slice,
// never a nil/absent result — a run-list of size one is a one-element
// slice, never elided.
func materializeRunList(parentTable *Table, row *Row, colIdx int, childTable *Table) []*Row {
	out := []*Row{}
	if childTable == nil {
		return out
	}

	start := row.Raw[colIdx]

	var end uint32
	if row.Index >= parentTable.RowCount {
		end = childTable.RowCount + 1
	} else {
		nextRow := parentTable.rows[row.Index] // rows[Index] is the (Index+1)'th row, 1 past current
		end = nextRow.Raw[colIdx]
	}

	if start == 0 || start > end {
		return out
	}
	for idx := start; idx < end; idx++ {
		if r := childTable.Row(idx); r != nil {
			out = append(out, r)
		}
	}
	return out
}
