package clr

import (
	"encoding/binary"
)

const (
	heapSizeStringsBit = 1 << 0
	heapSizeGUIDBit    = 1 << 1
	heapSizeBlobBit    = 1 << 2
	heapSizeExtraData  = 1 << 3
)

// tablesHeader is the fixed part of the #~/#-/#Schema stream, per spec
// section 3: reserved, version, heap-size flags, a second reserved
// field, then the valid/sorted 64-bit table bitmaps.
type tablesHeader struct {
	Reserved1    uint32
	MajorVersion uint8
	MinorVersion uint8
	HeapSizes    uint8
	Reserved2    uint8
	Valid        uint64
	Sorted       uint64
}

const tablesHeaderSize = 24

// resolvedColumn is one column's computed physical placement within a
// table's dynamic row schema.
type resolvedColumn struct {
	ColumnDef
	Width  int
	Offset int
}

// Table is one decoded metadata table: its static definition, the
// per-image row schema computed for it, and its materialized rows.
// Rows are stored in an arena keyed by 1-based index per spec section 9,
// so cyclic cross-table references (e.g. NestedClass <-> TypeDef) don't
// require ownership cycles.
type Table struct {
	Def      TableDef
	RowCount uint32
	Schema   []resolvedColumn
	RowSize  int

	rows []*Row // rows[i] is the 1-based row i+1; never nil once materialized
}

// Row is one materialized row of a Table. Raw holds the column values
// exactly as read from the stream (heap/simple/coded-index columns still
// as raw unsigned integers, run-list columns as the run's start index).
// Resolved is filled in by the linking pass (linker.go) with the typed
// reference, heap item, or materialized run-list each column denotes.
type Row struct {
	Table    TableID
	Index    uint32 // 1-based
	Raw      []uint32
	Resolved []any
}

// valueAt returns column i's post-link resolved value, or nil if it
// hasn't been resolved (or linking judged it absent).
func (r *Row) valueAt(i int) any {
	if r == nil || i >= len(r.Resolved) {
		return nil
	}
	return r.Resolved[i]
}

// columnIndex returns the position of the named column in def.Columns,
// or -1 if there is no such column. Typed row wrappers (rows.go) use
// this to stay correct if a table's column order is ever adjusted.
func columnIndex(def TableDef, name string) int {
	for i, c := range def.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Tables is the decoded tables stream: every present table, plus the
// heap-size flags used to size string/GUID/blob index columns.
type Tables struct {
	Header        tablesHeader
	StringsWide   bool
	GUIDWide      bool
	BlobWide      bool
	ByID          map[TableID]*Table
}

// Table returns the decoded table for id, or nil if its valid bit
// wasn't set for this image.
func (t *Tables) Table(id TableID) *Table {
	if t == nil {
		return nil
	}
	return t.ByID[id]
}

// Row returns the 1-based row at index i, or nil if i is 0 or out of
// range — random access never fails the parse, per spec section 4.3.
func (t *Table) Row(i uint32) *Row {
	if t == nil || i == 0 || i > uint32(len(t.rows)) {
		return nil
	}
	return t.rows[i-1]
}

// Rows returns the table's rows as a 0-based iteration view.
func (t *Table) Rows() []*Row {
	if t == nil {
		return nil
	}
	return t.rows
}

// parseTablesStream runs phases 1 and 2 of spec section 4.3: reads the
// header, computes every present table's dynamic row schema, then reads
// each table's raw rows. It does not resolve references; that is
// linkTables's job, run once every table has been materialized (coded
// indices need every candidate table's final row count, including ones
// that appear later in stream order).
func parseTablesStream(data []byte, sink DiagnosticSink) (*Tables, error) {
	if len(data) < tablesHeaderSize {
		return nil, fatalf(TruncatedStructure, "tables stream header truncated: %d bytes", len(data))
	}

	var h tablesHeader
	h.Reserved1 = binary.LittleEndian.Uint32(data[0:4])
	h.MajorVersion = data[4]
	h.MinorVersion = data[5]
	h.HeapSizes = data[6]
	h.Reserved2 = data[7]
	h.Valid = binary.LittleEndian.Uint64(data[8:16])
	h.Sorted = binary.LittleEndian.Uint64(data[16:24])

	off := tablesHeaderSize

	var presentIDs []TableID
	for i := 0; i < 64; i++ {
		if h.Valid&(uint64(1)<<uint(i)) != 0 {
			presentIDs = append(presentIDs, TableID(i))
		}
	}

	if h.HeapSizes&heapSizeExtraData != 0 {
		off += 4
	}

	rowCounts := make(map[TableID]uint32, len(presentIDs))
	for _, id := range presentIDs {
		if off+4 > len(data) {
			return nil, fatalf(TruncatedStructure, "tables stream truncated reading row count for table %d", id)
		}
		rowCounts[id] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}

	tables := &Tables{
		Header:      h,
		StringsWide: h.HeapSizes&heapSizeStringsBit != 0,
		GUIDWide:    h.HeapSizes&heapSizeGUIDBit != 0,
		BlobWide:    h.HeapSizes&heapSizeBlobBit != 0,
		ByID:        make(map[TableID]*Table, len(presentIDs)),
	}

	for _, id := range presentIDs {
		def, ok := tableCatalog[id]
		if !ok {
			sink.Warnf(DecodingError, "tables", "table index %d has no known schema, skipping", id)
			continue
		}
		schema, rowSize := computeRowSchema(def, tables, rowCounts)
		table := &Table{Def: def, RowCount: rowCounts[id], Schema: schema, RowSize: rowSize}
		tables.ByID[id] = table
	}

	for _, id := range presentIDs {
		table := tables.ByID[id]
		if table == nil {
			continue
		}
		n := int(table.RowCount)
		need := n * table.RowSize
		if off+need > len(data) {
			sink.Warnf(TruncatedStructure, table.Def.Name, "table truncated: wanted %d rows of %d bytes, only %d bytes remain", n, table.RowSize, len(data)-off)
			n = (len(data) - off) / table.RowSize
		}
		table.rows = make([]*Row, n)
		for i := 0; i < n; i++ {
			rowData := data[off : off+table.RowSize]
			table.rows[i] = decodeRawRow(table, uint32(i+1), rowData)
			off += table.RowSize
		}
		if n < int(table.RowCount) {
			// pad with zero-valued rows so 1-based indexing into the
			// declared row count degrades gracefully instead of panicking;
			// Raw/Resolved are still sized to the schema so linkTables can
			// walk them like any other row.
			for i := n; i < int(table.RowCount); i++ {
				table.rows = append(table.rows, &Row{
					Table:    id,
					Index:    uint32(i + 1),
					Raw:      make([]uint32, len(table.Schema)),
					Resolved: make([]any, len(table.Schema)),
				})
			}
		}
	}

	return tables, nil
}

// computeRowSchema lays out one table's columns left to right, computing
// each column's physical width from the heap-size flags (string/GUID/blob
// columns), the target table's row count (simple indices and run-lists),
// or the coded-index catalog (coded indices).
func computeRowSchema(def TableDef, t *Tables, rowCounts map[TableID]uint32) ([]resolvedColumn, int) {
	schema := make([]resolvedColumn, len(def.Columns))
	offset := 0
	for i, col := range def.Columns {
		width := columnWidth(col, t, rowCounts)
		schema[i] = resolvedColumn{ColumnDef: col, Width: width, Offset: offset}
		offset += width
	}
	return schema, offset
}

func columnWidth(col ColumnDef, t *Tables, rowCounts map[TableID]uint32) int {
	switch col.Kind {
	case ColU16:
		return 2
	case ColU32:
		return 4
	case ColStringHeap:
		if t.StringsWide {
			return 4
		}
		return 2
	case ColGUIDHeap:
		if t.GUIDWide {
			return 4
		}
		return 2
	case ColBlobHeap:
		if t.BlobWide {
			return 4
		}
		return 2
	case ColSimpleIndex, ColRunList:
		if rowCounts[col.Target] >= (1 << 16) {
			return 4
		}
		return 2
	case ColCodedIndex:
		return codedIndexWidth(col.Coded, rowCounts)
	default:
		return 2
	}
}

// decodeRawRow reads one row's raw column values (not yet resolved)
// according to the table's schema.
func decodeRawRow(table *Table, index uint32, data []byte) *Row {
	row := &Row{
		Table:    table.Def.ID,
		Index:    index,
		Raw:      make([]uint32, len(table.Schema)),
		Resolved: make([]any, len(table.Schema)),
	}
	for i, col := range table.Schema {
		chunk := data[col.Offset : col.Offset+col.Width]
		if col.Width == 2 {
			row.Raw[i] = uint32(binary.LittleEndian.Uint16(chunk))
		} else {
			row.Raw[i] = binary.LittleEndian.Uint32(chunk)
		}
	}
	return row
}
