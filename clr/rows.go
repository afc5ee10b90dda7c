package clr

// Named column accessors on Row. Every table's physical layout is
// schema-driven (tables.go), so a single generic engine parses and
// links all 45 table kinds; these accessors give callers typed access
// by column name instead of raw positional indexing, playing the role
// the teacher's/original's per-table struct fields do without requiring
// forty-five hand-duplicated parse routines whose column widths would
// still have to be computed dynamically per image.

func (r *Row) column(name string) int {
	if r == nil {
		return -1
	}
	def, ok := tableCatalog[r.Table]
	if !ok {
		return -1
	}
	return columnIndex(def, name)
}

// String returns the decoded value of a #Strings-heap column.
func (r *Row) String(name string) (string, bool) {
	i := r.column(name)
	if i < 0 {
		return "", false
	}
	ref, ok := r.valueAt(i).(HeapRef)
	if !ok || ref.Absent {
		return "", false
	}
	s, _ := ref.Value.(string)
	return s, true
}

// GUID returns the decoded value of a #GUID-heap column.
func (r *Row) GUID(name string) (string, bool) {
	return r.String(name) // GUID and Strings columns both resolve to a HeapRef{Value: string}
}

// Blob returns the raw payload of a #Blob-heap column.
func (r *Row) Blob(name string) ([]byte, bool) {
	i := r.column(name)
	if i < 0 {
		return nil, false
	}
	ref, ok := r.valueAt(i).(HeapRef)
	if !ok || ref.Absent {
		return nil, false
	}
	b, _ := ref.Value.([]byte)
	return b, true
}

// U16 returns the raw value of a fixed-width uint16 column.
func (r *Row) U16(name string) uint16 {
	i := r.column(name)
	if i < 0 {
		return 0
	}
	v, _ := r.valueAt(i).(uint32)
	return uint16(v)
}

// U32 returns the raw value of a fixed-width uint32 column.
func (r *Row) U32(name string) uint32 {
	i := r.column(name)
	if i < 0 {
		return 0
	}
	v, _ := r.valueAt(i).(uint32)
	return v
}

// Ref returns the row a simple-index or coded-index column resolved to,
// or nil if it's absent.
func (r *Row) Ref(name string) *Row {
	i := r.column(name)
	if i < 0 {
		return nil
	}
	v, _ := r.valueAt(i).(*Row)
	return v
}

// RunList returns the materialized child rows a run-list column owns.
func (r *Row) RunList(name string) []*Row {
	i := r.column(name)
	if i < 0 {
		return nil
	}
	v, _ := r.valueAt(i).([]*Row)
	return v
}

// The following thin wrapper types give the packages built on top of the
// tables engine (method.go, resource.go, facade.go) names to code
// against instead of magic strings, for the tables those packages read
// most often.

// ModuleRow wraps a Module table row.
type ModuleRow struct{ *Row }

func (m ModuleRow) Name() string { s, _ := m.Row.String("Name"); return s }
func (m ModuleRow) Mvid() string { s, _ := m.Row.GUID("Mvid"); return s }

// TypeDefRow wraps a TypeDef table row.
type TypeDefRow struct{ *Row }

func (t TypeDefRow) Flags() uint32      { return t.Row.U32("Flags") }
func (t TypeDefRow) Name() string       { s, _ := t.Row.String("Name"); return s }
func (t TypeDefRow) Namespace() string  { s, _ := t.Row.String("Namespace"); return s }
func (t TypeDefRow) Extends() *Row      { return t.Row.Ref("Extends") }
func (t TypeDefRow) FieldList() []*Row  { return t.Row.RunList("FieldList") }
func (t TypeDefRow) MethodList() []*Row { return t.Row.RunList("MethodList") }

// MethodDefRow wraps a MethodDef table row.
type MethodDefRow struct{ *Row }

func (m MethodDefRow) RVA() uint32       { return m.Row.U32("RVA") }
func (m MethodDefRow) ImplFlags() uint16 { return m.Row.U16("ImplFlags") }
func (m MethodDefRow) Flags() uint16     { return m.Row.U16("Flags") }
func (m MethodDefRow) Name() string      { s, _ := m.Row.String("Name"); return s }
func (m MethodDefRow) Signature() []byte { b, _ := m.Row.Blob("Signature"); return b }
func (m MethodDefRow) ParamList() []*Row { return m.Row.RunList("ParamList") }

// ParamRow wraps a Param table row.
type ParamRow struct{ *Row }

func (p ParamRow) Flags() uint16    { return p.Row.U16("Flags") }
func (p ParamRow) Sequence() uint16 { return p.Row.U16("Sequence") }
func (p ParamRow) Name() string     { s, _ := p.Row.String("Name"); return s }

// MemberRefRow wraps a MemberRef table row.
type MemberRefRow struct{ *Row }

func (m MemberRefRow) Class() *Row      { return m.Row.Ref("Class") }
func (m MemberRefRow) Name() string     { s, _ := m.Row.String("Name"); return s }
func (m MemberRefRow) Signature() []byte { b, _ := m.Row.Blob("Signature"); return b }

// TypeRefRow wraps a TypeRef table row.
type TypeRefRow struct{ *Row }

func (t TypeRefRow) Name() string      { s, _ := t.Row.String("Name"); return s }
func (t TypeRefRow) Namespace() string { s, _ := t.Row.String("Namespace"); return s }

// FileRow wraps a File table row.
type FileRow struct{ *Row }

func (f FileRow) Flags() uint32 { return f.Row.U32("Flags") }
func (f FileRow) Name() string  { s, _ := f.Row.String("Name"); return s }

// AssemblyRefRow wraps an AssemblyRef table row.
type AssemblyRefRow struct{ *Row }

func (a AssemblyRefRow) Name() string    { s, _ := a.Row.String("Name"); return s }
func (a AssemblyRefRow) Culture() string { s, _ := a.Row.String("Culture"); return s }

// ManifestResourceRow wraps a ManifestResource table row.
type ManifestResourceRow struct{ *Row }

func (m ManifestResourceRow) Offset() uint32     { return m.Row.U32("Offset") }
func (m ManifestResourceRow) Flags() uint32      { return m.Row.U32("Flags") }
func (m ManifestResourceRow) Name() string       { s, _ := m.Row.String("Name"); return s }
func (m ManifestResourceRow) Implementation() *Row { return m.Row.Ref("Implementation") }
