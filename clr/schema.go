package clr

// TableID identifies one of the (up to) 64 ECMA-335 metadata table kinds.
type TableID int

const (
	Module TableID = iota
	TypeRef
	TypeDef
	FieldPtr
	Field
	MethodPtr
	MethodDef
	ParamPtr
	Param
	InterfaceImpl
	MemberRef
	Constant
	CustomAttribute
	FieldMarshal
	DeclSecurity
	ClassLayout
	FieldLayout
	StandAloneSig
	EventMap
	EventPtr
	Event
	PropertyMap
	PropertyPtr
	Property
	MethodSemantics
	MethodImpl
	ModuleRef
	TypeSpec
	ImplMap
	FieldRVA
	EncLog
	EncMap
	Assembly
	AssemblyProcessor
	AssemblyOS
	AssemblyRef
	AssemblyRefProcessor
	AssemblyRefOS
	File
	ExportedType
	ManifestResource
	NestedClass
	GenericParam
	MethodSpec
	GenericParamConstraint
)

const (
	UnusedTable TableID = 62
	MaxTable    TableID = 63
)

// ColumnKind classifies what a table column's raw integer means, which
// in turn determines both its physical width and how the linking pass
// (linker.go) converts it into a typed reference.
type ColumnKind int

const (
	ColU16 ColumnKind = iota
	ColU32
	ColStringHeap
	ColGUIDHeap
	ColBlobHeap
	ColSimpleIndex
	ColCodedIndex
	ColRunList
)

// ColumnDef describes one physical column of a table row.
type ColumnDef struct {
	Name   string
	Kind   ColumnKind
	Target TableID        // ColSimpleIndex, ColRunList: the table a value points into
	Coded  CodedIndexKind // ColCodedIndex: which coded-index kind to apply
}

// TableDef is the static (image-independent) part of a table's schema:
// its name and ordered column list. Combined with per-image row counts
// and heap-size flags, this produces the dynamic per-image row schema
// (see computeRowSchema in tables.go).
type TableDef struct {
	ID      TableID
	Name    string
	Columns []ColumnDef
}

// tableCatalog is the full, static ECMA-335 table catalog, including the
// five "not public" indirection tables and the legacy/rarely-populated
// tables (EncLog, EncMap, AssemblyProcessor, AssemblyOS,
// AssemblyRefProcessor, AssemblyRefOS) that real images almost never
// populate but that the tables stream must still be able to size and
// decode whenever their valid bit is set.
var tableCatalog = map[TableID]TableDef{
	Module: {Module, "Module", []ColumnDef{
		{Name: "Generation", Kind: ColU16},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "Mvid", Kind: ColGUIDHeap},
		{Name: "EncId", Kind: ColGUIDHeap},
		{Name: "EncBaseId", Kind: ColGUIDHeap},
	}},
	TypeRef: {TypeRef, "TypeRef", []ColumnDef{
		{Name: "ResolutionScope", Kind: ColCodedIndex, Coded: CodedResolutionScope},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "Namespace", Kind: ColStringHeap},
	}},
	TypeDef: {TypeDef, "TypeDef", []ColumnDef{
		{Name: "Flags", Kind: ColU32},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "Namespace", Kind: ColStringHeap},
		{Name: "Extends", Kind: ColCodedIndex, Coded: CodedTypeDefOrRef},
		{Name: "FieldList", Kind: ColRunList, Target: Field},
		{Name: "MethodList", Kind: ColRunList, Target: MethodDef},
	}},
	FieldPtr: {FieldPtr, "FieldPtr", []ColumnDef{
		{Name: "Field", Kind: ColSimpleIndex, Target: Field},
	}},
	Field: {Field, "Field", []ColumnDef{
		{Name: "Flags", Kind: ColU16},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "Signature", Kind: ColBlobHeap},
	}},
	MethodPtr: {MethodPtr, "MethodPtr", []ColumnDef{
		{Name: "Method", Kind: ColSimpleIndex, Target: MethodDef},
	}},
	MethodDef: {MethodDef, "MethodDef", []ColumnDef{
		{Name: "RVA", Kind: ColU32},
		{Name: "ImplFlags", Kind: ColU16},
		{Name: "Flags", Kind: ColU16},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "Signature", Kind: ColBlobHeap},
		{Name: "ParamList", Kind: ColRunList, Target: Param},
	}},
	ParamPtr: {ParamPtr, "ParamPtr", []ColumnDef{
		{Name: "Param", Kind: ColSimpleIndex, Target: Param},
	}},
	Param: {Param, "Param", []ColumnDef{
		{Name: "Flags", Kind: ColU16},
		{Name: "Sequence", Kind: ColU16},
		{Name: "Name", Kind: ColStringHeap},
	}},
	InterfaceImpl: {InterfaceImpl, "InterfaceImpl", []ColumnDef{
		{Name: "Class", Kind: ColSimpleIndex, Target: TypeDef},
		{Name: "Interface", Kind: ColCodedIndex, Coded: CodedTypeDefOrRef},
	}},
	MemberRef: {MemberRef, "MemberRef", []ColumnDef{
		{Name: "Class", Kind: ColCodedIndex, Coded: CodedMemberRefParent},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "Signature", Kind: ColBlobHeap},
	}},
	Constant: {Constant, "Constant", []ColumnDef{
		{Name: "Type", Kind: ColU16},
		{Name: "Parent", Kind: ColCodedIndex, Coded: CodedHasConstant},
		{Name: "Value", Kind: ColBlobHeap},
	}},
	CustomAttribute: {CustomAttribute, "CustomAttribute", []ColumnDef{
		{Name: "Parent", Kind: ColCodedIndex, Coded: CodedHasCustomAttribute},
		{Name: "Type", Kind: ColCodedIndex, Coded: CodedCustomAttributeType},
		{Name: "Value", Kind: ColBlobHeap},
	}},
	FieldMarshal: {FieldMarshal, "FieldMarshal", []ColumnDef{
		{Name: "Parent", Kind: ColCodedIndex, Coded: CodedHasFieldMarshal},
		{Name: "NativeType", Kind: ColBlobHeap},
	}},
	DeclSecurity: {DeclSecurity, "DeclSecurity", []ColumnDef{
		{Name: "Action", Kind: ColU16},
		{Name: "Parent", Kind: ColCodedIndex, Coded: CodedHasDeclSecurity},
		{Name: "PermissionSet", Kind: ColBlobHeap},
	}},
	ClassLayout: {ClassLayout, "ClassLayout", []ColumnDef{
		{Name: "PackingSize", Kind: ColU16},
		{Name: "ClassSize", Kind: ColU32},
		{Name: "Parent", Kind: ColSimpleIndex, Target: TypeDef},
	}},
	FieldLayout: {FieldLayout, "FieldLayout", []ColumnDef{
		{Name: "Offset", Kind: ColU32},
		{Name: "Field", Kind: ColSimpleIndex, Target: Field},
	}},
	StandAloneSig: {StandAloneSig, "StandAloneSig", []ColumnDef{
		{Name: "Signature", Kind: ColBlobHeap},
	}},
	EventMap: {EventMap, "EventMap", []ColumnDef{
		{Name: "Parent", Kind: ColSimpleIndex, Target: TypeDef},
		{Name: "EventList", Kind: ColRunList, Target: Event},
	}},
	EventPtr: {EventPtr, "EventPtr", []ColumnDef{
		{Name: "Event", Kind: ColSimpleIndex, Target: Event},
	}},
	Event: {Event, "Event", []ColumnDef{
		{Name: "EventFlags", Kind: ColU16},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "EventType", Kind: ColCodedIndex, Coded: CodedTypeDefOrRef},
	}},
	PropertyMap: {PropertyMap, "PropertyMap", []ColumnDef{
		{Name: "Parent", Kind: ColSimpleIndex, Target: TypeDef},
		{Name: "PropertyList", Kind: ColRunList, Target: Property},
	}},
	PropertyPtr: {PropertyPtr, "PropertyPtr", []ColumnDef{
		{Name: "Property", Kind: ColSimpleIndex, Target: Property},
	}},
	Property: {Property, "Property", []ColumnDef{
		{Name: "Flags", Kind: ColU16},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "Type", Kind: ColBlobHeap},
	}},
	MethodSemantics: {MethodSemantics, "MethodSemantics", []ColumnDef{
		{Name: "Semantics", Kind: ColU16},
		{Name: "Method", Kind: ColSimpleIndex, Target: MethodDef},
		{Name: "Association", Kind: ColCodedIndex, Coded: CodedHasSemantics},
	}},
	MethodImpl: {MethodImpl, "MethodImpl", []ColumnDef{
		{Name: "Class", Kind: ColSimpleIndex, Target: TypeDef},
		{Name: "MethodBody", Kind: ColCodedIndex, Coded: CodedMethodDefOrRef},
		{Name: "MethodDeclaration", Kind: ColCodedIndex, Coded: CodedMethodDefOrRef},
	}},
	ModuleRef: {ModuleRef, "ModuleRef", []ColumnDef{
		{Name: "Name", Kind: ColStringHeap},
	}},
	TypeSpec: {TypeSpec, "TypeSpec", []ColumnDef{
		{Name: "Signature", Kind: ColBlobHeap},
	}},
	ImplMap: {ImplMap, "ImplMap", []ColumnDef{
		{Name: "MappingFlags", Kind: ColU16},
		{Name: "MemberForwarded", Kind: ColCodedIndex, Coded: CodedMemberForwarded},
		{Name: "ImportName", Kind: ColStringHeap},
		{Name: "ImportScope", Kind: ColSimpleIndex, Target: ModuleRef},
	}},
	FieldRVA: {FieldRVA, "FieldRVA", []ColumnDef{
		{Name: "RVA", Kind: ColU32},
		{Name: "Field", Kind: ColSimpleIndex, Target: Field},
	}},
	EncLog: {EncLog, "EncLog", []ColumnDef{
		{Name: "Token", Kind: ColU32},
		{Name: "FuncCode", Kind: ColU32},
	}},
	EncMap: {EncMap, "EncMap", []ColumnDef{
		{Name: "Token", Kind: ColU32},
	}},
	Assembly: {Assembly, "Assembly", []ColumnDef{
		{Name: "HashAlgId", Kind: ColU32},
		{Name: "MajorVersion", Kind: ColU16},
		{Name: "MinorVersion", Kind: ColU16},
		{Name: "BuildNumber", Kind: ColU16},
		{Name: "RevisionNumber", Kind: ColU16},
		{Name: "Flags", Kind: ColU32},
		{Name: "PublicKey", Kind: ColBlobHeap},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "Culture", Kind: ColStringHeap},
	}},
	AssemblyProcessor: {AssemblyProcessor, "AssemblyProcessor", []ColumnDef{
		{Name: "Processor", Kind: ColU32},
	}},
	AssemblyOS: {AssemblyOS, "AssemblyOS", []ColumnDef{
		{Name: "OSPlatformID", Kind: ColU32},
		{Name: "OSMajorVersion", Kind: ColU32},
		{Name: "OSMinorVersion", Kind: ColU32},
	}},
	AssemblyRef: {AssemblyRef, "AssemblyRef", []ColumnDef{
		{Name: "MajorVersion", Kind: ColU16},
		{Name: "MinorVersion", Kind: ColU16},
		{Name: "BuildNumber", Kind: ColU16},
		{Name: "RevisionNumber", Kind: ColU16},
		{Name: "Flags", Kind: ColU32},
		{Name: "PublicKeyOrToken", Kind: ColBlobHeap},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "Culture", Kind: ColStringHeap},
		{Name: "HashValue", Kind: ColBlobHeap},
	}},
	AssemblyRefProcessor: {AssemblyRefProcessor, "AssemblyRefProcessor", []ColumnDef{
		{Name: "Processor", Kind: ColU32},
		{Name: "AssemblyRef", Kind: ColSimpleIndex, Target: AssemblyRef},
	}},
	AssemblyRefOS: {AssemblyRefOS, "AssemblyRefOS", []ColumnDef{
		{Name: "OSPlatformID", Kind: ColU32},
		{Name: "OSMajorVersion", Kind: ColU32},
		{Name: "OSMinorVersion", Kind: ColU32},
		{Name: "AssemblyRef", Kind: ColSimpleIndex, Target: AssemblyRef},
	}},
	File: {File, "File", []ColumnDef{
		{Name: "Flags", Kind: ColU32},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "HashValue", Kind: ColBlobHeap},
	}},
	ExportedType: {ExportedType, "ExportedType", []ColumnDef{
		{Name: "Flags", Kind: ColU32},
		{Name: "TypeDefId", Kind: ColU32},
		{Name: "TypeName", Kind: ColStringHeap},
		{Name: "TypeNamespace", Kind: ColStringHeap},
		{Name: "Implementation", Kind: ColCodedIndex, Coded: CodedImplementation},
	}},
	ManifestResource: {ManifestResource, "ManifestResource", []ColumnDef{
		{Name: "Offset", Kind: ColU32},
		{Name: "Flags", Kind: ColU32},
		{Name: "Name", Kind: ColStringHeap},
		{Name: "Implementation", Kind: ColCodedIndex, Coded: CodedImplementation},
	}},
	NestedClass: {NestedClass, "NestedClass", []ColumnDef{
		{Name: "NestedClass", Kind: ColSimpleIndex, Target: TypeDef},
		{Name: "EnclosingClass", Kind: ColSimpleIndex, Target: TypeDef},
	}},
	GenericParam: {GenericParam, "GenericParam", []ColumnDef{
		{Name: "Number", Kind: ColU16},
		{Name: "Flags", Kind: ColU16},
		{Name: "Owner", Kind: ColCodedIndex, Coded: CodedTypeOrMethodDef},
		{Name: "Name", Kind: ColStringHeap},
	}},
	MethodSpec: {MethodSpec, "MethodSpec", []ColumnDef{
		{Name: "Method", Kind: ColCodedIndex, Coded: CodedMethodDefOrRef},
		{Name: "Instantiation", Kind: ColBlobHeap},
	}},
	GenericParamConstraint: {GenericParamConstraint, "GenericParamConstraint", []ColumnDef{
		{Name: "Owner", Kind: ColSimpleIndex, Target: GenericParam},
		{Name: "Constraint", Kind: ColCodedIndex, Coded: CodedTypeDefOrRef},
	}},
}

// tableName returns the catalog name for id, or "Unused"/"" for the
// placeholder slots.
func tableName(id TableID) string {
	if def, ok := tableCatalog[id]; ok {
		return def.Name
	}
	if id == UnusedTable {
		return "Unused"
	}
	return ""
}
