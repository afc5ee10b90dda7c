package clr

// CodedIndexKind identifies one of the fourteen ECMA-335 coded-index
// shapes this decoder defines. Each packs a small tag (selecting a candidate table) and a
// 1-based row index into a single integer whose physical width (2 or 4
// bytes) depends on the largest candidate table's row count.
type CodedIndexKind int

const (
	CodedTypeDefOrRef CodedIndexKind = iota
	CodedHasConstant
	CodedHasCustomAttribute
	CodedHasFieldMarshal
	CodedHasDeclSecurity
	CodedMemberRefParent
	CodedHasSemantics
	CodedMethodDefOrRef
	CodedMemberForwarded
	CodedImplementation
	CodedCustomAttributeType
	CodedResolutionScope
	CodedTypeOrMethodDef
	CodedHasCustomDebugInformation
)

// unusedTableSlot marks a tag value in a coded-index's candidate list
// that has no valid target table (e.g. CustomAttributeType's tags 0, 1
// and 4). A value coded with such a tag always resolves to absent.
const unusedTableSlot TableID = -1

// codedIndexDef is the static definition of one coded-index kind: its
// tag width in bits and its ordered candidate table list, indexed by tag
// value.
type codedIndexDef struct {
	TagBits int
	Tables  []TableID
}

// codedIndexCatalog mirrors dnfile.codedindex's thirteen definitions
// verbatim (table order and tag_bits), plus a from-scratch
// HasCustomDebugInformation entry: ECMA-335 added this coded index after
// the dnfile source this decoder otherwise follows was written, so its
// candidate list isn't attested there. It is authored here mirroring
// HasCustomAttribute's broader candidate list, since CustomDebugInformation
// attaches to the same set of metadata constructs a CustomAttribute can.
var codedIndexCatalog = map[CodedIndexKind]codedIndexDef{
	CodedTypeDefOrRef: {
		TagBits: 2,
		Tables:  []TableID{TypeDef, TypeRef, TypeSpec},
	},
	CodedHasConstant: {
		TagBits: 2,
		Tables:  []TableID{Field, Param, Property},
	},
	CodedHasCustomAttribute: {
		TagBits: 5,
		Tables: []TableID{
			MethodDef, Field, TypeRef, TypeDef, Param, InterfaceImpl, MemberRef,
			Module, DeclSecurity, Property, Event, StandAloneSig, ModuleRef,
			TypeSpec, Assembly, AssemblyRef, File, ExportedType, ManifestResource,
			GenericParam, GenericParamConstraint, MethodSpec,
		},
	},
	CodedHasFieldMarshal: {
		TagBits: 1,
		Tables:  []TableID{Field, Param},
	},
	CodedHasDeclSecurity: {
		TagBits: 2,
		Tables:  []TableID{TypeDef, MethodDef, Assembly},
	},
	CodedMemberRefParent: {
		TagBits: 3,
		Tables:  []TableID{TypeDef, TypeRef, ModuleRef, MethodDef, TypeSpec},
	},
	CodedHasSemantics: {
		TagBits: 1,
		Tables:  []TableID{Event, Property},
	},
	CodedMethodDefOrRef: {
		TagBits: 1,
		Tables:  []TableID{MethodDef, MemberRef},
	},
	CodedMemberForwarded: {
		TagBits: 1,
		Tables:  []TableID{Field, MethodDef},
	},
	CodedImplementation: {
		TagBits: 2,
		Tables:  []TableID{File, AssemblyRef, ExportedType},
	},
	CodedCustomAttributeType: {
		TagBits: 3,
		Tables:  []TableID{unusedTableSlot, unusedTableSlot, MethodDef, MemberRef, unusedTableSlot},
	},
	CodedResolutionScope: {
		TagBits: 2,
		Tables:  []TableID{Module, ModuleRef, AssemblyRef, TypeRef},
	},
	CodedTypeOrMethodDef: {
		TagBits: 1,
		Tables:  []TableID{TypeDef, MethodDef},
	},
	CodedHasCustomDebugInformation: {
		TagBits: 5,
		Tables: []TableID{
			MethodDef, Field, TypeRef, TypeDef, Param, InterfaceImpl, MemberRef,
			Module, DeclSecurity, Property, Event, StandAloneSig, ModuleRef,
			TypeSpec, Assembly, AssemblyRef, File, ExportedType, ManifestResource,
			GenericParam, GenericParamConstraint, MethodSpec,
		},
	},
}

// codedIndexWidth returns the physical column width (2 or 4 bytes) for a
// coded index given the candidate tables' row counts, per spec section
// 3: 2 bytes unless the largest candidate table's row count is
// >= 2^(16-tag_bits).
func codedIndexWidth(kind CodedIndexKind, rowCounts map[TableID]uint32) int {
	def := codedIndexCatalog[kind]
	limit := uint32(1) << uint(16-def.TagBits)
	for _, t := range def.Tables {
		if t == unusedTableSlot {
			continue
		}
		if rowCounts[t] >= limit {
			return 4
		}
	}
	return 2
}

