package clr

// MethodOwner identifies whether a Method value is a MethodDef defined in
// this image, or a MemberRef pointing at a method defined elsewhere.
type MethodOwner int

const (
	MethodInternal MethodOwner = iota
	MethodExternal
)

// Method is the façade spec section 3 describes over MethodDef and
// MemberRef rows: a caller working with call sites and definitions
// shouldn't have to branch on which table a token landed in. Signature
// blobs are retained raw; this decoder does not parse method signatures
// (calling convention byte, param count, return/param type blobs), only
// the surrounding table structure.
type Method struct {
	Owner MethodOwner

	// Internal-only (Owner == MethodInternal): the defining MethodDef row.
	Def *MethodDefRow
	// Params is the method's own parameter rows, in Param table order,
	// resolved via MethodDef.ParamList's run-list.
	Params []ParamRow

	// External-only (Owner == MethodExternal): the referencing MemberRef
	// row and the class (TypeRef/TypeDef/TypeSpec/ModuleRef/MethodDef) it
	// resolved its Class coded index to.
	Ref   *MemberRefRow
	Class *Row

	Name      string
	Signature []byte
}

// buildMethods walks every MethodDef row (internal methods) and every
// MemberRef row (external call sites), producing one Method per row.
// MemberRef rows are not filtered: telling a field reference from a
// method reference needs the signature's leading calling-convention
// byte, which this decoder does not parse, so MemberRef-derived entries
// can include field references.
func buildMethods(tables *Tables) []*Method {
	var out []*Method

	if defTable := tables.Table(MethodDef); defTable != nil {
		for _, row := range defTable.Rows() {
			def := MethodDefRow{row}
			params := def.ParamList()
			ps := make([]ParamRow, 0, len(params))
			for _, p := range params {
				ps = append(ps, ParamRow{p})
			}
			out = append(out, &Method{
				Owner:     MethodInternal,
				Def:       &def,
				Params:    ps,
				Name:      def.Name(),
				Signature: def.Signature(),
			})
		}
	}

	if refTable := tables.Table(MemberRef); refTable != nil {
		for _, row := range refTable.Rows() {
			ref := MemberRefRow{row}
			out = append(out, &Method{
				Owner:     MethodExternal,
				Ref:       &ref,
				Class:     ref.Class(),
				Name:      ref.Name(),
				Signature: ref.Signature(),
			})
		}
	}

	return out
}

// InternalMethods returns only the methods this image defines.
func InternalMethods(methods []*Method) []*Method {
	return filterMethods(methods, MethodInternal)
}

// ExternalMethods returns only the MemberRef-derived entries (see
// buildMethods: these are not filtered to method references).
func ExternalMethods(methods []*Method) []*Method {
	return filterMethods(methods, MethodExternal)
}

func filterMethods(methods []*Method, owner MethodOwner) []*Method {
	out := make([]*Method, 0, len(methods))
	for _, m := range methods {
		if m.Owner == owner {
			out = append(out, m)
		}
	}
	return out
}
