package schema

var builtinScalars = []*Type{
	{
		Name:        "String",
		Kind:        TypeKindScalar,
		Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
		BuiltIn:     true,
	},
	{
		Name:        "Int",
		Kind:        TypeKindScalar,
		Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
		BuiltIn:     true,
	},
	{
		Name:        "Float",
		Kind:        TypeKindScalar,
		Description: "The `Float` scalar type represents signed double-precision fractional values.",
		BuiltIn:     true,
	},
	{
		Name:        "Boolean",
		Kind:        TypeKindScalar,
		Description: "The `Boolean` scalar type represents `true` or `false`.",
		BuiltIn:     true,
	},
	{
		Name:        "ID",
		Kind:        TypeKindScalar,
		Description: "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
		BuiltIn:     true,
	},
}

// IsBuiltinScalar reports whether name is one of the five specified scalars.
func IsBuiltinScalar(name string) bool {
	switch name {
	case "String", "Int", "Float", "Boolean", "ID":
		return true
	}
	return false
}

// AddBuiltinScalars registers the named scalars on a hand-built schema.
// Schemas produced by BuildFromAST already carry them from the prelude.
func AddBuiltinScalars(s *Schema) *Schema {
	for _, t := range builtinScalars {
		if _, ok := s.Types[t.Name]; !ok {
			s.AddType(t)
		}
	}
	return s
}
