package gqltools

import (
	"context"

	executor "github.com/hanpama/gqltools/internal/executor"
)

type (
	ExecutionResult = executor.ExecutionResult
	GraphQLError    = executor.GraphQLError
	Location        = executor.Location
	Path            = executor.Path
)

// FieldResolveFn produces the value of one field. args holds the coerced
// field arguments, with enum names already mapped to their internal values.
type FieldResolveFn func(ctx context.Context, source any, args map[string]any) (any, error)

// TypeResolveFn returns the name of the concrete object type of value.
type TypeResolveFn func(ctx context.Context, value any) (string, error)

// IsTypeOfFn reports whether value belongs to the object type it is
// registered on.
type IsTypeOfFn func(ctx context.Context, value any) bool

// ScalarResolvers converts custom scalar values between their internal and
// wire representations. Either function may be nil to pass values through.
type ScalarResolvers struct {
	Serialize  func(value any) (any, error)
	ParseValue func(value any) (any, error)
}

// TypeResolvers holds everything registered for one named type.
type TypeResolvers struct {
	Fields      map[string]FieldResolveFn
	ResolveType TypeResolveFn
	IsTypeOf    IsTypeOfFn
	Scalar      *ScalarResolvers
	// EnumValues maps enum value names to internal values.
	EnumValues map[string]any
}

// Resolvers is the resolver map, keyed by type name.
type Resolvers map[string]*TypeResolvers

// clone copies the map and the per-type field maps so construction never
// mutates the caller's resolvers.
func (r Resolvers) clone() Resolvers {
	out := make(Resolvers, len(r))
	for name, tr := range r {
		if tr == nil {
			out[name] = nil
			continue
		}
		cp := *tr
		cp.Fields = make(map[string]FieldResolveFn, len(tr.Fields))
		for f, fn := range tr.Fields {
			cp.Fields[f] = fn
		}
		out[name] = &cp
	}
	return out
}

func (r Resolvers) field(typeName, fieldName string) FieldResolveFn {
	if tr := r[typeName]; tr != nil {
		return tr.Fields[fieldName]
	}
	return nil
}

// Next calls the next handler of a directive chain: the following directive
// resolver, or the field resolver itself.
type Next func() (any, error)

// DirectiveInfo describes the directive usage a directive resolver runs for.
type DirectiveInfo struct {
	// Directive is the directive name without the leading @.
	Directive string
	// DirectiveArgs are the directive's own arguments, defaults applied.
	DirectiveArgs map[string]any
	ObjectType    string
	Field         string
}

// DirectiveResolveFn is middleware around a field resolver. args are the field
// arguments.
type DirectiveResolveFn func(ctx context.Context, next Next, source any, args map[string]any, info DirectiveInfo) (any, error)

// DirectiveResolvers maps directive names (without @) to their resolvers.
type DirectiveResolvers map[string]DirectiveResolveFn
