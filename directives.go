package gqltools

import (
	"context"
	"fmt"

	schema "github.com/hanpama/gqltools/internal/schema"
)

// coordinate names one field of one type.
type coordinate struct {
	Type  string
	Field string
}

func (c coordinate) String() string { return c.Type + "." + c.Field }

// attachDirectiveResolvers wraps the resolver of every object field that
// carries a directive with a registered resolver. Type-level directives come
// first, then field-level ones, each in declaration order; every directive
// wraps the chain built so far.
func attachDirectiveResolvers(sch *schema.Schema, fields map[coordinate]FieldResolveFn, directiveResolvers DirectiveResolvers) error {
	if len(directiveResolvers) == 0 {
		return nil
	}
	for _, name := range sortedKeys(directiveResolvers) {
		if directiveResolvers[name] == nil {
			return fmt.Errorf("directive resolver for \"@%s\" must be a function", name)
		}
	}

	for _, typeName := range sortedKeys(sch.Types) {
		t := sch.Types[typeName]
		if t.Kind != schema.TypeKindObject || t.BuiltIn || t.IsIntrospection() {
			continue
		}
		for _, f := range t.Fields {
			chain := make([]*schema.AppliedDirective, 0, len(t.Directives)+len(f.Directives))
			chain = append(chain, t.Directives...)
			chain = append(chain, f.Directives...)

			coord := coordinate{Type: t.Name, Field: f.Name}
			resolve, wrapped := fields[coord], false
			for _, d := range chain {
				dr, ok := directiveResolvers[d.Name]
				if !ok {
					continue
				}
				if resolve == nil {
					resolve = defaultResolverFor(f.Name)
				}
				resolve = wrapDirective(resolve, dr, DirectiveInfo{
					Directive:     d.Name,
					DirectiveArgs: d.Args,
					ObjectType:    t.Name,
					Field:         f.Name,
				})
				wrapped = true
			}
			if wrapped {
				fields[coord] = resolve
			}
		}
	}
	return nil
}

func wrapDirective(next FieldResolveFn, dr DirectiveResolveFn, info DirectiveInfo) FieldResolveFn {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return dr(ctx, func() (any, error) { return next(ctx, source, args) }, source, args, info)
	}
}
