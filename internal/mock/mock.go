// Package mock generates resolver maps that answer every field of a schema
// with placeholder values.
package mock

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	gqltools "github.com/hanpama/gqltools"
	schema "github.com/hanpama/gqltools/internal/schema"
)

// Options configures Resolvers.
type Options struct {
	// Fixed maps "Type.field" to the value that field always returns.
	Fixed map[string]any
	// Preserve holds resolvers that take precedence over generated ones.
	Preserve gqltools.Resolvers
	// ListLength is the number of items in mocked lists. Default 2.
	ListLength int
}

// Resolvers returns a resolver map with a mock resolver for every field of
// every object type in sch, and a ResolveType for every abstract type.
//
// A mock resolver returns, in order: the value under the field name when the
// parent is a map holding it, the fixed value for the field, or a generated
// value for the field type.
func Resolvers(sch *schema.Schema, opts Options) gqltools.Resolvers {
	if opts.ListLength <= 0 {
		opts.ListLength = 2
	}
	g := &generator{schema: sch, opts: opts}
	out := gqltools.Resolvers{}
	for name, t := range sch.Types {
		if t.BuiltIn || t.IsIntrospection() {
			continue
		}
		preserved := opts.Preserve[name]
		switch t.Kind {
		case schema.TypeKindObject:
			tr := &gqltools.TypeResolvers{Fields: map[string]gqltools.FieldResolveFn{}}
			if preserved != nil {
				cp := *preserved
				tr = &cp
				tr.Fields = map[string]gqltools.FieldResolveFn{}
				for f, fn := range preserved.Fields {
					tr.Fields[f] = fn
				}
			}
			for _, f := range t.Fields {
				if _, ok := tr.Fields[f.Name]; ok {
					continue
				}
				tr.Fields[f.Name] = g.fieldResolver(t.Name, f)
			}
			out[name] = tr
		case schema.TypeKindInterface, schema.TypeKindUnion:
			tr := &gqltools.TypeResolvers{}
			if preserved != nil {
				cp := *preserved
				tr = &cp
			}
			if tr.ResolveType == nil {
				tr.ResolveType = g.resolveType(t)
			}
			out[name] = tr
		default:
			if preserved != nil {
				out[name] = preserved
			}
		}
	}
	return out
}

// LoadFixed decodes a YAML document mapping "Type.field" keys to values.
func LoadFixed(r io.Reader) (map[string]any, error) {
	fixed := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&fixed); err != nil && err != io.EOF {
		return nil, fmt.Errorf("mock: decode fixed values: %w", err)
	}
	for key := range fixed {
		typeName, fieldName, ok := strings.Cut(key, ".")
		if !ok || typeName == "" || fieldName == "" {
			return nil, fmt.Errorf("mock: key %q must have the form Type.field", key)
		}
	}
	return fixed, nil
}

type generator struct {
	schema *schema.Schema
	opts   Options
}

func (g *generator) fieldResolver(typeName string, f *schema.Field) gqltools.FieldResolveFn {
	key := typeName + "." + f.Name
	return func(_ context.Context, source any, _ map[string]any) (any, error) {
		if m, ok := source.(map[string]any); ok {
			if v, ok := m[f.Name]; ok {
				return v, nil
			}
		}
		if v, ok := g.opts.Fixed[key]; ok {
			return v, nil
		}
		return g.value(f.Type), nil
	}
}

// resolveType reads "__typename" from map values and falls back to the first
// possible type.
func (g *generator) resolveType(t *schema.Type) gqltools.TypeResolveFn {
	return func(_ context.Context, value any) (string, error) {
		if m, ok := value.(map[string]any); ok {
			if name, ok := m["__typename"].(string); ok && g.schema.IsPossibleType(t.Name, name) {
				return name, nil
			}
		}
		if len(t.PossibleTypes) == 0 {
			return "", fmt.Errorf("mock: %s has no possible types", t.Name)
		}
		return t.PossibleTypes[0], nil
	}
}

func (g *generator) value(ref *schema.TypeRef) any {
	if schema.IsNonNull(ref) {
		return g.value(schema.Unwrap(ref))
	}
	if schema.IsList(ref) {
		items := make([]any, g.opts.ListLength)
		for i := range items {
			items[i] = g.value(schema.Unwrap(ref))
		}
		return items
	}

	name := schema.GetNamedType(ref)
	switch name {
	case "String":
		return "Hello World"
	case "Int":
		return 42
	case "Float":
		return 4.2
	case "Boolean":
		return true
	case "ID":
		return uuid.NewString()
	}

	t := g.schema.Types[name]
	if t == nil {
		return nil
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		if len(t.EnumValues) == 0 {
			return nil
		}
		first := t.EnumValues[0].Name
		if tr := g.opts.Preserve[name]; tr != nil {
			if internal, ok := tr.EnumValues[first]; ok {
				return internal
			}
		}
		return first
	case schema.TypeKindObject:
		return map[string]any{}
	case schema.TypeKindInterface, schema.TypeKindUnion:
		if len(t.PossibleTypes) == 0 {
			return nil
		}
		return map[string]any{"__typename": t.PossibleTypes[0]}
	default:
		return "Hello World"
	}
}

// MakeExecutableSchema builds cfg with mock resolvers for every field that
// cfg.Resolvers leaves open. opts.Preserve defaults to cfg.Resolvers.
func MakeExecutableSchema(cfg gqltools.Config, opts Options) (*gqltools.ExecutableSchema, error) {
	draft := gqltools.Config{
		TypeDefs: cfg.TypeDefs,
		Sources:  cfg.Sources,
		ResolverValidationOptions: gqltools.ResolverValidationOptions{
			RequireResolversForResolveType: gqltools.RequirementIgnore,
		},
	}
	base, err := gqltools.MakeExecutableSchema(draft)
	if err != nil {
		return nil, err
	}
	if opts.Preserve == nil {
		opts.Preserve = cfg.Resolvers
	}
	cfg.Resolvers = Resolvers(base.Schema(), opts)
	return gqltools.MakeExecutableSchema(cfg)
}
