// Package gqltools builds executable GraphQL schemas from schema-language
// type definitions and a resolver map.
//
// MakeExecutableSchema parses and validates the type definitions (type
// extensions are merged), optionally copies interface resolvers down to the
// implementing object types, attaches the resolver map, checks resolver
// completeness, and wraps fields that carry schema directives with the
// registered directive resolvers. The result executes queries through the
// breadth-first executor in internal/executor.
//
//	es, err := gqltools.MakeExecutableSchema(gqltools.Config{
//		TypeDefs: []string{`
//			directive @upper on FIELD_DEFINITION
//			type Query { hello: String @upper }
//		`},
//		Resolvers: gqltools.Resolvers{
//			"Query": {Fields: map[string]gqltools.FieldResolveFn{
//				"hello": func(ctx context.Context, source any, args map[string]any) (any, error) {
//					return "hello", nil
//				},
//			}},
//		},
//		DirectiveResolvers: gqltools.DirectiveResolvers{
//			"upper": func(ctx context.Context, next gqltools.Next, source any, args map[string]any, info gqltools.DirectiveInfo) (any, error) {
//				v, err := next()
//				if s, ok := v.(string); ok {
//					return strings.ToUpper(s), err
//				}
//				return v, err
//			},
//		},
//	})
//
// # Directive resolvers
//
// Directive resolvers wrap the field resolver in declaration order: the
// leftmost directive wraps the base resolver, the next one wraps that, and so
// on. Results are therefore post-processed left-to-right. Directives declared
// on an object type apply to every field of the type, inside the field's own
// directives. Directives without a registered resolver are left alone.
//
// # Resolution
//
// Fields with a resolver function are batched by the executor once per
// execution depth and run concurrently, bounded by Config.MaxConcurrency.
// Fields without one are read from the parent value by the default resolver
// (map key, struct field or json tag, zero-argument method). Root mutation
// fields always run one after another.
package gqltools
