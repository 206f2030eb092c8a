package introspection

import (
	"sync"

	schema "github.com/hanpama/gqltools/internal/schema"
)

var (
	preludeOnce sync.Once
	prelude     *schema.Schema
	preludeErr  error
)

// preludeSchema returns a schema holding only the GraphQL prelude: built-in
// scalars, directives and the __ introspection types.
func preludeSchema() (*schema.Schema, error) {
	preludeOnce.Do(func() {
		prelude, preludeErr = schema.BuildFromSDL(`type Query { ok: Boolean }`)
	})
	return prelude, preludeErr
}

// extendSchemaWithIntrospection returns a copy of original whose query type
// carries __schema and __type. Introspection types and built-in scalars
// missing from original, as in hand-built schemas, are taken from the
// prelude. original is not modified.
func extendSchemaWithIntrospection(original *schema.Schema) *schema.Schema {
	extended := &schema.Schema{
		QueryType:        original.QueryType,
		MutationType:     original.MutationType,
		SubscriptionType: original.SubscriptionType,
		Types:            make(map[string]*schema.Type, len(original.Types)),
		Directives:       original.Directives,
		Description:      original.Description,
	}
	for name, typ := range original.Types {
		extended.Types[name] = typ
	}

	if p, err := preludeSchema(); err == nil {
		for name, typ := range p.Types {
			if _, ok := extended.Types[name]; ok {
				continue
			}
			if typ.IsIntrospection() || schema.IsBuiltinScalar(name) {
				extended.Types[name] = typ
			}
		}
	}

	queryType := extended.GetQueryType()
	if queryType == nil {
		return extended
	}
	queryCopy := *queryType
	queryCopy.Fields = make([]*schema.Field, 0, len(queryType.Fields)+2)
	queryCopy.Fields = append(queryCopy.Fields, queryType.Fields...)
	queryCopy.AddField(
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
	)
	queryCopy.AddField(
		schema.NewField("__type", "Request the type information of a single type.", schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))),
	)
	extended.Types[queryCopy.Name] = &queryCopy
	return extended
}
