package executor_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/gqltools/internal/executor"
	language "github.com/hanpama/gqltools/internal/language"
	schema "github.com/hanpama/gqltools/internal/schema"
)

// buildSchema builds a schema from SDL and marks the "Type.field" coordinates
// in async as batch-resolved.
func buildSchema(t *testing.T, sdl string, async ...string) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	for _, coord := range async {
		typeName, fieldName, ok := strings.Cut(coord, ".")
		require.True(t, ok, coord)
		f := sch.Types[typeName].Field(fieldName)
		require.NotNil(t, f, coord)
		f.SetAsync(true)
	}
	return sch
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	require.NoError(t, err)
	return d
}

// prop resolves a key of a map source.
func prop(name string) executor.MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		m, _ := source.(map[string]any)
		return m[name], nil
	}
}

var ignoreLocations = cmpopts.IgnoreFields(executor.GraphQLError{}, "Locations")

func diffResult(t *testing.T, want, got *executor.ExecutionResult, opts ...cmp.Option) {
	t.Helper()
	opts = append(opts, cmpopts.EquateEmpty())
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

const helloSDL = `
type Query {
  hello(name: String = "world"): String
  user: User
}
type User { id: ID! name: String }
`

func TestExecute_SyncFieldsAliasesAndTypename(t *testing.T) {
	sch := buildSchema(t, helloSDL)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": func(ctx context.Context, source any, args map[string]any) (any, error) {
			return "hello " + args["name"].(string), nil
		},
		"Query.user": executor.NewMockValueResolver(map[string]any{"id": "1", "name": "Ada"}),
		"User.id":    prop("id"),
		"User.name":  prop("name"),
	})

	doc := mustParseQuery(t, `{ hello greeting: hello(name: "you") user { __typename id name } }`)
	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	diffResult(t, &executor.ExecutionResult{
		Data: map[string]any{
			"hello":    "hello world",
			"greeting": "hello you",
			"user":     map[string]any{"__typename": "User", "id": "1", "name": "Ada"},
		},
	}, got)
}

func TestExecute_RootValueIsSourceOfRootFields(t *testing.T) {
	sch := buildSchema(t, helloSDL)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": prop("greeting"),
	})

	doc := mustParseQuery(t, `{ hello }`)
	root := map[string]any{"greeting": "hi"}
	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, root)

	diffResult(t, &executor.ExecutionResult{Data: map[string]any{"hello": "hi"}}, got)
}

func TestExecute_Variables(t *testing.T) {
	sch := buildSchema(t, helloSDL)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": func(ctx context.Context, source any, args map[string]any) (any, error) {
			return "hello " + args["name"].(string), nil
		},
	})
	exec := executor.NewExecutor(rt, sch)
	doc := mustParseQuery(t, `query Greet($n: String!) { hello(name: $n) }`)

	t.Run("provided", func(t *testing.T) {
		got := exec.ExecuteRequest(context.Background(), doc, "", map[string]any{"n": "x"}, nil)
		diffResult(t, &executor.ExecutionResult{Data: map[string]any{"hello": "hello x"}}, got)
	})

	t.Run("missing required", func(t *testing.T) {
		got := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
		diffResult(t, &executor.ExecutionResult{
			Errors: []executor.GraphQLError{{Message: "variable $n of required type String! was not provided"}},
		}, got)
	})
}

const filterSDL = `
enum Color { RED GREEN }
input Filter { color: Color = RED, limit: Int = 10 }
type Query { items(filter: Filter): String }
`

func TestExecute_InputObjectDefaultsAndEnums(t *testing.T) {
	sch := buildSchema(t, filterSDL)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.items": executor.NewMockValueResolver("ok"),
	})
	exec := executor.NewExecutor(rt, sch)

	got := exec.ExecuteRequest(context.Background(), mustParseQuery(t, `{ items(filter: {limit: 2}) }`), "", nil, nil)
	diffResult(t, &executor.ExecutionResult{Data: map[string]any{"items": "ok"}}, got)

	calls := rt.Calls()
	require.Len(t, calls, 1)
	want := map[string]any{"filter": map[string]any{"color": "RED", "limit": 2}}
	if diff := cmp.Diff(want, calls[0].Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_UnknownEnumArgument(t *testing.T) {
	sch := buildSchema(t, filterSDL)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.items": executor.NewMockValueResolver("ok"),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, `{ items(filter: {color: BLUE}) }`), "", nil, nil)
	require.Len(t, got.Errors, 1)
	require.Contains(t, got.Errors[0].Message, "not a member of enum Color")
	require.Equal(t, executor.Path{"items"}, got.Errors[0].Path)
}

func TestExecute_ListOfTypedSlice(t *testing.T) {
	sch := buildSchema(t, `type Query { tags: [String!] }`)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.tags": executor.NewMockValueResolver([]string{"a", "b"}),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, `{ tags }`), "", nil, nil)
	diffResult(t, &executor.ExecutionResult{Data: map[string]any{"tags": []any{"a", "b"}}}, got)
}

func TestExecute_LeafSerialization(t *testing.T) {
	sch := buildSchema(t, `enum Color { RED GREEN } type Query { color: Color }`)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.color": executor.NewMockValueResolver(1),
	})
	rt.Serialize = func(typeName string, val any) (any, error) {
		if typeName == "Color" {
			return []string{"RED", "GREEN"}[val.(int)], nil
		}
		return val, nil
	}

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, `{ color }`), "", nil, nil)
	diffResult(t, &executor.ExecutionResult{Data: map[string]any{"color": "GREEN"}}, got)
}
