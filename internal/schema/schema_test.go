package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	language "github.com/hanpama/gqltools/internal/language"
)

const testSDL = `
directive @upper on FIELD_DEFINITION
directive @length(max: Int = 10) on FIELD_DEFINITION | OBJECT

interface Node { id: ID! }
interface Named { name: String }

type User implements Node & Named @length {
  id: ID!
  name: String @upper @length(max: 3)
  legacy: String @deprecated
}

union SearchResult = User | Post

type Post implements Node {
  id: ID!
  title(lang: String = "en"): String
}

enum Color { RED GREEN @deprecated(reason: "use RED") }

type Query {
  node(id: ID!): Node
  search: [SearchResult!]!
}
`

func buildTestSchema(t *testing.T) *Schema {
	t.Helper()
	src, err := language.LoadSchema(
		&language.Source{Name: "base.graphql", Input: testSDL},
		&language.Source{Name: "ext.graphql", Input: `extend type Query { color: Color }`},
	)
	require.NoError(t, err)
	sch, err := BuildFromAST(src)
	require.NoError(t, err)
	return sch
}

func TestBuildFromAST_MergesExtensions(t *testing.T) {
	sch := buildTestSchema(t)
	q := sch.GetQueryType()
	require.NotNil(t, q)

	var names []string
	for _, f := range q.Fields {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"node", "search", "color"}, names); diff != "" {
		t.Fatalf("query fields mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFromAST_PreservesInterfaceOrder(t *testing.T) {
	sch := buildTestSchema(t)
	require.Equal(t, []string{"Node", "Named"}, sch.Types["User"].Interfaces)
	require.Equal(t, []string{"Post", "User"}, sch.Types["Node"].PossibleTypes)
	require.Equal(t, []string{"User", "Post"}, sch.Types["SearchResult"].PossibleTypes)
	require.True(t, sch.IsPossibleType("Node", "User"))
	require.False(t, sch.IsPossibleType("Named", "Post"))
}

func TestBuildFromAST_AppliedDirectives(t *testing.T) {
	sch := buildTestSchema(t)
	user := sch.Types["User"]

	want := []*AppliedDirective{
		{Name: "upper", Args: map[string]any{}},
		{Name: "length", Args: map[string]any{"max": int64(3)}},
	}
	if diff := cmp.Diff(want, user.Field("name").Directives); diff != "" {
		t.Fatalf("field directives mismatch (-want +got):\n%s", diff)
	}

	wantType := []*AppliedDirective{{Name: "length", Args: map[string]any{"max": int64(10)}}}
	if diff := cmp.Diff(wantType, user.Directives); diff != "" {
		t.Fatalf("type directives mismatch (-want +got):\n%s", diff)
	}

	// @deprecated is folded into the field, not recorded as a directive.
	legacy := user.Field("legacy")
	require.Empty(t, legacy.Directives)
	require.True(t, legacy.IsDeprecated)
	require.Equal(t, defaultDeprecationReason, legacy.DeprecationReason)
}

func TestBuildFromAST_ArgumentsAndEnums(t *testing.T) {
	sch := buildTestSchema(t)

	title := sch.Types["Post"].Field("title")
	require.Len(t, title.Arguments, 1)
	require.Equal(t, "en", title.Argument("lang").DefaultValue)

	color := sch.Types["Color"]
	require.Equal(t, TypeKindEnum, color.Kind)
	require.Len(t, color.EnumValues, 2)
	green := color.EnumValue("GREEN")
	require.True(t, green.IsDeprecated)
	require.Equal(t, "use RED", green.DeprecationReason)
}

func TestBuildFromAST_PreludeTypesAreBuiltIn(t *testing.T) {
	sch := buildTestSchema(t)
	require.True(t, sch.Types["String"].BuiltIn)
	require.NotNil(t, sch.Types["__Schema"])
	require.True(t, sch.Directives["skip"].BuiltIn)
	require.False(t, sch.Directives["upper"].BuiltIn)

	// __schema and __type are added by the introspection wrapper, not here.
	require.Nil(t, sch.GetQueryType().Field("__schema"))
}

func TestBuildFromSDL_InvalidSchema(t *testing.T) {
	_, err := BuildFromSDL(`type Query { a: Missing }`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Missing")
}

func TestDefaultString(t *testing.T) {
	sch, err := BuildFromSDL(`
enum Kind { DOG CAT }
type Query { pets(kind: Kind = DOG, limit: Int = 3, tags: [String!] = ["a"], name: String): [String] }
`)
	require.NoError(t, err)
	f := sch.Types["Query"].Field("pets")
	require.Equal(t, "DOG", f.Argument("kind").DefaultString())
	require.Equal(t, "3", f.Argument("limit").DefaultString())
	require.Equal(t, `["a"]`, f.Argument("tags").DefaultString())

	built := NewInputValue("where", "", NamedType("Filter")).SetDefault(map[string]any{"b": 1.5, "a": []any{"x", nil, true}})
	require.Equal(t, `{a: ["x", null, true], b: 1.5}`, built.DefaultString())
}

func TestTypeRefString(t *testing.T) {
	ref := NonNullType(ListType(NonNullType(NamedType("String"))))
	require.Equal(t, "[String!]!", ref.String())
	require.True(t, IsList(ref))
	require.Equal(t, "String", GetNamedType(ref))
}
