package gqltools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/gqltools/internal/schema"
)

func buildTestSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	return sch
}

type color int

const (
	red color = iota + 1
	green
)

func TestEnumInternalValues(t *testing.T) {
	var gotArg any
	s := mustMake(t, Config{
		TypeDefs: []string{`
			enum Color { RED GREEN BLUE }
			type Query { favorite(of: Color = RED): Color, all: [Color!]! }
		`},
		Resolvers: Resolvers{
			"Color": {EnumValues: map[string]any{"RED": red, "GREEN": green}},
			"Query": {Fields: map[string]FieldResolveFn{
				"favorite": func(_ context.Context, _ any, args map[string]any) (any, error) {
					gotArg = args["of"]
					return args["of"], nil
				},
				"all": value([]any{green, red, "BLUE"}),
			}},
		},
	})

	res := run(t, s, `{ favorite(of: GREEN) all }`)
	require.Empty(t, res.Errors)
	assert.Equal(t, green, gotArg)
	assert.Equal(t, map[string]any{"favorite": "GREEN", "all": []any{"GREEN", "RED", "BLUE"}}, res.Data)

	res = run(t, s, `{ favorite }`)
	require.Empty(t, res.Errors)
	assert.Equal(t, red, gotArg)
	assert.Equal(t, map[string]any{"favorite": "RED"}, res.Data)
}

func TestEnumCannotRepresentValue(t *testing.T) {
	s := mustMake(t, Config{
		TypeDefs: []string{`enum Color { RED } type Query { c: Color }`},
		Resolvers: Resolvers{
			"Color": {EnumValues: map[string]any{"RED": red}},
			"Query": {Fields: map[string]FieldResolveFn{"c": value(color(9))}},
		},
	})
	res := run(t, s, `{ c }`)
	assert.Equal(t, map[string]any{"c": nil}, res.Data)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, `enum "Color" cannot represent value: 9`, res.Errors[0].Message)
}

func TestCustomScalar(t *testing.T) {
	var parsed any
	s := mustMake(t, Config{
		TypeDefs: []string{`
			scalar Date
			input Range { from: Date! }
			type Query { after(r: Range!): Date }
		`},
		Resolvers: Resolvers{
			"Date": {Scalar: &ScalarResolvers{
				Serialize: func(v any) (any, error) {
					return v.(time.Time).Format(time.DateOnly), nil
				},
				ParseValue: func(v any) (any, error) {
					s, ok := v.(string)
					if !ok {
						return nil, fmt.Errorf("Date must be a string")
					}
					return time.Parse(time.DateOnly, s)
				},
			}},
			"Query": {Fields: map[string]FieldResolveFn{
				"after": func(_ context.Context, _ any, args map[string]any) (any, error) {
					from := args["r"].(map[string]any)["from"].(time.Time)
					parsed = from
					return from.AddDate(0, 0, 1), nil
				},
			}},
		},
	})

	res := s.Execute(context.Background(), Params{
		Query:     `query($d: Date!) { after(r: { from: $d }) }`,
		Variables: map[string]any{"d": "2024-02-28"},
	})
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"after": "2024-02-29"}, res.Data)
	assert.Equal(t, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), parsed)

	res = run(t, s, `{ after(r: { from: "yesterday" }) }`)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, `argument "r"`)
	assert.Equal(t, map[string]any{"after": nil}, res.Data)
}

type book struct {
	ID     string `json:"id"`
	Title  string
	author *person
}

func (b book) Author() *person { return b.author }

type person struct{ Name string }

func (p *person) Initials() (string, error) {
	if p.Name == "" {
		return "", errors.New("no name")
	}
	return p.Name[:1], nil
}

func TestDefaultFieldResolver(t *testing.T) {
	s := mustMake(t, Config{
		TypeDefs: []string{`
			type Query { book: Book, missing: Book }
			type Book { id: ID! title: String author: Person }
			type Person { name: String initials: String }
		`},
		Resolvers: Resolvers{"Query": {Fields: map[string]FieldResolveFn{
			"book":    value(&book{ID: "b1", Title: "Dune", author: &person{Name: "Frank"}}),
			"missing": value((*book)(nil)),
		}}},
	})
	res := run(t, s, `{ book { id title author { name initials } } missing { id } }`)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{
		"book": map[string]any{
			"id":     "b1",
			"title":  "Dune",
			"author": map[string]any{"name": "Frank", "initials": "F"},
		},
		"missing": nil,
	}, res.Data)
}

func TestDefaultFieldResolverMethodError(t *testing.T) {
	_, err := DefaultFieldResolver(&person{}, "initials")
	assert.EqualError(t, err, "no name")

	v, err := DefaultFieldResolver(map[string]any{"a": 1}, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = DefaultFieldResolver(map[string]string{"a": "x"}, "a")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = DefaultFieldResolver(42, "a")
	require.NoError(t, err)
	assert.Nil(t, v)
}

type dog struct{ Name string }
type cat struct{ Name string }

func TestResolveTypeFallbacks(t *testing.T) {
	sdl := `
		type Query { pets: [Pet!]! }
		union Pet = Dog | Cat | Bird
		type Dog { name: String }
		type Cat { name: String }
		type Bird { name: String }
	`
	s := mustMake(t, Config{
		TypeDefs: []string{sdl},
		Resolvers: Resolvers{
			"Query": {Fields: map[string]FieldResolveFn{
				"pets": value([]any{dog{"rex"}, cat{"tom"}, map[string]any{"__typename": "Bird", "name": "tweety"}}),
			}},
			"Dog": {IsTypeOf: func(_ context.Context, v any) bool { _, ok := v.(dog); return ok }},
			"Cat": {IsTypeOf: func(_ context.Context, v any) bool { _, ok := v.(cat); return ok }},
		},
		Logger: nullLogger(),
	})
	res := run(t, s, `{ pets { __typename ... on Dog { name } ... on Cat { name } ... on Bird { name } } }`)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"pets": []any{
		map[string]any{"__typename": "Dog", "name": "rex"},
		map[string]any{"__typename": "Cat", "name": "tom"},
		map[string]any{"__typename": "Bird", "name": "tweety"},
	}}, res.Data)

	s = mustMake(t, Config{
		TypeDefs: []string{sdl},
		Resolvers: Resolvers{"Query": {Fields: map[string]FieldResolveFn{
			"pets": value([]any{42}),
		}}},
		Logger: nullLogger(),
	})
	res = run(t, s, `{ pets { __typename } }`)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, `could not resolve the concrete type of "Pet"`)
}

func TestResolverPanicBecomesFieldError(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	s := mustMake(t, Config{
		TypeDefs: []string{`type Query { boom: String, fine: String }`},
		Resolvers: Resolvers{"Query": {Fields: map[string]FieldResolveFn{
			"boom": func(context.Context, any, map[string]any) (any, error) { panic("kaboom") },
			"fine": value("ok"),
		}}},
		Logger: logger,
	})
	res := run(t, s, `{ boom fine }`)
	assert.Equal(t, map[string]any{"boom": nil, "fine": "ok"}, res.Data)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "resolver for Query.boom panicked: kaboom", res.Errors[0].Message)

	var panics []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			panics = append(panics, e)
		}
	}
	require.Len(t, panics, 1)
	assert.Equal(t, "boom", panics[0].Data["field"])
	assert.True(t, strings.Contains(panics[0].Data["stack"].(string), "panic"))
}

type volatile struct{ Name string }

func (volatile) Boom() string { panic("kaboom") }

func TestPanicsOutsideFieldResolversBecomeFieldErrors(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	s := mustMake(t, Config{
		TypeDefs: []string{`
			type Query { thing: Thing, node: Node, stamp: Stamp }
			interface Node { name: String }
			type Thing implements Node { name: String boom: String }
			scalar Stamp
		`},
		Resolvers: Resolvers{
			"Query": {Fields: map[string]FieldResolveFn{
				"thing": value(volatile{Name: "t"}),
				"node":  value(volatile{Name: "n"}),
				"stamp": value(1),
			}},
			"Node": {ResolveType: func(context.Context, any) (string, error) { panic("no type") }},
			"Stamp": {Scalar: &ScalarResolvers{
				Serialize: func(any) (any, error) { panic("no stamp") },
			}},
		},
		Logger: logger,
	})

	res := run(t, s, `{ thing { name boom } node { name } stamp }`)
	assert.Equal(t, map[string]any{
		"thing": map[string]any{"name": "t", "boom": nil},
		"node":  nil,
		"stamp": nil,
	}, res.Data)

	var messages []string
	for _, e := range res.Errors {
		messages = append(messages, e.Message)
	}
	assert.ElementsMatch(t, []string{
		"resolver for Thing.boom panicked: kaboom",
		"resolveType for Node panicked: no type",
		"serializer for Stamp panicked: no stamp",
	}, messages)

	var logged int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			logged++
		}
	}
	assert.Equal(t, 3, logged)
}

func TestResolverErrorsAreLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	s := mustMake(t, Config{
		TypeDefs: []string{`type Query { fail: String }`},
		Resolvers: Resolvers{"Query": {Fields: map[string]FieldResolveFn{
			"fail": func(context.Context, any, map[string]any) (any, error) { return nil, errors.New("nope") },
		}}},
		Logger: logger,
	})
	res := run(t, s, `{ fail }`)
	require.Len(t, res.Errors, 1)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	want := logrus.Fields{"type": "Query", "field": "fail", "path": "fail", logrus.ErrorKey: errors.New("nope")}
	if diff := cmp.Diff(fmt.Sprint(want), fmt.Sprint(entry.Data)); diff != "" {
		t.Errorf("log fields mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldContext(t *testing.T) {
	var got *FieldContext
	s := mustMake(t, Config{
		TypeDefs: []string{`type Query { user: User } type User { greet(name: String!): String }`},
		Resolvers: Resolvers{
			"Query": {Fields: map[string]FieldResolveFn{"user": value(map[string]any{})}},
			"User": {Fields: map[string]FieldResolveFn{
				"greet": func(ctx context.Context, _ any, args map[string]any) (any, error) {
					got = GetFieldContext(ctx)
					return "hi " + args["name"].(string), nil
				},
			}},
		},
	})
	res := run(t, s, `{ user { hello: greet(name: "ada") } }`)
	require.Empty(t, res.Errors)
	require.NotNil(t, got)
	assert.Equal(t, &FieldContext{
		ObjectType: "User",
		Field:      "greet",
		Path:       Path{"user", "hello"},
		Args:       map[string]any{"name": "ada"},
	}, got)
	assert.Nil(t, GetFieldContext(context.Background()))
}

func TestMaxConcurrency(t *testing.T) {
	var running, peak int32
	slow := func(context.Context, any, map[string]any) (any, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return "x", nil
	}
	s := mustMake(t, Config{
		TypeDefs: []string{`type Query { a: String b: String c: String d: String }`},
		Resolvers: Resolvers{"Query": {Fields: map[string]FieldResolveFn{
			"a": slow, "b": slow, "c": slow, "d": slow,
		}}},
		MaxConcurrency: 2,
	})
	res := run(t, s, `{ a b c d }`)
	require.Empty(t, res.Errors)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestSerializeBuiltinScalar(t *testing.T) {
	ptr := func(s string) *string { return &s }
	tests := []struct {
		typ     string
		in      any
		want    any
		wantErr string
	}{
		{typ: "Int", in: int64(7), want: 7},
		{typ: "Int", in: 3.0, want: 3},
		{typ: "Int", in: "12", want: 12},
		{typ: "Int", in: int64(1) << 40, wantErr: "Int cannot represent non 32-bit signed integer value: 1099511627776"},
		{typ: "Int", in: 1.5, wantErr: "Int cannot represent non-integer value: 1.5"},
		{typ: "Float", in: 2, want: 2.0},
		{typ: "String", in: ptr("s"), want: "s"},
		{typ: "String", in: 10, want: "10"},
		{typ: "ID", in: uint8(4), want: "4"},
		{typ: "ID", in: true, wantErr: "ID cannot represent value: true"},
		{typ: "Boolean", in: 0, want: false},
		{typ: "Boolean", in: "yes", wantErr: "Boolean cannot represent a non boolean value: yes"},
		{typ: "Custom", in: struct{}{}, want: struct{}{}},
		{typ: "String", in: (*string)(nil), want: nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.typ, tt.in), func(t *testing.T) {
			got, err := serializeBuiltinScalar(tt.typ, tt.in)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
