package schema

import (
	"fmt"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/hanpama/gqltools/internal/language"
)

// directives folded into dedicated fields of the model instead of being
// recorded as AppliedDirective.
var modelledDirectives = map[string]bool{
	"deprecated":  true,
	"specifiedBy": true,
	"oneOf":       true,
}

// BuildFromAST converts a validated gqlparser schema into the executable
// schema model. Extensions are already merged by the validator. Declaration
// order of fields, arguments, interfaces and enum values is preserved.
func BuildFromAST(src *language.Schema) (*Schema, error) {
	if src == nil {
		return nil, fmt.Errorf("nil schema")
	}
	s := NewSchema(src.Description)
	if src.Query != nil {
		s.SetQueryType(src.Query.Name)
	}
	if src.Mutation != nil {
		s.SetMutationType(src.Mutation.Name)
	}
	if src.Subscription != nil {
		s.SetSubscriptionType(src.Subscription.Name)
	}

	for _, def := range src.Types {
		t, err := buildType(src, def)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	for _, dir := range src.Directives {
		d, err := buildDirective(src, dir)
		if err != nil {
			return nil, err
		}
		s.AddDirective(d)
	}
	return s, nil
}

// BuildFromSDL parses SDL string and returns the corresponding Schema.
func BuildFromSDL(sdl string) (*Schema, error) {
	src, err := language.LoadSchema(&language.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, err
	}
	return BuildFromAST(src)
}

func buildType(src *ast.Schema, def *ast.Definition) (*Type, error) {
	t := NewType(def.Name, kindOf(def.Kind), def.Description)
	t.BuiltIn = def.BuiltIn || fromBuiltinSource(def.Position)

	switch def.Kind {
	case ast.Object, ast.Interface:
		for _, name := range def.Interfaces {
			t.AddInterface(name)
		}
		for _, fd := range def.Fields {
			// the validator adds __schema and __type to the query type;
			// introspection.Wrap owns those.
			if fd.Name == "__schema" || fd.Name == "__type" || fd.Name == "__typename" {
				continue
			}
			f, err := buildField(src, fd)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", def.Name, fd.Name, err)
			}
			t.AddField(f)
		}
		if def.Kind == ast.Interface {
			var names []string
			for _, pt := range src.GetPossibleTypes(def) {
				if pt.Kind == ast.Object {
					names = append(names, pt.Name)
				}
			}
			sort.Strings(names)
			for _, name := range names {
				t.AddPossibleType(name)
			}
		}
	case ast.Union:
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
	case ast.Enum:
		for _, ev := range def.EnumValues {
			v := NewEnumValue(ev.Name, ev.Description)
			if reason, ok := deprecation(ev.Directives); ok {
				v.Deprecate(reason)
			}
			t.AddEnumValue(v)
		}
	case ast.InputObject:
		for _, fd := range def.Fields {
			in, err := buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", def.Name, fd.Name, err)
			}
			t.AddInputField(in)
		}
		t.SetOneOf(def.Directives.ForName("oneOf") != nil)
	case ast.Scalar:
		if sb := def.Directives.ForName("specifiedBy"); sb != nil {
			if url, ok := argumentValues(src, sb)["url"].(string); ok {
				t.SetSpecifiedByURL(url)
			}
		}
	}

	for _, d := range def.Directives {
		if modelledDirectives[d.Name] {
			continue
		}
		t.AddDirective(&AppliedDirective{Name: d.Name, Args: argumentValues(src, d)})
	}
	return t, nil
}

func buildField(src *ast.Schema, def *ast.FieldDefinition) (*Field, error) {
	f := NewField(def.Name, def.Description, buildTypeRef(def.Type))
	if reason, ok := deprecation(def.Directives); ok {
		f.Deprecate(reason)
	}
	for _, arg := range def.Arguments {
		in, err := buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives)
		if err != nil {
			return nil, err
		}
		f.AddArgument(in)
	}
	for _, d := range def.Directives {
		if modelledDirectives[d.Name] {
			continue
		}
		f.AddDirective(&AppliedDirective{Name: d.Name, Args: argumentValues(src, d)})
	}
	return f, nil
}

func buildInputValue(name, description string, typ *ast.Type, defaultValue *ast.Value, directives ast.DirectiveList) (*InputValue, error) {
	in := NewInputValue(name, description, buildTypeRef(typ))
	if defaultValue != nil {
		v, err := defaultValue.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("default value of %s: %w", name, err)
		}
		in.SetDefault(v)
		in.DefaultLiteral = defaultValue.String()
	}
	if reason, ok := deprecation(directives); ok {
		in.Deprecate(reason)
	}
	return in, nil
}

func buildDirective(src *ast.Schema, def *ast.DirectiveDefinition) (*Directive, error) {
	d := NewDirective(def.Name, def.Description).SetRepeatable(def.IsRepeatable)
	d.BuiltIn = fromBuiltinSource(def.Position)
	for _, loc := range def.Locations {
		d.AddLocation(string(loc))
	}
	for _, arg := range def.Arguments {
		in, err := buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives)
		if err != nil {
			return nil, fmt.Errorf("@%s: %w", def.Name, err)
		}
		d.AddArgument(in)
	}
	return d, nil
}

func buildTypeRef(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return NonNullType(buildTypeRef(&ast.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	return ListType(buildTypeRef(t.Elem))
}

func fromBuiltinSource(pos *ast.Position) bool {
	return pos != nil && pos.Src != nil && pos.Src.BuiltIn
}

func kindOf(k ast.DefinitionKind) TypeKind {
	switch k {
	case ast.Object:
		return TypeKindObject
	case ast.Interface:
		return TypeKindInterface
	case ast.Union:
		return TypeKindUnion
	case ast.Enum:
		return TypeKindEnum
	case ast.InputObject:
		return TypeKindInputObject
	default:
		return TypeKindScalar
	}
}

// argumentValues evaluates the constant arguments of a directive usage and
// fills in defaults declared on the directive definition.
func argumentValues(src *ast.Schema, d *ast.Directive) map[string]any {
	out := make(map[string]any, len(d.Arguments))
	for _, arg := range d.Arguments {
		if arg.Value == nil {
			continue
		}
		if v, err := arg.Value.Value(nil); err == nil {
			out[arg.Name] = v
		}
	}
	if def := src.Directives[d.Name]; def != nil {
		for _, argDef := range def.Arguments {
			if _, ok := out[argDef.Name]; ok || argDef.DefaultValue == nil {
				continue
			}
			if v, err := argDef.DefaultValue.Value(nil); err == nil {
				out[argDef.Name] = v
			}
		}
	}
	return out
}

const defaultDeprecationReason = "No longer supported"

func deprecation(directives ast.DirectiveList) (string, bool) {
	d := directives.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return defaultDeprecationReason, true
}
