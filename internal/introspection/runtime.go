package introspection

import (
	"context"
	"sort"
	"strings"

	executor "github.com/hanpama/gqltools/internal/executor"
	schema "github.com/hanpama/gqltools/internal/schema"
)

// IntrospectionWrapper holds both the runtime and extended schema
type IntrospectionWrapper struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap returns a Runtime that answers GraphQL introspection fields and
// delegates everything else to base. The returned schema extends sch with
// the __schema and __type root fields, which introspection itself hides.
func Wrap(base executor.Runtime, sch *schema.Schema) *IntrospectionWrapper {
	extended := extendSchemaWithIntrospection(sch)
	return &IntrospectionWrapper{
		Runtime: &runtime{base: base, schema: extended},
		Schema:  extended,
	}
}

// runtime resolves introspection fields synchronously. Every __Type value is
// a *schema.TypeRef: wrapper kinds expose ofType, named references are looked
// up in the schema.
type runtime struct {
	base   executor.Runtime
	schema *schema.Schema
}

var _ executor.Runtime = (*runtime)(nil)

func (r *runtime) ResolveSync(ctx context.Context, task executor.ResolveTask) (any, error) {
	switch task.ObjectType {
	case "__Schema":
		return r.resolveSchemaField(task.Field), nil
	case "__Type":
		ref, _ := task.Source.(*schema.TypeRef)
		return r.resolveTypeField(ref, task.Field, task.Args), nil
	case "__Field":
		f, _ := task.Source.(*schema.Field)
		return resolveFieldField(f, task.Field, task.Args), nil
	case "__InputValue":
		v, _ := task.Source.(*schema.InputValue)
		return resolveInputValueField(v, task.Field), nil
	case "__EnumValue":
		v, _ := task.Source.(*schema.EnumValue)
		return resolveEnumValueField(v, task.Field), nil
	case "__Directive":
		d, _ := task.Source.(*schema.Directive)
		return resolveDirectiveField(d, task.Field, task.Args), nil
	}

	if task.ObjectType == r.schema.QueryType {
		switch task.Field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := task.Args["name"].(string)
			if r.schema.Types[name] == nil {
				return nil, nil
			}
			return schema.NamedType(name), nil
		}
	}
	return r.base.ResolveSync(ctx, task)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.ResolveTask) []executor.ResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

// SerializeLeafValue passes __TypeKind and __DirectiveLocation names through.
func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	if strings.HasPrefix(typ, "__") {
		return value, nil
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}

func (r *runtime) resolveSchemaField(field string) any {
	switch field {
	case "description":
		return optionalString(r.schema.Description)
	case "types":
		names := make([]string, 0, len(r.schema.Types))
		for name := range r.schema.Types {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]*schema.TypeRef, len(names))
		for i, name := range names {
			out[i] = schema.NamedType(name)
		}
		return out
	case "queryType":
		return r.rootType(r.schema.QueryType)
	case "mutationType":
		return r.rootType(r.schema.MutationType)
	case "subscriptionType":
		return r.rootType(r.schema.SubscriptionType)
	case "directives":
		dirs := make([]*schema.Directive, 0, len(r.schema.Directives))
		for _, d := range r.schema.Directives {
			dirs = append(dirs, d)
		}
		sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
		return dirs
	}
	return nil
}

func (r *runtime) rootType(name string) any {
	if name == "" || r.schema.Types[name] == nil {
		return nil
	}
	return schema.NamedType(name)
}

func (r *runtime) resolveTypeField(ref *schema.TypeRef, field string, args map[string]any) any {
	if ref == nil {
		return nil
	}
	switch ref.Kind {
	case schema.TypeRefKindList, schema.TypeRefKindNonNull:
		switch field {
		case "kind":
			return string(ref.Kind)
		case "ofType":
			if ref.OfType == nil {
				return nil
			}
			return ref.OfType
		}
		return nil
	}

	t := r.schema.Types[ref.Named]
	if t == nil {
		return nil
	}
	includeDeprecated := boolArg(args, "includeDeprecated", false)
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "description":
		return optionalString(t.Description)
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil
		}
		return *t.SpecifiedByURL
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return t.OneOf
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		out := []*schema.Field{}
		for _, f := range t.Fields {
			if strings.HasPrefix(f.Name, "__") || (!includeDeprecated && f.IsDeprecated) {
				continue
			}
			out = append(out, f)
		}
		return out
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return namedRefs(t.Interfaces)
	case "possibleTypes":
		if !t.IsAbstract() {
			return nil
		}
		return namedRefs(t.PossibleTypes)
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		out := []*schema.EnumValue{}
		for _, ev := range t.EnumValues {
			if includeDeprecated || !ev.IsDeprecated {
				out = append(out, ev)
			}
		}
		return out
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return filterInputValues(t.InputFields, includeDeprecated)
	}
	return nil
}

func resolveFieldField(f *schema.Field, field string, args map[string]any) any {
	if f == nil {
		return nil
	}
	switch field {
	case "name":
		return f.Name
	case "description":
		return optionalString(f.Description)
	case "args":
		return filterInputValues(f.Arguments, boolArg(args, "includeDeprecated", false))
	case "type":
		return f.Type
	case "isDeprecated":
		return f.IsDeprecated
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason)
	}
	return nil
}

func resolveInputValueField(v *schema.InputValue, field string) any {
	if v == nil {
		return nil
	}
	switch field {
	case "name":
		return v.Name
	case "description":
		return optionalString(v.Description)
	case "type":
		return v.Type
	case "defaultValue":
		if v.DefaultValue == nil && v.DefaultLiteral == "" {
			return nil
		}
		return v.DefaultString()
	case "isDeprecated":
		return v.IsDeprecated
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason)
	}
	return nil
}

func resolveEnumValueField(v *schema.EnumValue, field string) any {
	if v == nil {
		return nil
	}
	switch field {
	case "name":
		return v.Name
	case "description":
		return optionalString(v.Description)
	case "isDeprecated":
		return v.IsDeprecated
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason)
	}
	return nil
}

func resolveDirectiveField(d *schema.Directive, field string, args map[string]any) any {
	if d == nil {
		return nil
	}
	switch field {
	case "name":
		return d.Name
	case "description":
		return optionalString(d.Description)
	case "isRepeatable":
		return d.IsRepeatable
	case "locations":
		return append([]string(nil), d.Locations...)
	case "args":
		return filterInputValues(d.Arguments, boolArg(args, "includeDeprecated", false))
	}
	return nil
}

func namedRefs(names []string) []*schema.TypeRef {
	out := make([]*schema.TypeRef, len(names))
	for i, name := range names {
		out[i] = schema.NamedType(name)
	}
	return out
}

func filterInputValues(values []*schema.InputValue, includeDeprecated bool) []*schema.InputValue {
	out := []*schema.InputValue{}
	for _, v := range values {
		if includeDeprecated || !v.IsDeprecated {
			out = append(out, v)
		}
	}
	return out
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

// optionalString maps an empty description to null.
func optionalString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolArg(args map[string]any, name string, def bool) bool {
	if v, ok := args[name].(bool); ok {
		return v
	}
	return def
}
