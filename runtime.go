package gqltools

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	executor "github.com/hanpama/gqltools/internal/executor"
	schema "github.com/hanpama/gqltools/internal/schema"
)

// FieldContext describes the field a resolver is running for.
type FieldContext struct {
	ObjectType string
	Field      string
	Path       Path
	// Args are the arguments as passed to the resolver.
	Args map[string]any
}

type fieldContextKey struct{}

// GetFieldContext returns the FieldContext of the resolver call ctx belongs
// to, or nil outside of a resolver.
func GetFieldContext(ctx context.Context) *FieldContext {
	fc, _ := ctx.Value(fieldContextKey{}).(*FieldContext)
	return fc
}

func withFieldContext(ctx context.Context, fc *FieldContext) context.Context {
	return context.WithValue(ctx, fieldContextKey{}, fc)
}

// resolverRuntime implements executor.Runtime on top of an attached resolver
// map.
// Invariants:
//   - fields holds the final resolver of every field that has one, directive
//     chains included. Those fields are marked async in the schema, except
//     root mutation fields, which the executor resolves in order through
//     ResolveSync.
//   - Nothing is mutated after construction; concurrent requests share it.
type resolverRuntime struct {
	schema    *schema.Schema
	resolvers Resolvers
	fields    map[coordinate]FieldResolveFn
	limit     int
	logger    logrus.FieldLogger
}

var _ executor.Runtime = (*resolverRuntime)(nil)

// ResolveSync runs the resolver of the field when it has one (root mutation
// fields), and the default field resolver otherwise.
func (r *resolverRuntime) ResolveSync(ctx context.Context, task executor.ResolveTask) (any, error) {
	return r.resolve(ctx, task)
}

// BatchResolveAsync runs the resolvers of one execution depth concurrently.
// Results keep task order and each task succeeds or fails on its own.
func (r *resolverRuntime) BatchResolveAsync(ctx context.Context, tasks []executor.ResolveTask) []executor.ResolveResult {
	results := make([]executor.ResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if len(tasks) == 1 {
		v, err := r.resolve(ctx, tasks[0])
		results[0] = executor.ResolveResult{Value: v, Error: err}
		return results
	}

	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i := range tasks {
		g.Go(func() error {
			v, err := r.resolve(ctx, tasks[i])
			results[i] = executor.ResolveResult{Value: v, Error: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *resolverRuntime) resolve(ctx context.Context, task executor.ResolveTask) (value any, err error) {
	defer r.recoverPanic(&err, fmt.Sprintf("resolver for %s.%s", task.ObjectType, task.Field), logrus.Fields{
		"type":  task.ObjectType,
		"field": task.Field,
		"path":  task.Path.String(),
	})

	fn := r.fields[coordinate{Type: task.ObjectType, Field: task.Field}]
	if fn == nil {
		return DefaultFieldResolver(task.Source, task.Field)
	}

	args, err := r.parseArguments(task.ObjectType, task.Field, task.Args)
	if err != nil {
		return nil, err
	}
	ctx = withFieldContext(ctx, &FieldContext{
		ObjectType: task.ObjectType,
		Field:      task.Field,
		Path:       task.Path,
		Args:       args,
	})
	return fn(ctx, task.Source, args)
}

// recoverPanic turns a panic in user code into *err. It must be deferred
// directly.
func (r *resolverRuntime) recoverPanic(err *error, what string, fields logrus.Fields) {
	p := recover()
	if p == nil {
		return
	}
	fields["stack"] = string(debug.Stack())
	r.logger.WithFields(fields).Errorf("%s panicked: %v", what, p)
	*err = fmt.Errorf("%s panicked: %v", what, p)
}

// ResolveType tries the ResolveType resolver of the abstract type, then
// IsTypeOf of its possible types in order, then a "__typename" key.
func (r *resolverRuntime) ResolveType(ctx context.Context, abstractType string, value any) (_ string, err error) {
	defer r.recoverPanic(&err, "resolveType for "+abstractType, logrus.Fields{"type": abstractType})

	if tr := r.resolvers[abstractType]; tr != nil && tr.ResolveType != nil {
		return tr.ResolveType(ctx, value)
	}
	if t := r.schema.Types[abstractType]; t != nil {
		for _, name := range t.PossibleTypes {
			if tr := r.resolvers[name]; tr != nil && tr.IsTypeOf != nil && tr.IsTypeOf(ctx, value) {
				return name, nil
			}
		}
	}
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok && name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("could not resolve the concrete type of %q for value of type %T; add a ResolveType resolver or IsTypeOf to its possible types", abstractType, value)
}

// SerializeLeafValue maps enum internal values back to names, runs custom
// scalar serializers and coerces built-in scalars.
func (r *resolverRuntime) SerializeLeafValue(ctx context.Context, typeName string, value any) (_ any, err error) {
	defer r.recoverPanic(&err, "serializer for "+typeName, logrus.Fields{"type": typeName})

	t := r.schema.Types[typeName]
	if t == nil {
		return nil, fmt.Errorf("unknown leaf type %q", typeName)
	}
	tr := r.resolvers[typeName]

	if t.Kind == schema.TypeKindEnum {
		if tr != nil && len(tr.EnumValues) > 0 {
			for _, ev := range t.EnumValues {
				internal, ok := tr.EnumValues[ev.Name]
				if ok && reflect.DeepEqual(internal, value) {
					return ev.Name, nil
				}
			}
		}
		if name, ok := value.(string); ok && t.EnumValue(name) != nil {
			if tr == nil || tr.EnumValues == nil {
				return name, nil
			}
			if _, remapped := tr.EnumValues[name]; !remapped {
				return name, nil
			}
		}
		return nil, fmt.Errorf("enum %q cannot represent value: %v", typeName, value)
	}

	if tr != nil && tr.Scalar != nil && tr.Scalar.Serialize != nil {
		return tr.Scalar.Serialize(value)
	}
	return serializeBuiltinScalar(typeName, value)
}

// parseArguments translates enum names to internal values and runs custom
// scalar parsers over the coerced arguments of a field.
func (r *resolverRuntime) parseArguments(typeName, fieldName string, args map[string]any) (map[string]any, error) {
	t := r.schema.Types[typeName]
	if t == nil || len(args) == 0 {
		return args, nil
	}
	f := t.Field(fieldName)
	if f == nil {
		return args, nil
	}
	out := make(map[string]any, len(args))
	for name, v := range args {
		out[name] = v
		arg := f.Argument(name)
		if arg == nil {
			continue
		}
		parsed, err := r.parseInputValue(arg.Type, v)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		out[name] = parsed
	}
	return out, nil
}

func (r *resolverRuntime) parseInputValue(ref *schema.TypeRef, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if schema.IsNonNull(ref) {
		return r.parseInputValue(schema.Unwrap(ref), value)
	}
	if schema.IsList(ref) {
		items, ok := value.([]any)
		if !ok {
			return value, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := r.parseInputValue(schema.Unwrap(ref), item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	name := schema.GetNamedType(ref)
	t := r.schema.Types[name]
	if t == nil {
		return value, nil
	}
	tr := r.resolvers[name]
	switch t.Kind {
	case schema.TypeKindEnum:
		if s, ok := value.(string); ok && tr != nil {
			if internal, ok := tr.EnumValues[s]; ok {
				return internal, nil
			}
		}
		return value, nil
	case schema.TypeKindScalar:
		if tr != nil && tr.Scalar != nil && tr.Scalar.ParseValue != nil {
			return tr.Scalar.ParseValue(value)
		}
		return value, nil
	case schema.TypeKindInputObject:
		in, ok := value.(map[string]any)
		if !ok {
			return value, nil
		}
		out := make(map[string]any, len(in))
		for k, v := range in {
			out[k] = v
			field := t.InputField(k)
			if field == nil {
				continue
			}
			parsed, err := r.parseInputValue(field.Type, v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, k, err)
			}
			out[k] = parsed
		}
		return out, nil
	default:
		return value, nil
	}
}
