package executor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	language "github.com/hanpama/gqltools/internal/language"
	schema "github.com/hanpama/gqltools/internal/schema"
)

// literal evaluates an AST value, substituting variables.
func literal(v *language.Value, vars map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return v.Value(vars)
}

// provided reports whether v carries a value. A variable the request did not
// supply counts as absent so the argument default applies.
func provided(v *language.Value, vars map[string]any) bool {
	if v == nil {
		return false
	}
	if v.Kind == language.Variable {
		_, ok := vars[v.Raw]
		return ok
	}
	return true
}

// coerceVariableValues applies the operation's variable definitions to the
// request variables.
func coerceVariableValues(sch *schema.Schema, op *language.OperationDefinition, input map[string]any) (map[string]any, error) {
	c := inputCoercer{schema: sch}
	out := make(map[string]any, len(op.VariableDefinitions))
	for _, def := range op.VariableDefinitions {
		name, typ := def.Variable, def.Type
		val, ok := input[name]
		if !ok {
			switch {
			case def.DefaultValue != nil:
				v, err := literal(def.DefaultValue, nil)
				if err != nil {
					return nil, fmt.Errorf("default value of $%s: %w", name, err)
				}
				val = v
			case typ.NonNull:
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, typ)
			default:
				continue
			}
		}
		if val == nil && typ.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, typ)
		}
		cv, err := c.coerce(val, typeRefFromAST(typ))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, typ, err)
		}
		out[name] = cv
	}
	return out, nil
}

// coerceArgumentValues builds the argument map of one field instance.
// Problems are recorded on state at path and the argument is left out.
func coerceArgumentValues(state *executionState, def *schema.Field, args language.ArgumentList, path Path) map[string]any {
	c := inputCoercer{schema: state.schema}
	out := make(map[string]any, len(def.Arguments))
	for _, argDef := range def.Arguments {
		name := argDef.Name
		var raw any
		if arg := args.ForName(name); arg != nil && provided(arg.Value, state.variableValues) {
			v, err := literal(arg.Value, state.variableValues)
			if err != nil {
				state.addError(fmt.Sprintf("argument %q: %v", name, err), path)
				continue
			}
			raw = v
		} else if argDef.DefaultValue != nil {
			raw = argDef.DefaultValue
		} else {
			if schema.IsNonNull(argDef.Type) {
				state.addError(fmt.Sprintf("argument %q of required type %s was not provided", name, argDef.Type), path)
			}
			continue
		}
		cv, err := c.coerce(raw, argDef.Type)
		if err != nil {
			state.addError(fmt.Sprintf("argument %q cannot be coerced: %v", name, err), path)
			continue
		}
		out[name] = cv
	}
	return out
}

// inputCoercer converts input values to the Go shape resolvers receive:
// int, float64, string, bool, enum names, []any and map[string]any. Custom
// scalars pass through for the runtime to parse.
type inputCoercer struct {
	schema *schema.Schema
}

func (c inputCoercer) coerce(value any, ref *schema.TypeRef) (any, error) {
	if schema.IsNonNull(ref) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return c.coerce(value, schema.Unwrap(ref))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(ref) {
		inner := schema.Unwrap(ref)
		items, ok := value.([]any)
		if !ok {
			// input coercion wraps a single item
			item, err := c.coerce(value, inner)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := c.coerce(item, inner)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	name := schema.GetNamedType(ref)
	if parse, ok := builtinInputs[name]; ok {
		return parse(value)
	}
	var t *schema.Type
	if c.schema != nil {
		t = c.schema.Types[name]
	}
	switch {
	case t == nil:
		return value, nil
	case t.Kind == schema.TypeKindEnum:
		s, ok := value.(string)
		if !ok || t.EnumValue(s) == nil {
			return nil, fmt.Errorf("value %v is not a member of enum %s", value, t.Name)
		}
		return s, nil
	case t.Kind == schema.TypeKindInputObject:
		return c.inputObject(value, t)
	default:
		return value, nil
	}
}

func (c inputCoercer) inputObject(value any, t *schema.Type) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object for input type %s, got %T", t.Name, value)
	}
	for key := range in {
		if t.InputField(key) == nil {
			return nil, fmt.Errorf("field %q is not defined by type %s", key, t.Name)
		}
	}
	out := make(map[string]any, len(t.InputFields))
	for _, f := range t.InputFields {
		v, ok := in[f.Name]
		switch {
		case ok:
		case f.DefaultValue != nil:
			v = f.DefaultValue
		case schema.IsNonNull(f.Type):
			return nil, fmt.Errorf("field %s.%s of required type %s was not provided", t.Name, f.Name, f.Type)
		default:
			continue
		}
		cv, err := c.coerce(v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, f.Name, err)
		}
		out[f.Name] = cv
	}
	if t.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("exactly one field must be specified for oneOf type %s", t.Name)
	}
	return out, nil
}

var builtinInputs = map[string]func(any) (any, error){
	"Int":     inputInt,
	"Float":   inputFloat,
	"String":  inputString,
	"Boolean": inputBoolean,
	"ID":      inputID,
}

// number widens the numeric kinds JSON decoding and literals produce.
func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func inputInt(value any) (any, error) {
	if s, ok := value.(string); ok {
		if i, err := strconv.Atoi(s); err == nil {
			return i, nil
		}
	}
	f, ok := number(value)
	if !ok || f != math.Trunc(f) {
		return nil, fmt.Errorf("cannot coerce %v (%T) to int", value, value)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return nil, fmt.Errorf("int %v overflows 32 bits", value)
	}
	return int(f), nil
}

func inputFloat(value any) (any, error) {
	if s, ok := value.(string); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	}
	if f, ok := number(value); ok {
		return f, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to float", value, value)
}

func inputString(value any) (any, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

func inputBoolean(value any) (any, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to boolean", value, value)
}

func inputID(value any) (any, error) {
	if f, ok := number(value); ok && f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return fmt.Sprint(value), nil
}
