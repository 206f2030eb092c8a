package gqltools

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// serializeBuiltinScalar coerces a resolved value of a built-in scalar to a
// JSON-safe Go value. Custom scalars without a serializer pass through.
func serializeBuiltinScalar(typeName string, value any) (any, error) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
		value = rv.Interface()
	}

	switch typeName {
	case "Int":
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return int32Value(rv.Int(), value)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if rv.Uint() > math.MaxInt32 {
				return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", value)
			}
			return int(rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if f != math.Trunc(f) {
				return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
			}
			return int32Value(int64(f), value)
		case reflect.Bool:
			if rv.Bool() {
				return 1, nil
			}
			return 0, nil
		case reflect.String:
			n, err := strconv.ParseInt(rv.String(), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("Int cannot represent non-integer value: %q", rv.String())
			}
			return int32Value(n, value)
		}
		return nil, fmt.Errorf("Int cannot represent value: %v", value)

	case "Float":
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("Float cannot represent non numeric value: %v", value)
			}
			return f, nil
		case reflect.Bool:
			if rv.Bool() {
				return 1.0, nil
			}
			return 0.0, nil
		case reflect.String:
			f, err := strconv.ParseFloat(rv.String(), 64)
			if err != nil {
				return nil, fmt.Errorf("Float cannot represent non numeric value: %q", rv.String())
			}
			return f, nil
		}
		return nil, fmt.Errorf("Float cannot represent value: %v", value)

	case "String", "ID":
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case fmt.Stringer:
			return v.String(), nil
		case encoding.TextMarshaler:
			b, err := v.MarshalText()
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}
		switch rv.Kind() {
		case reflect.String:
			return rv.String(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(rv.Int(), 10), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.FormatUint(rv.Uint(), 10), nil
		case reflect.Float32, reflect.Float64:
			if typeName == "ID" {
				break
			}
			return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
		case reflect.Bool:
			if typeName == "ID" {
				break
			}
			return strconv.FormatBool(rv.Bool()), nil
		}
		return nil, fmt.Errorf("%s cannot represent value: %v", typeName, value)

	case "Boolean":
		switch rv.Kind() {
		case reflect.Bool:
			return rv.Bool(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int() != 0, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return rv.Uint() != 0, nil
		case reflect.Float32, reflect.Float64:
			return rv.Float() != 0, nil
		}
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
	}
	return value, nil
}

func int32Value(n int64, original any) (any, error) {
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", original)
	}
	return int(n), nil
}
