package gqltools

import (
	"context"
	"reflect"
	"strings"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// DefaultFieldResolver reads field from source. Maps are looked up by key,
// structs by exported field name or json tag (case-insensitive), and a
// zero-argument method named like the field is called; it may return a value
// and optionally an error. Anything else resolves to nil.
func DefaultFieldResolver(source any, field string) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[field], nil
	}

	v := reflect.ValueOf(source)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, nil
	}
	if res, ok, err := callMethod(v, field); ok {
		return res, err
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, nil
		}
		mv := v.MapIndex(reflect.ValueOf(field).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, nil
		}
		return mv.Interface(), nil
	case reflect.Struct:
		if fv, ok := structField(v, field); ok {
			return fv.Interface(), nil
		}
		if res, ok, err := callMethod(v, field); ok {
			return res, err
		}
	}
	return nil, nil
}

func defaultResolverFor(field string) FieldResolveFn {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return DefaultFieldResolver(source, field)
	}
}

func structField(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag != "" && tag != "-" {
			if strings.EqualFold(tag, name) {
				return v.Field(i), true
			}
			continue
		}
		if strings.EqualFold(sf.Name, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func callMethod(v reflect.Value, name string) (any, bool, error) {
	if !v.IsValid() {
		return nil, false, nil
	}
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.EqualFold(m.Name, name) {
			continue
		}
		mt := m.Type
		// receiver is the first input
		if mt.NumIn() != 1 || mt.NumOut() == 0 || mt.NumOut() > 2 {
			return nil, false, nil
		}
		if mt.NumOut() == 2 && !mt.Out(1).Implements(errorType) {
			return nil, false, nil
		}
		out := v.Method(i).Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, true, out[1].Interface().(error)
		}
		return out[0].Interface(), true, nil
	}
	return nil, false, nil
}
