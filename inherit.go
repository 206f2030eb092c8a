package gqltools

import (
	schema "github.com/hanpama/gqltools/internal/schema"
)

// inheritResolversFromInterfaces copies field resolvers declared on
// interfaces to the object types implementing them. Interfaces are visited
// in declaration order and a field keeps the first resolver it gets, so a
// type's own resolvers always win, then the first declared interface.
func inheritResolversFromInterfaces(sch *schema.Schema, resolvers Resolvers) {
	for _, typeName := range sortedKeys(sch.Types) {
		t := sch.Types[typeName]
		if t.Kind != schema.TypeKindObject || len(t.Interfaces) == 0 {
			continue
		}
		for _, ifaceName := range t.Interfaces {
			iface := resolvers[ifaceName]
			if iface == nil {
				continue
			}
			for fieldName, fn := range iface.Fields {
				if fn == nil || t.Field(fieldName) == nil {
					continue
				}
				own := resolvers[typeName]
				if own == nil {
					own = &TypeResolvers{Fields: map[string]FieldResolveFn{}}
					resolvers[typeName] = own
				}
				if own.Fields == nil {
					own.Fields = map[string]FieldResolveFn{}
				}
				if _, ok := own.Fields[fieldName]; ok {
					continue
				}
				own.Fields[fieldName] = fn
			}
		}
	}
}
