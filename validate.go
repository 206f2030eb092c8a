package gqltools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	schema "github.com/hanpama/gqltools/internal/schema"
)

// ValidationError reports a resolver map that does not fit the schema.
type ValidationError struct {
	Type    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// formatErrors joins aggregated errors one per line.
func formatErrors(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		b.WriteString(err.Error())
		if i < len(errs)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// combine sorts errs by type and field and folds them into one error.
func combine(errs []*ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Type != errs[j].Type {
			return errs[i].Type < errs[j].Type
		}
		return errs[i].Field < errs[j].Field
	})
	combined := &multierror.Error{ErrorFormat: formatErrors}
	for _, err := range errs {
		combined = multierror.Append(combined, err)
	}
	return combined.ErrorOrNil()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// checkResolversInSchema reports resolvers that name types, fields or enum
// values the schema does not define, or that do not fit the kind of their
// type.
func checkResolversInSchema(sch *schema.Schema, resolvers Resolvers, opts ResolverValidationOptions) []*ValidationError {
	var errs []*ValidationError
	for _, typeName := range sortedKeys(resolvers) {
		tr := resolvers[typeName]
		t := sch.Types[typeName]
		if t == nil {
			if !opts.AllowResolversNotInSchema {
				errs = append(errs, &ValidationError{
					Type:    typeName,
					Message: fmt.Sprintf("%q defined in resolvers, but not in schema", typeName),
				})
			}
			continue
		}
		if tr == nil {
			continue
		}
		if tr.ResolveType != nil && !t.IsAbstract() {
			errs = append(errs, &ValidationError{
				Type:    typeName,
				Message: fmt.Sprintf("resolveType defined for %q, but %q is not an interface or union", typeName, typeName),
			})
		}
		if tr.IsTypeOf != nil && t.Kind != schema.TypeKindObject {
			errs = append(errs, &ValidationError{
				Type:    typeName,
				Message: fmt.Sprintf("isTypeOf defined for %q, but %q is not an object type", typeName, typeName),
			})
		}
		if tr.Scalar != nil && t.Kind != schema.TypeKindScalar {
			errs = append(errs, &ValidationError{
				Type:    typeName,
				Message: fmt.Sprintf("scalar resolvers defined for %q, but %q is not a scalar", typeName, typeName),
			})
		}
		if len(tr.EnumValues) > 0 {
			if t.Kind != schema.TypeKindEnum {
				errs = append(errs, &ValidationError{
					Type:    typeName,
					Message: fmt.Sprintf("enum values defined for %q, but %q is not an enum", typeName, typeName),
				})
			} else {
				for _, name := range sortedKeys(tr.EnumValues) {
					if t.EnumValue(name) == nil {
						errs = append(errs, &ValidationError{
							Type:    typeName,
							Field:   name,
							Message: fmt.Sprintf("%q defined in resolvers, but not in schema", typeName+"."+name),
						})
					}
				}
			}
		}
		for _, fieldName := range sortedKeys(tr.Fields) {
			coord := typeName + "." + fieldName
			if t.Field(fieldName) == nil {
				if !opts.AllowResolversNotInSchema {
					errs = append(errs, &ValidationError{
						Type:    typeName,
						Field:   fieldName,
						Message: fmt.Sprintf("%q defined in resolvers, but not in schema", coord),
					})
				}
				continue
			}
			if tr.Fields[fieldName] == nil {
				errs = append(errs, &ValidationError{
					Type:    typeName,
					Field:   fieldName,
					Message: fmt.Sprintf("resolver for %q must be a function", coord),
				})
			}
		}
	}
	return errs
}

// assertResolversPresent reports object fields that need a resolver under
// opts but have none, and interfaces or unions without ResolveType.
func assertResolversPresent(sch *schema.Schema, resolvers Resolvers, opts ResolverValidationOptions, logger logrus.FieldLogger) []*ValidationError {
	var errs []*ValidationError
	for _, typeName := range sortedKeys(sch.Types) {
		t := sch.Types[typeName]
		if t.BuiltIn || t.IsIntrospection() {
			continue
		}
		switch t.Kind {
		case schema.TypeKindObject:
			for _, f := range t.Fields {
				if !resolverRequired(sch, f, opts) || resolvers.field(typeName, f.Name) != nil {
					continue
				}
				errs = append(errs, &ValidationError{
					Type:    typeName,
					Field:   f.Name,
					Message: fmt.Sprintf("resolve function missing for %q", typeName+"."+f.Name),
				})
			}
		case schema.TypeKindInterface, schema.TypeKindUnion:
			if tr := resolvers[typeName]; tr != nil && tr.ResolveType != nil {
				continue
			}
			switch opts.RequireResolversForResolveType {
			case RequirementError:
				errs = append(errs, &ValidationError{
					Type:    typeName,
					Message: fmt.Sprintf("type %q is missing a \"resolveType\" resolver", typeName),
				})
			case RequirementWarn:
				logger.WithField("type", typeName).
					Warnf("type %q is missing a \"resolveType\" resolver; set RequireResolversForResolveType to RequirementIgnore to disable this warning", typeName)
			}
		}
	}
	return errs
}

func resolverRequired(sch *schema.Schema, f *schema.Field, opts ResolverValidationOptions) bool {
	if opts.RequireResolversForAllFields {
		return true
	}
	if opts.RequireResolversForArgs && len(f.Arguments) > 0 {
		return true
	}
	if opts.RequireResolversForNonScalar {
		named := sch.Types[schema.GetNamedType(f.Type)]
		return named == nil || named.Kind != schema.TypeKindScalar
	}
	return false
}
