package gqltools

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	language "github.com/hanpama/gqltools/internal/language"
)

// Requirement controls how a missing resolver is reported.
type Requirement int

const (
	// RequirementWarn logs a warning and continues.
	RequirementWarn Requirement = iota
	// RequirementError aborts schema construction.
	RequirementError
	// RequirementIgnore skips the check.
	RequirementIgnore
)

func (r Requirement) String() string {
	switch r {
	case RequirementWarn:
		return "warn"
	case RequirementError:
		return "error"
	case RequirementIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("Requirement(%d)", int(r))
	}
}

// ResolverValidationOptions selects which fields must have a resolver.
type ResolverValidationOptions struct {
	// RequireResolversForArgs requires a resolver on every field with arguments.
	RequireResolversForArgs bool
	// RequireResolversForNonScalar requires a resolver on every field whose
	// named type is not a scalar.
	RequireResolversForNonScalar bool
	// RequireResolversForAllFields requires a resolver on every object field.
	// It cannot be combined with the two options above.
	RequireResolversForAllFields bool
	// RequireResolversForResolveType applies to interfaces and unions
	// without a ResolveType resolver.
	RequireResolversForResolveType Requirement
	// AllowResolversNotInSchema accepts resolvers for types and fields the
	// schema does not define.
	AllowResolversNotInSchema bool
}

func (o ResolverValidationOptions) validate() error {
	if o.RequireResolversForAllFields && (o.RequireResolversForArgs || o.RequireResolversForNonScalar) {
		return fmt.Errorf("RequireResolversForAllFields cannot be combined with RequireResolversForArgs or RequireResolversForNonScalar")
	}
	return nil
}

// Config is the input of MakeExecutableSchema.
type Config struct {
	// TypeDefs are schema-language documents, merged into one schema.
	TypeDefs []string
	// Sources are named type definition documents, appended after TypeDefs.
	Sources []*language.Source

	Resolvers                      Resolvers
	DirectiveResolvers             DirectiveResolvers
	ResolverValidationOptions      ResolverValidationOptions
	InheritResolversFromInterfaces bool

	// Logger receives resolver errors and panics. Validation warnings go to
	// the standard logrus logger when nil.
	Logger logrus.FieldLogger
	// Introspection enables the __schema and __type root fields.
	Introspection bool
	// MaxConcurrency bounds the resolvers run at once within one batch.
	// Zero or less means unbounded.
	MaxConcurrency int
}

func (c Config) sources() []*language.Source {
	var out []*language.Source
	for i, def := range c.TypeDefs {
		if strings.TrimSpace(def) == "" {
			continue
		}
		out = append(out, &language.Source{Name: fmt.Sprintf("typeDefs[%d]", i), Input: def})
	}
	for _, src := range c.Sources {
		if src == nil || strings.TrimSpace(src.Input) == "" {
			continue
		}
		out = append(out, src)
	}
	return out
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}
