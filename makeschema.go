package gqltools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/formatter"

	executor "github.com/hanpama/gqltools/internal/executor"
	introspection "github.com/hanpama/gqltools/internal/introspection"
	language "github.com/hanpama/gqltools/internal/language"
	schema "github.com/hanpama/gqltools/internal/schema"
)

// ErrNoTypeDefs is returned when Config carries no type definitions.
var ErrNoTypeDefs = errors.New("must provide typeDefs")

// ExecutableSchema is a validated schema with resolvers attached.
type ExecutableSchema struct {
	ast      *language.Schema
	schema   *schema.Schema
	runtime  executor.Runtime
	executor *executor.Executor
}

// Params is one GraphQL request.
type Params struct {
	Query         string
	OperationName string
	Variables     map[string]any
	RootValue     any
}

// MakeExecutableSchema merges the type definitions of cfg with its resolver
// map and directive resolvers.
//
// Construction fails when the type definitions are empty or invalid, when
// resolvers name types or fields missing from the schema (unless allowed),
// when a resolver required by cfg.ResolverValidationOptions is missing, or
// when a registered directive resolver is nil. Resolver validation problems
// are reported together; each is a *ValidationError.
func MakeExecutableSchema(cfg Config) (*ExecutableSchema, error) {
	sources := cfg.sources()
	if len(sources) == 0 {
		return nil, ErrNoTypeDefs
	}
	opts := cfg.ResolverValidationOptions
	if err := opts.validate(); err != nil {
		return nil, err
	}

	doc, err := language.LoadSchema(sources...)
	if err != nil {
		return nil, fmt.Errorf("invalid type definitions: %w", err)
	}
	sch, err := schema.BuildFromAST(doc)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}

	resolvers := cfg.Resolvers.clone()
	if cfg.InheritResolversFromInterfaces {
		inheritResolversFromInterfaces(sch, resolvers)
	}

	logger := cfg.logger()
	verrs := checkResolversInSchema(sch, resolvers, opts)
	verrs = append(verrs, assertResolversPresent(sch, resolvers, opts, logger)...)
	if err := combine(verrs); err != nil {
		return nil, err
	}

	fields := attachFieldResolvers(sch, resolvers)
	if cfg.Logger != nil {
		for coord, fn := range fields {
			fields[coord] = logResolver(cfg.Logger, coord, fn)
		}
	}
	if err := attachDirectiveResolvers(sch, fields, cfg.DirectiveResolvers); err != nil {
		return nil, err
	}
	for coord := range fields {
		// root mutation fields must run one after another
		if coord.Type == sch.MutationType {
			continue
		}
		sch.Types[coord.Type].Field(coord.Field).SetAsync(true)
	}

	var rt executor.Runtime = &resolverRuntime{
		schema:    sch,
		resolvers: resolvers,
		fields:    fields,
		limit:     cfg.MaxConcurrency,
		logger:    logger,
	}
	execSchema := sch
	if cfg.Introspection {
		w := introspection.Wrap(rt, sch)
		rt, execSchema = w.Runtime, w.Schema
	}

	return &ExecutableSchema{
		ast:      doc,
		schema:   sch,
		runtime:  rt,
		executor: executor.NewExecutor(rt, execSchema),
	}, nil
}

// attachFieldResolvers collects the field resolvers of object types.
// Interface field resolvers only serve inheritance and are not attached.
func attachFieldResolvers(sch *schema.Schema, resolvers Resolvers) map[coordinate]FieldResolveFn {
	fields := make(map[coordinate]FieldResolveFn)
	for typeName, tr := range resolvers {
		t := sch.Types[typeName]
		if tr == nil || t == nil || t.Kind != schema.TypeKindObject {
			continue
		}
		for fieldName, fn := range tr.Fields {
			if fn == nil || t.Field(fieldName) == nil {
				continue
			}
			fields[coordinate{Type: typeName, Field: fieldName}] = fn
		}
	}
	return fields
}

// Schema returns the schema model. Fields backed by a resolver are marked
// async.
func (s *ExecutableSchema) Schema() *schema.Schema { return s.schema }

// AST returns the validated parser schema, used to validate requests.
func (s *ExecutableSchema) AST() *language.Schema { return s.ast }

// Runtime returns the executor runtime serving the schema.
func (s *ExecutableSchema) Runtime() executor.Runtime { return s.runtime }

// Executor returns the executor bound to the schema and runtime.
func (s *ExecutableSchema) Executor() *executor.Executor { return s.executor }

// Render prints the merged type definitions in the schema language. Builtin
// types and directives are left out.
func (s *ExecutableSchema) Render() string {
	var b strings.Builder
	formatter.NewFormatter(&b, formatter.WithIndent("  ")).FormatSchema(s.ast)
	return b.String()
}

// Execute parses and validates p.Query and executes the selected operation.
func (s *ExecutableSchema) Execute(ctx context.Context, p Params) *ExecutionResult {
	doc, errs := language.LoadQuery(s.ast, p.Query)
	if errs != nil {
		return &ExecutionResult{Errors: executor.RequestErrors(errs)}
	}
	return s.executor.ExecuteRequest(ctx, doc, p.OperationName, p.Variables, p.RootValue)
}
