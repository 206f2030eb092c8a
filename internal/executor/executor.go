package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	language "github.com/hanpama/gqltools/internal/language"
	schema "github.com/hanpama/gqltools/internal/schema"
)

type Path []PathElement

type PathElement any

// String renders the path as "a.b[0].c".
func (p Path) String() string { return pathToString(p) }

type nodeID uint64

// executionState holds the state of one request.
type executionState struct {
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	context        context.Context
	pending        []asyncTask
	errors         []GraphQLError
	nextID         uint64
	// prefixes of paths that have been nullified (tombstoned)
	nullifiedPrefix map[string]struct{}
	// response positions whose type is Non-Null
	nonNullPaths map[string]struct{}
}

// asyncTask is a queued async field resolution.
type asyncTask struct {
	ID        nodeID
	Task      ResolveTask
	FieldType *schema.TypeRef
	Fields    []*language.Field
}

type asyncPending struct{}

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// Schema returns the schema the executor runs against.
func (e *Executor) Schema() *schema.Schema { return e.schema }

// ExecuteRequest executes the selected operation of document. The document
// is expected to be validated against the schema beforehand.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation, err := getOperation(document, operationName)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query, "":
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	case language.Subscription:
		return &ExecutionResult{Errors: []GraphQLError{{Message: "subscriptions are not supported by this executor"}}}
	default:
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)}}}
	}
	if rootType == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("schema is not configured for %s operations", operation.Operation)}}}
	}

	state := &executionState{
		runtime:         e.runtime,
		schema:          e.schema,
		document:        document,
		variableValues:  coercedVariableValues,
		context:         ctx,
		errors:          []GraphQLError{},
		nextID:          1,
		nullifiedPrefix: make(map[string]struct{}),
		nonNullPaths:    make(map[string]struct{}),
	}

	responseRoot := executeSelectionSet(state, rootType, operation.SelectionSet, initialValue, Path{})
	if responseRoot == nil {
		responseRoot = map[string]any{}
	}

	// Depth-wise batch loop
	for len(state.pending) > 0 {
		if err := ctx.Err(); err != nil {
			state.abandonPending(responseRoot, err)
			break
		}
		filtered, results := flushAsyncTasks(state)
		for i, r := range results {
			completeAsyncField(state, filtered[i], r, responseRoot)
		}
	}

	return &ExecutionResult{Data: responseRoot, Errors: state.errors}
}

// executeSelectionSet executes a selection set without flushing
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path Path) map[string]any {
	resultMap := make(map[string]any)

	for _, group := range groupFields(state, objectType, selectionSet) {
		responseName := group.ResponseName
		fields := group.Fields
		fieldPath := appendPath(path, responseName)

		fieldResult := executeFieldGroup(state, objectType, objectValue, fields, fieldPath)

		if fields[0].Name == "__typename" {
			resultMap[responseName] = fieldResult
			continue
		}

		fieldDef := objectType.Field(fields[0].Name)
		if fieldDef == nil {
			// error already recorded in executeFieldGroup
			continue
		}

		if schema.IsNonNull(fieldDef.Type) && isNullish(fieldResult) {
			if len(path) > 0 {
				return nil
			}
			resultMap[responseName] = nil
			continue
		}

		if isNullish(fieldResult) {
			resultMap[responseName] = nil
		} else {
			resultMap[responseName] = fieldResult
		}
	}

	return resultMap
}

func executeFieldGroup(state *executionState, objectType *schema.Type, objectValue any, fields []*language.Field, path Path) any {
	field := fields[0]
	fieldName := field.Name

	if fieldName == "__typename" {
		return objectType.Name
	}

	fieldDef := objectType.Field(fieldName)
	if fieldDef == nil {
		state.addFieldError(fmt.Errorf("cannot query field %q on type %q", fieldName, objectType.Name), path, fields)
		return nil
	}

	argumentValues := coerceArgumentValues(state, fieldDef, field.Arguments, path)
	task := ResolveTask{
		ObjectType: objectType.Name,
		Field:      fieldName,
		Source:     objectValue,
		Args:       argumentValues,
		Path:       path,
	}

	if !fieldDef.Async {
		resolved, err := state.runtime.ResolveSync(state.context, task)
		if err != nil {
			state.addFieldError(err, path, fields)
			resolved = nil
		}
		return completeValue(state, fieldDef.Type, fields, resolved, path)
	}

	id := nodeID(state.nextID)
	state.nextID++
	state.pending = append(state.pending, asyncTask{
		ID:        id,
		Task:      task,
		FieldType: fieldDef.Type,
		Fields:    fields,
	})
	return asyncPending{}
}

// flushAsyncTasks runs the queued tasks of the current depth, skipping tasks
// under nullified paths.
func flushAsyncTasks(state *executionState) ([]asyncTask, []ResolveResult) {
	filtered := make([]asyncTask, 0, len(state.pending))
	for _, at := range state.pending {
		if state.hasNullifiedPrefix(at.Task.Path) {
			continue
		}
		filtered = append(filtered, at)
	}
	state.pending = nil

	if len(filtered) == 0 {
		return nil, nil
	}
	tasks := make([]ResolveTask, len(filtered))
	for i, at := range filtered {
		tasks[i] = at.Task
	}
	results := state.runtime.BatchResolveAsync(state.context, tasks)
	if len(results) != len(tasks) {
		err := fmt.Errorf("runtime returned %d results for %d tasks", len(results), len(tasks))
		results = make([]ResolveResult, len(tasks))
		for i := range results {
			results[i] = ResolveResult{Error: err}
		}
	}
	return filtered, results
}

// completeAsyncField completes a single async result, with non-null propagation and pruning
func completeAsyncField(state *executionState, at asyncTask, res ResolveResult, responseRoot map[string]any) {
	path := at.Task.Path
	if state.hasNullifiedPrefix(path) {
		return
	}

	if res.Error != nil {
		state.addFieldError(res.Error, path, at.Fields)
		if schema.IsNonNull(at.FieldType) {
			state.nullify(responseRoot, path)
			return
		}
		setValueAtPath(responseRoot, path, nil)
		return
	}

	completed := completeValue(state, at.FieldType, at.Fields, res.Value, path)

	if schema.IsNonNull(at.FieldType) && isNullish(completed) {
		state.nullify(responseRoot, path)
		return
	}

	if isNullish(completed) {
		setValueAtPath(responseRoot, path, nil)
	} else {
		setValueAtPath(responseRoot, path, completed)
	}
}

// nullify propagates a Non-Null violation at path to the nearest nullable
// ancestor. Root fields absorb the null themselves so data stays an object.
func (s *executionState) nullify(responseRoot map[string]any, path Path) {
	target := topLevelFieldPath(path)
	for i := len(path) - 1; i > 1; i-- {
		if _, nonNull := s.nonNullPaths[pathToString(path[:i])]; !nonNull {
			target = path[:i]
			break
		}
	}
	setValueAtPath(responseRoot, target, nil)
	s.markNullifiedPrefix(target)
}

// abandonPending records a cancellation error for every queued task.
func (s *executionState) abandonPending(responseRoot map[string]any, cause error) {
	for _, at := range s.pending {
		if s.hasNullifiedPrefix(at.Task.Path) {
			continue
		}
		completeAsyncField(s, at, ResolveResult{Error: cause}, responseRoot)
	}
	s.pending = nil
}

func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		state.nonNullPaths[pathToString(path)] = struct{}{}
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.addFieldError(fmt.Errorf("cannot return null for non-nullable field %s", pathToString(path)), path, fields)
			}
			return nil
		}
		completed := completeValue(state, schema.Unwrap(fieldType), fields, result, path)
		if isNullish(completed) {
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}
	namedType := schema.GetNamedType(fieldType)
	typeObj := state.schema.Types[namedType]
	if typeObj == nil {
		state.addFieldError(fmt.Errorf("unknown type %s", namedType), path, fields)
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := state.runtime.SerializeLeafValue(state.context, namedType, result)
		if err != nil {
			state.addFieldError(err, path, fields)
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return completeObjectValue(state, typeObj, fields, result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return completeAbstractValue(state, typeObj, fields, result, path)
	default:
		state.addFieldError(fmt.Errorf("cannot complete value of unexpected type %s", typeObj.Kind), path, fields)
		return nil
	}
}

func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			state.addFieldError(fmt.Errorf("expected list value, got %T", result), path, fields)
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		v := completeValue(state, inner, fields, item, appendPath(path, i))
		if schema.IsNonNull(inner) && isNullish(v) {
			return nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectType *schema.Type, fields []*language.Field, result any, path Path) any {
	return executeSelectionSet(state, objectType, mergeSelectionSets(fields), result, path)
}

func completeAbstractValue(state *executionState, abstractType *schema.Type, fields []*language.Field, result any, path Path) any {
	typeName, err := state.runtime.ResolveType(state.context, abstractType.Name, result)
	if err != nil {
		state.addFieldError(err, path, fields)
		return nil
	}
	objectType := state.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		state.addFieldError(fmt.Errorf("abstract type %s must resolve to an object type at runtime, got %q", abstractType.Name, typeName), path, fields)
		return nil
	}
	if !state.schema.IsPossibleType(abstractType.Name, typeName) {
		state.addFieldError(fmt.Errorf("runtime object type %q is not a possible type for %q", typeName, abstractType.Name), path, fields)
		return nil
	}
	return completeObjectValue(state, objectType, fields, result, path)
}

func pathToString(path Path) string {
	var b strings.Builder
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		}
	}
	return b.String()
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

func (s *executionState) markNullifiedPrefix(p Path) {
	key := pathToString(p)
	if key != "" {
		s.nullifiedPrefix[key] = struct{}{}
	}
}

func (s *executionState) hasNullifiedPrefix(p Path) bool {
	if len(s.nullifiedPrefix) == 0 {
		return false
	}
	cur := Path{}
	for _, elem := range p {
		cur = append(cur, elem)
		if _, ok := s.nullifiedPrefix[pathToString(cur)]; ok {
			return true
		}
	}
	return false
}

func topLevelFieldPath(p Path) Path {
	for _, elem := range p {
		if name, ok := elem.(string); ok {
			return Path{name}
		}
	}
	return Path{}
}

// getOperation selects the operation by name, or the only operation when
// name is empty.
func getOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName == "" {
		switch len(document.Operations) {
		case 0:
			return nil, errors.New("document does not contain any operation")
		case 1:
			return document.Operations[0], nil
		default:
			return nil, errors.New("must provide operation name if query contains multiple operations")
		}
	}
	if op := document.Operations.ForName(operationName); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("unknown operation named %q", operationName)
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return schema.NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return schema.NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return schema.ListType(typeRefFromAST(t.Elem))
	}
	return nil
}

func (s *executionState) addError(message string, path Path) {
	s.errors = append(s.errors, GraphQLError{Message: message, Path: path})
}

// addFieldError records err at path, attaching the source locations of the
// field nodes and any extensions err carries.
func (s *executionState) addFieldError(err error, path Path, fields []*language.Field) {
	ge := GraphQLError{Message: err.Error(), Path: path}
	for _, f := range fields {
		if f.Position != nil {
			ge.Locations = append(ge.Locations, Location{Line: f.Position.Line, Column: f.Position.Column})
		}
	}
	var ext interface{ Extensions() map[string]any }
	if errors.As(err, &ext) {
		ge.Extensions = ext.Extensions()
	}
	s.errors = append(s.errors, ge)
}

func (s *executionState) hasErrorAtPath(path Path) bool {
	for _, err := range s.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// setValueAtPath writes value into the response tree at path.
func setValueAtPath(responseRoot map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	current := any(responseRoot)
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return
			}
			next, exists := m[e]
			if !exists || next == nil {
				next = make(map[string]any)
				m[e] = next
			}
			current = next
		case int:
			slice, ok := current.([]any)
			if !ok || e >= len(slice) {
				return
			}
			if slice[e] == nil {
				slice[e] = make(map[string]any)
			}
			current = slice[e]
		}
	}
	switch fe := path[len(path)-1].(type) {
	case string:
		if m, ok := current.(map[string]any); ok {
			m[fe] = value
		}
	case int:
		if slice, ok := current.([]any); ok && fe < len(slice) {
			slice[fe] = value
		}
	}
}

func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
