package executor

import (
	"context"
	"fmt"
	"sync"
)

// MockResolver resolves one field instance of a MockRuntime.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// Call kinds recorded by MockRuntime.
const (
	CallKindSync  = "sync"
	CallKindAsync = "async"
)

// NewMockValueResolver returns a MockResolver that always returns val.
func NewMockValueResolver(val any) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return val, nil }
}

// NewMockErrorResolver returns a MockResolver that always fails with err.
func NewMockErrorResolver(err error) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

// Call records one field resolution. Async calls made by the same
// BatchResolveAsync invocation share a BatchID; sync calls have BatchID 0.
type Call struct {
	Kind       string
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
	BatchID    int
}

// MockRuntime is a Runtime backed by resolvers keyed "ObjectType.field". It
// records every call so tests can assert batching.
type MockRuntime struct {
	// TypeOf resolves abstract types. The default reads "__typename" from
	// map values.
	TypeOf func(value any) (string, error)
	// Serialize converts leaf values. The default passes values through.
	Serialize func(typeName string, value any) (any, error)

	mu        sync.Mutex
	resolvers map[string]MockResolver
	calls     []Call
	batches   int
}

// NewMockRuntime returns a MockRuntime serving resolvers.
func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{resolvers: make(map[string]MockResolver, len(resolvers))}
	for k, v := range resolvers {
		m.resolvers[k] = v
	}
	return m
}

// SetResolver registers the resolver for objectType.field.
func (m *MockRuntime) SetResolver(objectType, field string, r MockResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[objectType+"."+field] = r
}

// Calls returns the recorded calls in order.
func (m *MockRuntime) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *MockRuntime) record(kind string, task ResolveTask, batch int) MockResolver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{
		Kind:       kind,
		ObjectType: task.ObjectType,
		Field:      task.Field,
		Source:     task.Source,
		Args:       task.Args,
		BatchID:    batch,
	})
	return m.resolvers[task.ObjectType+"."+task.Field]
}

func (m *MockRuntime) ResolveSync(ctx context.Context, task ResolveTask) (any, error) {
	if r := m.record(CallKindSync, task, 0); r != nil {
		return r(ctx, task.Source, task.Args)
	}
	return nil, nil
}

func (m *MockRuntime) BatchResolveAsync(ctx context.Context, tasks []ResolveTask) []ResolveResult {
	if len(tasks) == 0 {
		return nil
	}
	m.mu.Lock()
	m.batches++
	batch := m.batches
	m.mu.Unlock()

	results := make([]ResolveResult, len(tasks))
	for i, task := range tasks {
		if r := m.record(CallKindAsync, task, batch); r != nil {
			results[i].Value, results[i].Error = r(ctx, task.Source, task.Args)
		}
	}
	return results
}

func (m *MockRuntime) ResolveType(_ context.Context, _ string, value any) (string, error) {
	if m.TypeOf != nil {
		return m.TypeOf(value)
	}
	if v, ok := value.(map[string]any); ok {
		if name, ok := v["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve type")
}

func (m *MockRuntime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	if m.Serialize != nil {
		return m.Serialize(typeName, value)
	}
	return value, nil
}
