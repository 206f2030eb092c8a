// Package executor runs validated GraphQL operations against a Runtime.
//
// Execution is breadth-first. Fields whose schema.Field.Async flag is false
// resolve immediately through Runtime.ResolveSync and their object values
// expand in place. Async fields found while expanding one depth are queued and
// handed to Runtime.BatchResolveAsync in a single call once the depth is
// exhausted, so a response whose async fields nest d levels deep costs d batch
// calls. Resolver-map schemas mark every field that has a resolver as async;
// fields served by the default resolver stay sync.
//
// # Completion
//
// Values complete the usual way: lists element by element with index-aware
// paths, leafs through Runtime.SerializeLeafValue, abstract types through
// Runtime.ResolveType followed by a possible-type check, objects by
// collecting their sub-selections. A null in a Non-Null position nulls the
// nearest nullable ancestor and drops queued tasks beneath it.
//
// # Errors
//
// Resolver and completion errors become located GraphQLError values with the
// response path; errors with an Extensions() map[string]any method contribute
// extensions. Results inside one batch are independent, so execution can
// partially succeed.
//
// Root mutation fields are kept sync by their schema and run in document
// order. Subscriptions are rejected. When the request context is done, queued
// tasks fail with the context error instead of reaching the runtime.
package executor
