package events

import "time"

// SchemaBuilt is emitted after an executable schema was constructed.
type SchemaBuilt struct {
	Types    int
	Duration time.Duration
	Err      error
}

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation.
// Errors includes request errors from parsing and validation.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
	// Cached reports whether the parsed document came from the query cache.
	Cached bool
}
