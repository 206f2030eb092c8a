package executor

import language "github.com/hanpama/gqltools/internal/language"

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// Location is a line/column position in the request document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// RequestErrors converts parse and validation errors of a request document.
func RequestErrors(list language.ErrorList) []GraphQLError {
	out := make([]GraphQLError, 0, len(list))
	for _, err := range list {
		if err == nil {
			continue
		}
		ge := GraphQLError{Message: err.Message, Extensions: err.Extensions}
		for _, loc := range err.Locations {
			ge.Locations = append(ge.Locations, Location{Line: loc.Line, Column: loc.Column})
		}
		out = append(out, ge)
	}
	return out
}
