package reqid

import (
	"context"

	"github.com/google/uuid"
)

// key is the context key for the request ID.
type key struct{}

// Header is the HTTP header a client may set to choose the request ID.
const Header = "X-Request-Id"

// NewContext returns a copy of parent carrying a new random request ID,
// and the ID.
func NewContext(parent context.Context) (context.Context, string) {
	id := uuid.NewString()
	return WithID(parent, id), id
}

type entry struct{ id string }

// WithID returns a copy of parent carrying id.
func WithID(parent context.Context, id string) context.Context {
	return context.WithValue(parent, key{}, &entry{id: id})
}

// FromContext extracts the request ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	e, ok := ctx.Value(key{}).(*entry)
	if !ok {
		return "", false
	}
	return e.id, true
}

// Token identifies the request ctx belongs to. Requests carrying the same
// client-chosen ID still get distinct tokens. It is nil outside a request.
func Token(ctx context.Context) any {
	e, _ := ctx.Value(key{}).(*entry)
	if e == nil {
		return nil
	}
	return e
}
