package gqltools

import (
	"context"

	"github.com/sirupsen/logrus"
)

// logResolver wraps fn so the errors it returns are logged with the field
// coordinate and response path. Panics are logged by the runtime.
func logResolver(logger logrus.FieldLogger, coord coordinate, fn FieldResolveFn) FieldResolveFn {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		value, err := fn(ctx, source, args)
		if err != nil {
			entry := logger.WithError(err).WithFields(logrus.Fields{"type": coord.Type, "field": coord.Field})
			if fc := GetFieldContext(ctx); fc != nil {
				entry = entry.WithField("path", fc.Path.String())
			}
			entry.Warn("resolver returned an error")
		}
		return value, err
	}
}
