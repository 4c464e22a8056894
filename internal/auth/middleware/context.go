package auth

import "context"

type subjectKey struct{}

// WithSubject attaches the authenticated user ID to the request context.
func WithSubject(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subjectKey{}, id)
}

// SubjectFromContext returns the authenticated user ID, or "" when the
// request never passed the JWT middleware.
func SubjectFromContext(ctx context.Context) string {
	id, _ := ctx.Value(subjectKey{}).(string)
	return id
}
