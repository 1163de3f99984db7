package utils

import "context"

type contextKey string

const subjectKey contextKey = "subject"

// WithSubject stores the authenticated caller (token subject) in ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFrom returns the authenticated caller, if any.
func SubjectFrom(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}
