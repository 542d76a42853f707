package httpapi

import (
	"context"

	"github.com/tripboard/tripboard-api/internal/domain"
)

type (
	subjectKey  struct{}
	memberIDKey struct{}
)

func WithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subjectID)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey{}).(string)
	return v, ok && v != ""
}

// WithMemberID stores the provisioned member resolved for the request subject.
func WithMemberID(ctx context.Context, id domain.MemberID) context.Context {
	return context.WithValue(ctx, memberIDKey{}, id)
}

func MemberIDFromContext(ctx context.Context) (domain.MemberID, bool) {
	v, ok := ctx.Value(memberIDKey{}).(domain.MemberID)
	return v, ok && v != ""
}
