package auth

import "context"

type contextKey string

// ReviewerKey is the context key holding the authenticated reviewer id.
const ReviewerKey contextKey = "reviewer"

// GetReviewerFromContext extracts the authenticated reviewer id from the
// context. Returns the empty string when the request was anonymous.
func GetReviewerFromContext(ctx context.Context) string {
	reviewer, _ := ctx.Value(ReviewerKey).(string)
	return reviewer
}

// SetReviewer stores the reviewer id in the context.
func SetReviewer(ctx context.Context, reviewer string) context.Context {
	return context.WithValue(ctx, ReviewerKey, reviewer)
}
