package utils

import (
	"context"
)

type contextKey string

const ContextSubjectKey contextKey = "subject"

func GetSubjectFromContext(ctx context.Context) (string, bool) {
	subject := ctx.Value(ContextSubjectKey)
	subjectStr, ok := subject.(string)
	return subjectStr, ok
}
