package repositories

import (
	"context"

	"github.com/satriahrh/arunika/interview/domain/entities"
)

// AnswerEvaluator scores candidate answers. Implementations never fail: a
// remote error degrades to a neutral result.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, question, answer string) entities.EvaluationResult
	// ModelAnswer returns a reference answer or a placeholder
	ModelAnswer(ctx context.Context, question string) string
	// FollowUp suggests a follow-up question; ok is false when none is available
	FollowUp(ctx context.Context, question, answer string) (followUp string, ok bool)
}
