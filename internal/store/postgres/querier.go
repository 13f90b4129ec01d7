package postgres

import (
	"context"

	"github.com/google/uuid"
)

// QuestionQuerier is the question half of Queries, served by either the pool
// or a transaction.
type QuestionQuerier interface {
	ListQuestions(ctx context.Context, arg ListQuestionsParams) ([]Question, error)
	CountQuestions(ctx context.Context) (int64, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (Question, error)
	GetQuestionForUpdate(ctx context.Context, id uuid.UUID) (Question, error)
	CreateQuestion(ctx context.Context, arg CreateQuestionParams) (Question, error)
	UpdateQuestion(ctx context.Context, arg UpdateQuestionParams) (Question, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
}

var _ QuestionQuerier = (*Queries)(nil)
