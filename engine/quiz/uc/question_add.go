package uc

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/quizbank/engine/core"
	"github.com/compozy/quizbank/engine/quiz"
	"github.com/compozy/quizbank/engine/store"
	"github.com/compozy/quizbank/pkg/logger"
)

// AddQuestionInput represents the input for appending a question to a test
type AddQuestionInput struct {
	TestID   core.ID           `json:"test_id"  validate:"required"`
	Question *quiz.QuestionDTO `json:"question" validate:"required"`
	ActorID  *core.ID          `json:"-"`
}

// AddQuestion use case for appending a question with its answers to a test
type AddQuestion struct {
	store store.Store
	input *AddQuestionInput
	opts  []quiz.Option
}

// NewAddQuestion creates a new add question use case
func NewAddQuestion(s store.Store, input *AddQuestionInput, opts ...quiz.Option) *AddQuestion {
	return &AddQuestion{store: s, input: input, opts: opts}
}

// Execute stores the question or returns ErrTestNotFound
func (uc *AddQuestion) Execute(ctx context.Context) (*quiz.QuestionDTO, error) {
	if uc.input == nil {
		return nil, validateInput(nil)
	}
	if err := validateInput(uc.input); err != nil {
		return nil, err
	}
	var added *quiz.QuestionDTO
	err := uc.store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		added, err = quiz.NewRepository(tx, uc.opts...).AddQuestion(ctx, uc.input.TestID, uc.input.Question, uc.input.ActorID)
		if err != nil {
			return err
		}
		if added == nil {
			return ErrTestNotFound
		}
		return nil
	})
	if errors.Is(err, ErrTestNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add question: %w", err)
	}
	logger.FromContext(ctx).Info("Question added successfully", "test_id", uc.input.TestID, "question_id", added.ID)
	return added, nil
}
