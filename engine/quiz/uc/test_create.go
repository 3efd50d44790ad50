package uc

import (
	"context"
	"fmt"

	"github.com/compozy/quizbank/engine/core"
	"github.com/compozy/quizbank/engine/quiz"
	"github.com/compozy/quizbank/engine/store"
	"github.com/compozy/quizbank/pkg/logger"
)

// CreateTestInput represents the input for creating a test with optional questions
type CreateTestInput struct {
	Title       string              `json:"title"       validate:"required,max=200"`
	Description string              `json:"description" validate:"max=2000"`
	Questions   []*quiz.QuestionDTO `json:"questions"   validate:"dive,required"`
	ActorID     *core.ID            `json:"-"`
}

// CreateTest use case for creating a new test
type CreateTest struct {
	store store.Store
	input *CreateTestInput
	opts  []quiz.Option
}

// NewCreateTest creates a new create test use case
func NewCreateTest(s store.Store, input *CreateTestInput, opts ...quiz.Option) *CreateTest {
	return &CreateTest{store: s, input: input, opts: opts}
}

// Execute stores the test, its questions and their answers in one transaction
func (uc *CreateTest) Execute(ctx context.Context) (*quiz.TestDetailDTO, error) {
	if uc.input == nil {
		return nil, validateInput(nil)
	}
	if err := validateInput(uc.input); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Debug("Creating test", "title", uc.input.Title, "questions", len(uc.input.Questions))
	var created *quiz.TestDetailDTO
	err := uc.store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		created, err = quiz.NewRepository(tx, uc.opts...).CreateWithQuestions(ctx, &quiz.TestDetailDTO{
			TestDTO:   quiz.TestDTO{Title: uc.input.Title, Description: uc.input.Description},
			Questions: uc.input.Questions,
		}, uc.input.ActorID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}
	log.Info("Test created successfully", "test_id", created.ID, "questions", len(created.Questions))
	return created, nil
}
