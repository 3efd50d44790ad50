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

// UpdateTestInput represents the input for updating a test
type UpdateTestInput struct {
	ID          core.ID  `json:"id"          validate:"required"`
	Title       string   `json:"title"       validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	ActorID     *core.ID `json:"-"`
}

// UpdateTest use case for overwriting the mutable fields of a test
type UpdateTest struct {
	store store.Store
	input *UpdateTestInput
	opts  []quiz.Option
}

// NewUpdateTest creates a new update test use case
func NewUpdateTest(s store.Store, input *UpdateTestInput, opts ...quiz.Option) *UpdateTest {
	return &UpdateTest{store: s, input: input, opts: opts}
}

// Execute updates the test and returns its new state
func (uc *UpdateTest) Execute(ctx context.Context) (*quiz.TestDTO, error) {
	if uc.input == nil {
		return nil, validateInput(nil)
	}
	if err := validateInput(uc.input); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Debug("Updating test", "test_id", uc.input.ID)
	var updated *quiz.TestDTO
	err := uc.store.WithTransaction(ctx, func(tx store.Tx) error {
		repo := quiz.NewRepository(tx, uc.opts...)
		ok, err := repo.Update(ctx, &quiz.TestDTO{
			ID:          uc.input.ID,
			Title:       uc.input.Title,
			Description: uc.input.Description,
		}, uc.input.ActorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTestNotFound
		}
		updated, err = repo.GetByID(ctx, uc.input.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update test: %w", err)
	}
	log.Info("Test updated successfully", "test_id", uc.input.ID)
	return updated, nil
}
