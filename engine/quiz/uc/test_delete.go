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

// DeleteTest use case for permanently removing a test and its questions
type DeleteTest struct {
	store store.Store
	id    core.ID
	opts  []quiz.Option
}

// NewDeleteTest creates a new delete test use case
func NewDeleteTest(s store.Store, id core.ID, opts ...quiz.Option) *DeleteTest {
	return &DeleteTest{store: s, id: id, opts: opts}
}

// Execute deletes the test or returns ErrTestNotFound
func (uc *DeleteTest) Execute(ctx context.Context) error {
	err := uc.store.WithTransaction(ctx, func(tx store.Tx) error {
		ok, err := quiz.NewRepository(tx, uc.opts...).Delete(ctx, uc.id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTestNotFound
		}
		return nil
	})
	if errors.Is(err, ErrTestNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	logger.FromContext(ctx).Info("Test deleted successfully", "test_id", uc.id)
	return nil
}

// ArchiveTestInput represents the input for archiving a test
type ArchiveTestInput struct {
	ID      core.ID  `json:"id" validate:"required"`
	ActorID *core.ID `json:"-"`
}

// ArchiveTest use case for soft deleting a test
type ArchiveTest struct {
	store store.Store
	input *ArchiveTestInput
	opts  []quiz.Option
}

// NewArchiveTest creates a new archive test use case
func NewArchiveTest(s store.Store, input *ArchiveTestInput, opts ...quiz.Option) *ArchiveTest {
	return &ArchiveTest{store: s, input: input, opts: opts}
}

// Execute archives the test or returns ErrTestNotFound
func (uc *ArchiveTest) Execute(ctx context.Context) error {
	if uc.input == nil {
		return validateInput(nil)
	}
	if err := validateInput(uc.input); err != nil {
		return err
	}
	err := uc.store.WithTransaction(ctx, func(tx store.Tx) error {
		ok, err := quiz.NewRepository(tx, uc.opts...).Archive(ctx, uc.input.ID, uc.input.ActorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTestNotFound
		}
		return nil
	})
	if errors.Is(err, ErrTestNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to archive test: %w", err)
	}
	logger.FromContext(ctx).Info("Test archived successfully", "test_id", uc.input.ID)
	return nil
}
