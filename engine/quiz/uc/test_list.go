package uc

import (
	"context"
	"fmt"

	"github.com/compozy/quizbank/engine/quiz"
	"github.com/compozy/quizbank/engine/store"
)

// ListTests use case for listing every live test
type ListTests struct {
	store store.Store
	opts  []quiz.Option
}

// NewListTests creates a new list tests use case
func NewListTests(s store.Store, opts ...quiz.Option) *ListTests {
	return &ListTests{store: s, opts: opts}
}

// Execute returns all live tests in creation order
func (uc *ListTests) Execute(ctx context.Context) ([]*quiz.TestDTO, error) {
	var tests []*quiz.TestDTO
	err := uc.store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		tests, err = quiz.NewRepository(tx, uc.opts...).GetAll(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}
