package uc

import (
	"context"

	"github.com/compozy/quizbank/engine/core"
	"github.com/compozy/quizbank/engine/quiz"
	"github.com/compozy/quizbank/engine/store"
	"github.com/compozy/quizbank/pkg/logger"
)

// GetTest use case for retrieving a test by id
type GetTest struct {
	store store.Store
	id    core.ID
	opts  []quiz.Option
}

// NewGetTest creates a new get test use case
func NewGetTest(s store.Store, id core.ID, opts ...quiz.Option) *GetTest {
	return &GetTest{store: s, id: id, opts: opts}
}

// Execute returns the test or ErrTestNotFound
func (uc *GetTest) Execute(ctx context.Context) (*quiz.TestDTO, error) {
	logger.FromContext(ctx).Debug("Getting test", "test_id", uc.id)
	var test *quiz.TestDTO
	err := uc.store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		test, err = quiz.NewRepository(tx, uc.opts...).GetByID(ctx, uc.id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, ErrTestNotFound
	}
	return test, nil
}

// GetTestDetail use case for retrieving a test with its questions and answers
type GetTestDetail struct {
	store store.Store
	id    core.ID
	opts  []quiz.Option
}

func NewGetTestDetail(s store.Store, id core.ID, opts ...quiz.Option) *GetTestDetail {
	return &GetTestDetail{store: s, id: id, opts: opts}
}

func (uc *GetTestDetail) Execute(ctx context.Context) (*quiz.TestDetailDTO, error) {
	logger.FromContext(ctx).Debug("Getting test detail", "test_id", uc.id)
	var detail *quiz.TestDetailDTO
	err := uc.store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		detail, err = quiz.NewRepository(tx, uc.opts...).GetWithQuestions(ctx, uc.id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, ErrTestNotFound
	}
	return detail, nil
}
