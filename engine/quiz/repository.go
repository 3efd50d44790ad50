package quiz

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/compozy/quizbank/engine/core"
	"github.com/compozy/quizbank/engine/quiz/model"
	"github.com/compozy/quizbank/engine/store"
	"github.com/compozy/quizbank/pkg/logger"
)

// Repository is the Test aggregate façade. All of its accessors borrow the
// same Tx, so a multi-entity operation commits or rolls back as one unit.
type Repository struct {
	tests     *store.Accessor[*model.Test]
	questions *store.Accessor[*model.Question]
	answers   *store.Accessor[*model.Answer]
	clock     func() time.Time
}

type Option func(*options)

type options struct {
	clock   func() time.Time
	metrics *store.Metrics
}

// WithClock overrides the time source for audit timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func WithMetrics(m *store.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func NewRepository(tx store.Tx, opts ...Option) *Repository {
	o := options{clock: store.Now}
	for _, opt := range opts {
		opt(&o)
	}
	accessorOpts := []store.AccessorOption{store.WithClock(o.clock)}
	if o.metrics != nil {
		accessorOpts = append(accessorOpts, store.WithMetrics(o.metrics))
	}
	return &Repository{
		tests:     store.NewAccessor[*model.Test](tx, model.TestSchema, accessorOpts...),
		questions: store.NewAccessor[*model.Question](tx, model.QuestionSchema, accessorOpts...),
		answers:   store.NewAccessor[*model.Answer](tx, model.AnswerSchema, accessorOpts...),
		clock:     o.clock,
	}
}

// GetByID returns the live test with the given id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id core.ID) (*TestDTO, error) {
	t, found, err := r.tests.FindOne(ctx, store.ByID(id))
	if err != nil || !found {
		return nil, err
	}
	return toTestDTO(t), nil
}

// GetAll returns every live test in creation order.
func (r *Repository) GetAll(ctx context.Context) ([]*TestDTO, error) {
	tests, err := r.tests.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*TestDTO, 0, len(tests))
	for _, t := range tests {
		out = append(out, toTestDTO(t))
	}
	return out, nil
}

// Create stores a new test built from dto under a fresh id. The id and
// creation time carried by dto are ignored.
func (r *Repository) Create(ctx context.Context, dto *TestDTO, actorID *core.ID) (*TestDTO, error) {
	if dto == nil {
		return nil, fmt.Errorf("quiz: test is required")
	}
	t, err := r.newTest(dto, actorID)
	if err != nil {
		return nil, err
	}
	if err := r.tests.Save(ctx, t); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("Test created", "test_id", t.ID)
	return toTestDTO(t), nil
}

// Update overwrites the mutable fields of the live test identified by dto.ID.
// It reports false without writing when no such test exists.
func (r *Repository) Update(ctx context.Context, dto *TestDTO, actorID *core.ID) (bool, error) {
	if dto == nil {
		return false, fmt.Errorf("quiz: test is required")
	}
	t, found, err := r.tests.FindOne(ctx, store.ByID(dto.ID))
	if err != nil || !found {
		return false, err
	}
	t.Title = dto.Title
	t.Description = dto.Description
	t.Touch(r.clock(), actorID)
	if err := r.tests.Save(ctx, t); err != nil {
		return false, err
	}
	return true, nil
}

// Delete permanently removes a test together with its questions and answers.
// Archived tests are removed too and report true, so Delete also purges what
// Archive left behind. It reports false when no row exists, including on a
// second call.
func (r *Repository) Delete(ctx context.Context, id core.ID) (bool, error) {
	err := r.tests.HardDelete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Archive soft deletes a live test. Archived tests disappear from every read
// but stay in storage.
func (r *Repository) Archive(ctx context.Context, id core.ID, actorID *core.ID) (bool, error) {
	t, found, err := r.tests.FindOne(ctx, store.ByID(id))
	if err != nil || !found {
		return false, err
	}
	t.Touch(r.clock(), actorID)
	if err := r.tests.Save(ctx, t); err != nil {
		return false, err
	}
	err = r.tests.SoftDelete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetWithQuestions returns a live test with its questions and answers ordered
// by position, or nil when the test is absent.
func (r *Repository) GetWithQuestions(ctx context.Context, id core.ID) (*TestDetailDTO, error) {
	t, found, err := r.tests.FindOne(ctx, store.ByID(id))
	if err != nil || !found {
		return nil, err
	}
	questions, err := r.questions.FindAll(ctx, store.Eq(model.ColumnTestID, id))
	if err != nil {
		return nil, err
	}
	byQuestion, err := r.answersByQuestion(ctx, questions)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(questions, func(a, b *model.Question) int { return a.Position - b.Position })
	detail := &TestDetailDTO{TestDTO: *toTestDTO(t), Questions: make([]*QuestionDTO, 0, len(questions))}
	for _, q := range questions {
		detail.Questions = append(detail.Questions, toQuestionDTO(q, byQuestion[q.ID]))
	}
	return detail, nil
}

// CreateWithQuestions stores a new test with all of its questions and
// answers. Any failure leaves the bound Tx to be rolled back by its owner.
func (r *Repository) CreateWithQuestions(
	ctx context.Context,
	dto *TestDetailDTO,
	actorID *core.ID,
) (*TestDetailDTO, error) {
	if dto == nil {
		return nil, fmt.Errorf("quiz: test is required")
	}
	created, err := r.Create(ctx, &dto.TestDTO, actorID)
	if err != nil {
		return nil, err
	}
	detail := &TestDetailDTO{TestDTO: *created, Questions: make([]*QuestionDTO, 0, len(dto.Questions))}
	for _, q := range dto.Questions {
		stored, err := r.insertQuestion(ctx, created.ID, q, actorID)
		if err != nil {
			return nil, err
		}
		detail.Questions = append(detail.Questions, stored)
	}
	return detail, nil
}

// AddQuestion appends a question with its answers to a live test. It returns
// nil when the test is absent.
func (r *Repository) AddQuestion(
	ctx context.Context,
	testID core.ID,
	dto *QuestionDTO,
	actorID *core.ID,
) (*QuestionDTO, error) {
	if dto == nil {
		return nil, fmt.Errorf("quiz: question is required")
	}
	_, found, err := r.tests.FindOne(ctx, store.ByID(testID))
	if err != nil || !found {
		return nil, err
	}
	return r.insertQuestion(ctx, testID, dto, actorID)
}

func (r *Repository) insertQuestion(
	ctx context.Context,
	testID core.ID,
	dto *QuestionDTO,
	actorID *core.ID,
) (*QuestionDTO, error) {
	if dto == nil {
		return nil, fmt.Errorf("quiz: question is required")
	}
	id, err := core.NewID()
	if err != nil {
		return nil, fmt.Errorf("quiz: generate question id: %w", err)
	}
	q := &model.Question{
		ID:       id,
		TestID:   testID,
		Text:     dto.Text,
		Position: dto.Position,
		Audit:    store.Audit{CreatedAt: r.clock(), CreatedBy: actorID},
	}
	if err := r.questions.Save(ctx, q); err != nil {
		return nil, err
	}
	answers := make([]*model.Answer, 0, len(dto.Answers))
	for _, a := range dto.Answers {
		if a == nil {
			return nil, fmt.Errorf("quiz: answer is required")
		}
		answerID, err := core.NewID()
		if err != nil {
			return nil, fmt.Errorf("quiz: generate answer id: %w", err)
		}
		answer := &model.Answer{
			ID:         answerID,
			QuestionID: q.ID,
			Text:       a.Text,
			IsCorrect:  a.IsCorrect,
			Position:   a.Position,
			Audit:      store.Audit{CreatedAt: r.clock(), CreatedBy: actorID},
		}
		if err := r.answers.Save(ctx, answer); err != nil {
			return nil, err
		}
		answers = append(answers, answer)
	}
	return toQuestionDTO(q, answers), nil
}

func (r *Repository) answersByQuestion(
	ctx context.Context,
	questions []*model.Question,
) (map[core.ID][]*model.Answer, error) {
	out := make(map[core.ID][]*model.Answer, len(questions))
	if len(questions) == 0 {
		return out, nil
	}
	ids := make([]core.ID, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	answers, err := r.answers.FindAll(ctx, store.In(model.ColumnQuestionID, ids...))
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(answers, func(a, b *model.Answer) int { return a.Position - b.Position })
	for _, a := range answers {
		out[a.QuestionID] = append(out[a.QuestionID], a)
	}
	return out, nil
}

func (r *Repository) newTest(dto *TestDTO, actorID *core.ID) (*model.Test, error) {
	id, err := core.NewID()
	if err != nil {
		return nil, fmt.Errorf("quiz: generate test id: %w", err)
	}
	return &model.Test{
		ID:          id,
		Title:       dto.Title,
		Description: dto.Description,
		Audit:       store.Audit{CreatedAt: r.clock(), CreatedBy: actorID},
	}, nil
}
