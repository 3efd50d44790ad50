package model

import (
	"github.com/compozy/quizbank/engine/core"
	"github.com/compozy/quizbank/engine/store"
)

const (
	TableTests     = "tests"
	TableQuestions = "questions"
	TableAnswers   = "answers"

	ColumnTitle       = "title"
	ColumnDescription = "description"
	ColumnTestID      = "test_id"
	ColumnText        = "text"
	ColumnPosition    = "position"
	ColumnQuestionID  = "question_id"
	ColumnIsCorrect   = "is_correct"
)

var (
	TestSchema = store.Schema{
		Table:      TableTests,
		Columns:    store.WithAudit(store.ColumnID, ColumnTitle, ColumnDescription),
		SoftDelete: true,
		OrderBy:    store.CreationOrder,
	}
	QuestionSchema = store.Schema{
		Table:      TableQuestions,
		Columns:    store.WithAudit(store.ColumnID, ColumnTestID, ColumnText, ColumnPosition),
		SoftDelete: true,
		OrderBy:    store.CreationOrder,
	}
	AnswerSchema = store.Schema{
		Table:      TableAnswers,
		Columns:    store.WithAudit(store.ColumnID, ColumnQuestionID, ColumnText, ColumnIsCorrect, ColumnPosition),
		SoftDelete: true,
		OrderBy:    store.CreationOrder,
	}
)

// Test is the root of the quiz aggregate.
type Test struct {
	ID          core.ID `db:"id"`
	Title       string  `db:"title"`
	Description string  `db:"description"`
	store.Audit
}

func (t *Test) EntityID() core.ID { return t.ID }

func (t *Test) Fields() []store.Field {
	return append([]store.Field{
		{Column: store.ColumnID, Value: t.ID},
		{Column: ColumnTitle, Value: t.Title},
		{Column: ColumnDescription, Value: t.Description},
	}, t.Audit.Fields()...)
}

// Question belongs to exactly one Test.
type Question struct {
	ID       core.ID `db:"id"`
	TestID   core.ID `db:"test_id"`
	Text     string  `db:"text"`
	Position int     `db:"position"`
	store.Audit
}

func (q *Question) EntityID() core.ID { return q.ID }

func (q *Question) Fields() []store.Field {
	return append([]store.Field{
		{Column: store.ColumnID, Value: q.ID},
		{Column: ColumnTestID, Value: q.TestID},
		{Column: ColumnText, Value: q.Text},
		{Column: ColumnPosition, Value: q.Position},
	}, q.Audit.Fields()...)
}

// Answer belongs to exactly one Question.
type Answer struct {
	ID         core.ID `db:"id"`
	QuestionID core.ID `db:"question_id"`
	Text       string  `db:"text"`
	IsCorrect  bool    `db:"is_correct"`
	Position   int     `db:"position"`
	store.Audit
}

func (a *Answer) EntityID() core.ID { return a.ID }

func (a *Answer) Fields() []store.Field {
	return append([]store.Field{
		{Column: store.ColumnID, Value: a.ID},
		{Column: ColumnQuestionID, Value: a.QuestionID},
		{Column: ColumnText, Value: a.Text},
		{Column: ColumnIsCorrect, Value: a.IsCorrect},
		{Column: ColumnPosition, Value: a.Position},
	}, a.Audit.Fields()...)
}
