package quiz

import (
	"time"

	"github.com/compozy/quizbank/engine/core"
)

// TestDTO is the external shape of a Test.
type TestDTO struct {
	ID          core.ID   `json:"id"`
	Title       string    `json:"title"       validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	CreatedAt   time.Time `json:"created_at"`
}

type AnswerDTO struct {
	ID         core.ID `json:"id"`
	QuestionID core.ID `json:"question_id"`
	Text       string  `json:"text"        validate:"required"`
	IsCorrect  bool    `json:"is_correct"`
	Position   int     `json:"position"    validate:"gte=0"`
}

type QuestionDTO struct {
	ID       core.ID      `json:"id"`
	TestID   core.ID      `json:"test_id"`
	Text     string       `json:"text"     validate:"required"`
	Position int          `json:"position" validate:"gte=0"`
	Answers  []*AnswerDTO `json:"answers"  validate:"dive,required"`
}

// TestDetailDTO is a Test together with its questions and their answers.
type TestDetailDTO struct {
	TestDTO
	Questions []*QuestionDTO `json:"questions" validate:"dive,required"`
}
