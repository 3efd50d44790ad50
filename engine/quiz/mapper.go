package quiz

import (
	"github.com/compozy/quizbank/engine/quiz/model"
)

func toTestDTO(t *model.Test) *TestDTO {
	return &TestDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CreatedAt:   t.CreatedAt.UTC(),
	}
}

func toQuestionDTO(q *model.Question, answers []*model.Answer) *QuestionDTO {
	out := &QuestionDTO{
		ID:       q.ID,
		TestID:   q.TestID,
		Text:     q.Text,
		Position: q.Position,
		Answers:  make([]*AnswerDTO, 0, len(answers)),
	}
	for _, a := range answers {
		out.Answers = append(out.Answers, toAnswerDTO(a))
	}
	return out
}

func toAnswerDTO(a *model.Answer) *AnswerDTO {
	return &AnswerDTO{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Text:       a.Text,
		IsCorrect:  a.IsCorrect,
		Position:   a.Position,
	}
}
