package model

// Question is one static assessment question.
type Question struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	Type       string `json:"type"`
	Position   int    `json:"-"`
}
