package dto

type QuizAnswer struct {
	QuestionID string   `json:"question_id" validate:"required"`
	ChoiceIDs  []string `json:"choice_ids" validate:"required"`
}

type SubmitQuizRequest struct {
	Answers []QuizAnswer `json:"answers" validate:"required,dive"`
}

func (r SubmitQuizRequest) Validate() error {
	return validate.Struct(r)
}

// Score is truncated to 2 decimals at this boundary; internal math keeps the
// full precision.
type SubmitQuizResponse struct {
	Passed bool    `json:"passed"`
	Score  float64 `json:"score"`
}
