package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type SubmitAnswerRequest struct {
	UserAddress      string `json:"user_address"`
	WeekNumber       int    `json:"week_number"`
	QuestionID       uint   `json:"question_id"`
	Answer           string `json:"answer"`
	TimeTakenSeconds *int   `json:"time_taken_seconds,omitempty"`
}

func (req *SubmitAnswerRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.UserAddress, validation.Required, isChainAddress),
		validation.Field(&req.WeekNumber, validation.Required, validation.Min(1)),
		validation.Field(&req.QuestionID, validation.Required),
		validation.Field(&req.Answer, validation.Required, validation.Length(1, 500)),
	)
}

type CreateQuestionRequest struct {
	WeekNumber    int    `json:"week_number"`
	QuestionText  string `json:"question_text"`
	CorrectAnswer string `json:"correct_answer"`
	PointsReward  int    `json:"points_reward"`
	Difficulty    string `json:"difficulty"`
	Explanation   string `json:"explanation"`
}

func (req *CreateQuestionRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.WeekNumber, validation.Required, validation.Min(1)),
		validation.Field(&req.QuestionText, validation.Required, validation.Length(1, 2000)),
		validation.Field(&req.CorrectAnswer, validation.Required, validation.Length(1, 500)),
		validation.Field(&req.PointsReward, validation.Min(0)),
		validation.Field(&req.Difficulty, validation.In("easy", "medium", "hard")),
	)
}
