package domain

import "time"

// QuizQuestion is the once-per-week trivia question gating ticket eligibility.
// Questions are immutable once created.
type QuizQuestion struct {
	ID            uint      `json:"id"`
	WeekNumber    int       `json:"week_number"`
	QuestionText  string    `json:"question_text"`
	CorrectAnswer string    `json:"-"`
	PointsReward  int       `json:"points_reward"`
	Difficulty    string    `json:"difficulty"`
	Explanation   string    `json:"explanation,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserQuizAttempt records a user's single shot at one week's question.
// Attempts are insert-only; a second submission for the same week is rejected.
type UserQuizAttempt struct {
	ID               uint      `json:"id"`
	UserAddress      string    `json:"user_address"`
	WeekNumber       int       `json:"week_number"`
	QuizQuestionID   uint      `json:"quiz_question_id"`
	UserAnswer       string    `json:"user_answer"`
	IsCorrect        bool      `json:"is_correct"`
	PointsEarned     int       `json:"points_earned"`
	CanMintTicket    bool      `json:"can_mint_ticket"`
	TimeTakenSeconds *int      `json:"time_taken_seconds,omitempty"`
	AttemptedAt      time.Time `json:"attempted_at"`
}

// QuizResult is what a submission returns to the client.
type QuizResult struct {
	IsCorrect     bool   `json:"is_correct"`
	PointsEarned  int    `json:"points_earned"`
	CanMintTicket bool   `json:"can_mint_ticket"`
	Explanation   string `json:"explanation,omitempty"`
}

// UserWeekSnapshot bundles everything the client needs to render one
// user's state for a given week.
type UserWeekSnapshot struct {
	UserAddress string           `json:"user_address"`
	WeekNumber  int              `json:"week_number"`
	Attempt     *UserQuizAttempt `json:"attempt,omitempty"`
	Tickets     []RaffleTicket   `json:"tickets"`
	CanMint     bool             `json:"can_mint"`
}
