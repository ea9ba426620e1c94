package domain

import "time"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// SlotVariant names the two question slot shapes.
type SlotVariant string

const (
	VariantCorrection SlotVariant = "correction"
	VariantSimple     SlotVariant = "simple"
)

// Verdict is the subject's judgment of a guess.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// Seat identifies which of the two fixed player positions a user occupies.
type Seat int

const (
	SeatNone Seat = iota
	SeatPlayer1
	SeatPlayer2
)

// BankQuestion is one catalog record supplied by the question bank.
type BankQuestion struct {
	Prompt  string `json:"prompt"`
	Points  int    `json:"points"`
	OptionA string `json:"optionA,omitempty"`
	OptionB string `json:"optionB,omitempty"`
}

// BinaryChoice reports whether the record offers exactly two options.
func (q BankQuestion) BinaryChoice() bool {
	return q.OptionA != "" && q.OptionB != ""
}

// CorrectionSlot is a question about Subject that Guesser tries to answer.
type CorrectionSlot struct {
	Subject            string     `json:"subject"`
	Guesser            string     `json:"guesser"`
	SubjectAnswer      string     `json:"subjectAnswer,omitempty"`
	SubjectHasAnswered bool       `json:"subjectHasAnswered"`
	GuesserAnswer      string     `json:"guesserAnswer,omitempty"`
	GuesserHasAnswered bool       `json:"guesserHasAnswered"`
	Verdict            *Verdict   `json:"verdict"`
	VerdictBy          string     `json:"verdictBy,omitempty"`
	VerdictAt          *time.Time `json:"verdictAt,omitempty"`
}

func (c *CorrectionSlot) bothAnswered() bool {
	return c.SubjectHasAnswered && c.GuesserHasAnswered
}

// SimpleSlot is a question both players answer; an answered pair resolves itself.
type SimpleSlot struct {
	OptionA            string `json:"optionA,omitempty"`
	OptionB            string `json:"optionB,omitempty"`
	Player1Answer      string `json:"player1Answer,omitempty"`
	Player1HasAnswered bool   `json:"player1HasAnswered"`
	Player2Answer      string `json:"player2Answer,omitempty"`
	Player2HasAnswered bool   `json:"player2HasAnswered"`
}

func (s *SimpleSlot) bothAnswered() bool {
	return s.Player1HasAnswered && s.Player2HasAnswered
}

// QuestionSlot holds exactly one of Correction or Simple, chosen once per session by the game type.
type QuestionSlot struct {
	Prompt     string          `json:"prompt"`
	Points     int             `json:"points"`
	Correction *CorrectionSlot `json:"correction,omitempty"`
	Simple     *SimpleSlot     `json:"simple,omitempty"`
}

// PlayerScore is one side of the scoreboard.
type PlayerScore struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// Scores keeps player1 and player2 in their creation order.
type Scores struct {
	Player1 PlayerScore `json:"player1"`
	Player2 PlayerScore `json:"player2"`
}

// Session is the aggregate root of one game instance.
type Session struct {
	ID        string         `json:"id"`
	GameType  GameType       `json:"gameType"`
	Creator   string         `json:"creator"`
	Player1   string         `json:"player1"`
	Player2   string         `json:"player2"`
	Status    Status         `json:"status"`
	Questions []QuestionSlot `json:"questions"`
	Scores    Scores         `json:"scores"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   *time.Time     `json:"endedAt,omitempty"`

	PendingCorrectionCount int `json:"pendingCorrectionCount"`
	CompletedQuestionCount int `json:"completedQuestionCount"`
	CompletionPercent      int `json:"completionPercent"`

	// Version increases on every persisted write and backs optimistic concurrency in stores.
	Version int64 `json:"version"`
}
