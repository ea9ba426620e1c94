package domain

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxAnswerRunes bounds the length of a free-text answer.
const MaxAnswerRunes = 1000

// NewSession builds an in_progress session for creator and partner from the catalog records of gameType.
// Correction games get two slots per prompt: first about the creator, then about the partner.
func NewSession(id string, gameType GameType, creator, partner string, bank []BankQuestion, now time.Time) (Session, error) {
	if !gameType.Valid() {
		return Session{}, ErrUnknownGameType
	}
	if creator == "" || partner == "" || creator == partner {
		return Session{}, ErrInvalidPlayers
	}
	if len(bank) == 0 {
		return Session{}, ErrEmptyQuestionBank
	}

	var slots []QuestionSlot
	if gameType.NeedsCorrection() {
		slots = make([]QuestionSlot, 0, 2*len(bank))
		for _, q := range bank {
			slots = append(slots,
				QuestionSlot{Prompt: q.Prompt, Points: points(q), Correction: &CorrectionSlot{Subject: creator, Guesser: partner}},
				QuestionSlot{Prompt: q.Prompt, Points: points(q), Correction: &CorrectionSlot{Subject: partner, Guesser: creator}},
			)
		}
	} else {
		slots = make([]QuestionSlot, 0, len(bank))
		for _, q := range bank {
			slots = append(slots, QuestionSlot{
				Prompt: q.Prompt,
				Points: points(q),
				Simple: &SimpleSlot{OptionA: q.OptionA, OptionB: q.OptionB},
			})
		}
	}

	s := Session{
		ID:        id,
		GameType:  gameType,
		Creator:   creator,
		Player1:   creator,
		Player2:   partner,
		Status:    StatusInProgress,
		Questions: slots,
		Scores: Scores{
			Player1: PlayerScore{ID: creator},
			Player2: PlayerScore{ID: partner},
		},
		StartedAt: now,
	}
	return Evaluate(s, now), nil
}

func points(q BankQuestion) int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Variant returns the slot shape shared by every question of the session.
func (s *Session) Variant() SlotVariant {
	return s.GameType.Variant()
}

// SeatOf resolves userID against the fixed player positions.
func (s *Session) SeatOf(userID string) Seat {
	switch {
	case userID == "":
		return SeatNone
	case userID == s.Player1:
		return SeatPlayer1
	case userID == s.Player2:
		return SeatPlayer2
	default:
		return SeatNone
	}
}

// IsParticipant reports whether userID is player1 or player2.
func (s *Session) IsParticipant(userID string) bool {
	return s.SeatOf(userID) != SeatNone
}

// Authorize fails with ErrForbidden when requester does not take part in the session.
func (s *Session) Authorize(requester string) error {
	if !s.IsParticipant(requester) {
		return ErrForbidden
	}
	return nil
}

func (s *Session) slot(index int) (*QuestionSlot, error) {
	if index < 0 || index >= len(s.Questions) {
		return nil, ErrInvalidSlot
	}
	return &s.Questions[index], nil
}

func (s *Session) mutable(requester string) error {
	if err := s.Authorize(requester); err != nil {
		return err
	}
	if s.Status != StatusInProgress {
		return ErrSessionNotActive
	}
	return nil
}

// SubmitAnswer records requester's answer on the slot and re-evaluates the session.
// The session is left untouched when an error is returned.
func (s *Session) SubmitAnswer(requester string, index int, answer string, now time.Time) error {
	if err := s.mutable(requester); err != nil {
		return err
	}
	slot, err := s.slot(index)
	if err != nil {
		return err
	}

	switch {
	case slot.Correction != nil:
		c := slot.Correction
		switch requester {
		case c.Subject:
			if c.SubjectHasAnswered {
				return ErrAlreadyAnswered
			}
			text, err := normalizeAnswer(answer, "", "")
			if err != nil {
				return err
			}
			c.SubjectAnswer, c.SubjectHasAnswered = text, true
		case c.Guesser:
			if c.GuesserHasAnswered {
				return ErrAlreadyAnswered
			}
			text, err := normalizeAnswer(answer, "", "")
			if err != nil {
				return err
			}
			c.GuesserAnswer, c.GuesserHasAnswered = text, true
		default:
			return ErrForbidden
		}
	case slot.Simple != nil:
		sp := slot.Simple
		switch s.SeatOf(requester) {
		case SeatPlayer1:
			if sp.Player1HasAnswered {
				return ErrAlreadyAnswered
			}
			text, err := normalizeAnswer(answer, sp.OptionA, sp.OptionB)
			if err != nil {
				return err
			}
			sp.Player1Answer, sp.Player1HasAnswered = text, true
		case SeatPlayer2:
			if sp.Player2HasAnswered {
				return ErrAlreadyAnswered
			}
			text, err := normalizeAnswer(answer, sp.OptionA, sp.OptionB)
			if err != nil {
				return err
			}
			sp.Player2Answer, sp.Player2HasAnswered = text, true
		default:
			return ErrForbidden
		}
	default:
		return ErrInvalidSlot
	}

	*s = Evaluate(*s, now)
	return nil
}

// SubmitVerdict stores the subject's judgment of the guess on a correction slot and re-evaluates the session.
func (s *Session) SubmitVerdict(requester string, index int, correct bool, now time.Time) error {
	if err := s.mutable(requester); err != nil {
		return err
	}
	slot, err := s.slot(index)
	if err != nil {
		return err
	}
	c := slot.Correction
	if c == nil {
		return ErrInvalidSlot
	}
	if requester != c.Subject {
		return ErrNotSubject
	}
	if !c.bothAnswered() {
		return ErrAnswersIncomplete
	}
	if c.Verdict != nil {
		return ErrVerdictAlreadySet
	}

	v := VerdictIncorrect
	if correct {
		v = VerdictCorrect
	}
	at := now
	c.Verdict = &v
	c.VerdictBy = requester
	c.VerdictAt = &at

	*s = Evaluate(*s, now)
	return nil
}

// Abandon ends an in_progress session without scoring it.
func (s *Session) Abandon(requester string) error {
	if err := s.mutable(requester); err != nil {
		return err
	}
	s.Status = StatusAbandoned
	return nil
}

// PendingVerdictsFor lists the correction slots waiting for requester's judgment.
func (s *Session) PendingVerdictsFor(requester string) []int {
	pending := []int{}
	for i := range s.Questions {
		c := s.Questions[i].Correction
		if c == nil || c.Subject != requester {
			continue
		}
		if c.bothAnswered() && c.Verdict == nil {
			pending = append(pending, i)
		}
	}
	return pending
}

// Clone returns a deep copy that shares no pointers with s.
func (s Session) Clone() Session {
	out := s
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	if s.Questions != nil {
		out.Questions = make([]QuestionSlot, len(s.Questions))
		for i, q := range s.Questions {
			out.Questions[i] = q.clone()
		}
	}
	return out
}

func (q QuestionSlot) clone() QuestionSlot {
	out := q
	if q.Correction != nil {
		c := *q.Correction
		if c.Verdict != nil {
			v := *c.Verdict
			c.Verdict = &v
		}
		if c.VerdictAt != nil {
			t := *c.VerdictAt
			c.VerdictAt = &t
		}
		out.Correction = &c
	}
	if q.Simple != nil {
		sp := *q.Simple
		out.Simple = &sp
	}
	return out
}

func normalizeAnswer(raw, optionA, optionB string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" || utf8.RuneCountInString(text) > MaxAnswerRunes {
		return "", ErrInvalidAnswer
	}
	if optionA != "" && optionB != "" && text != optionA && text != optionB {
		return "", ErrInvalidAnswer
	}
	return text, nil
}

// SortNewestFirst orders sessions by StartedAt descending, breaking ties by id descending.
func SortNewestFirst(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].StartedAt.After(sessions[j].StartedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})
}
