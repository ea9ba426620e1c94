package domain

import "time"

// Evaluate recomputes the derived counters of s from its questions and promotes it to completed once every
// slot is resolved. It never mutates its argument, and a second call without intervening writes is a no-op.
func Evaluate(s Session, now time.Time) Session {
	out := s.Clone()

	pending, completed := 0, 0
	for i := range out.Questions {
		q := &out.Questions[i]
		switch {
		case q.Correction != nil:
			if !q.Correction.bothAnswered() {
				continue
			}
			if q.Correction.Verdict == nil {
				pending++
			} else {
				completed++
			}
		case q.Simple != nil:
			if q.Simple.bothAnswered() {
				completed++
			}
		}
	}

	total := len(out.Questions)
	out.PendingCorrectionCount = pending
	out.CompletedQuestionCount = completed
	out.CompletionPercent = 0
	if total > 0 {
		out.CompletionPercent = completed * 100 / total
	}

	if out.Status != StatusInProgress || total == 0 || completed != total {
		return out
	}
	if out.Variant() == VariantCorrection && pending != 0 {
		return out
	}

	ended := now
	out.Status = StatusCompleted
	out.EndedAt = &ended
	out.Scores = score(out)
	return out
}

// score sums points per player: simple slots credit both players, correct verdicts credit the guesser.
func score(s Session) Scores {
	scores := Scores{
		Player1: PlayerScore{ID: s.Player1},
		Player2: PlayerScore{ID: s.Player2},
	}
	credit := func(player string, pts int) {
		switch player {
		case s.Player1:
			scores.Player1.Score += pts
		case s.Player2:
			scores.Player2.Score += pts
		}
	}

	for _, q := range s.Questions {
		switch {
		case q.Correction != nil:
			if q.Correction.Verdict != nil && *q.Correction.Verdict == VerdictCorrect {
				credit(q.Correction.Guesser, q.Points)
			}
		case q.Simple != nil:
			if q.Simple.bothAnswered() {
				scores.Player1.Score += q.Points
				scores.Player2.Score += q.Points
			}
		}
	}
	return scores
}
