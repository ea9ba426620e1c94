package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for the given id.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrForbidden is returned when the requester is not a participant of the session.
	ErrForbidden = errors.New("requester is not a participant of this session")
	// ErrSessionNotActive is returned when a mutating call targets a completed or abandoned session.
	ErrSessionNotActive = errors.New("game session is not in progress")
	// ErrInvalidSlot indicates an out-of-range slot index or a slot of the wrong variant.
	ErrInvalidSlot = errors.New("invalid question slot")
	// ErrAlreadyAnswered is returned when the requester's answer for the slot is already recorded.
	ErrAlreadyAnswered = errors.New("answer already submitted for this slot")
	// ErrNotSubject is returned when someone other than the slot's subject submits a verdict.
	ErrNotSubject = errors.New("only the subject of the question may judge the guess")
	// ErrVerdictAlreadySet is returned when the slot has already been judged.
	ErrVerdictAlreadySet = errors.New("verdict already set for this slot")
	// ErrAnswersIncomplete is returned when a verdict arrives before both answers are present.
	ErrAnswersIncomplete = errors.New("both answers are required before a verdict")
	// ErrDuplicateActiveSession is returned when the creator already has an in-progress session of the game type.
	ErrDuplicateActiveSession = errors.New("an in-progress session of this game type already exists")
	// ErrConflict reports a lost-update race in the store; the whole operation may be retried.
	ErrConflict = errors.New("concurrent modification of game session")

	// ErrUnknownGameType indicates a game type outside the supported set.
	ErrUnknownGameType = errors.New("unknown game type")
	// ErrInvalidAnswer indicates an empty, oversized or out-of-options answer.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrInvalidPlayers indicates a missing player id or a creator paired with themselves.
	ErrInvalidPlayers = errors.New("a session needs two distinct players")
	// ErrNoPartner is returned by the partner directory when the user is not paired.
	ErrNoPartner = errors.New("user has no partner")
	// ErrEmptyQuestionBank is returned when the catalog has no questions for a game type.
	ErrEmptyQuestionBank = errors.New("question bank has no questions for game type")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrSessionNotFound, "not_found"},
	{ErrForbidden, "forbidden"},
	{ErrSessionNotActive, "session_not_active"},
	{ErrInvalidSlot, "invalid_slot"},
	{ErrAlreadyAnswered, "already_answered"},
	{ErrNotSubject, "not_subject"},
	{ErrVerdictAlreadySet, "verdict_already_set"},
	{ErrAnswersIncomplete, "answers_incomplete"},
	{ErrDuplicateActiveSession, "duplicate_active_session"},
	{ErrConflict, "conflict"},
	{ErrUnknownGameType, "unknown_game_type"},
	{ErrInvalidAnswer, "invalid_answer"},
	{ErrInvalidPlayers, "invalid_players"},
	{ErrNoPartner, "no_partner"},
	{ErrEmptyQuestionBank, "empty_question_bank"},
}

// Code returns the stable machine-readable code for err, or "internal" for unexpected errors.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
