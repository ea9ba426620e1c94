package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"couplegame-service/internal/domain"
	"couplegame-service/internal/logging"
	"couplegame-service/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GameService contains the session use cases: lifecycle, answers and corrections.
type GameService struct {
	sessions SessionRepository
	bank     QuestionBank
	partners PartnerDirectory
	feed     Feed

	metrics *telemetry.Metrics
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() (string, error)
}

// ErrFeedUnavailable is returned by Subscribe when the service runs without a live feed.
var ErrFeedUnavailable = errors.New("live session feed not configured")

type Option func(*GameService)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *GameService) { s.logger = logger }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *GameService) { s.metrics = m }
}

func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *GameService) { s.newID = gen }
}

// NewGameService wires the service. partners and feed may be nil: creation then requires an explicit
// partner and updates are not broadcast.
func NewGameService(sessions SessionRepository, bank QuestionBank, partners PartnerDirectory, feed Feed, opts ...Option) *GameService {
	s := &GameService{
		sessions: sessions,
		bank:     bank,
		partners: partners,
		feed:     feed,
		logger:   zerolog.Nop(),
		now:      time.Now,
		newID:    newSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GameTypeInfo describes one playable game type.
type GameTypeInfo struct {
	GameType        domain.GameType `json:"gameType"`
	NeedsCorrection bool            `json:"needsCorrection"`
	QuestionCount   int             `json:"questionCount"`
}

// GameTypes lists every game type with the number of slots a new session of it would hold.
func (s *GameService) GameTypes(ctx context.Context) ([]GameTypeInfo, error) {
	out := make([]GameTypeInfo, 0, len(domain.GameTypes()))
	for _, gt := range domain.GameTypes() {
		questions, err := s.bank.Questions(ctx, gt)
		if err != nil && !errors.Is(err, domain.ErrEmptyQuestionBank) {
			return nil, err
		}
		count := len(questions)
		if gt.NeedsCorrection() {
			count *= 2
		}
		out = append(out, GameTypeInfo{GameType: gt, NeedsCorrection: gt.NeedsCorrection(), QuestionCount: count})
	}
	return out, nil
}

// CreateSession starts a session of gameType for creatorID. An empty partnerID is resolved through the
// partner directory; only trusted in-process callers pass one explicitly.
func (s *GameService) CreateSession(ctx context.Context, gameType, creatorID, partnerID string) (domain.Session, error) {
	gt, err := domain.ParseGameType(gameType)
	if err != nil {
		return domain.Session{}, s.reject(ctx, "create", err)
	}
	if creatorID == "" {
		return domain.Session{}, s.reject(ctx, "create", domain.ErrInvalidPlayers)
	}
	if partnerID == "" {
		if s.partners == nil {
			return domain.Session{}, s.reject(ctx, "create", domain.ErrNoPartner)
		}
		partnerID, err = s.partners.PartnerOf(ctx, creatorID)
		if err != nil {
			return domain.Session{}, s.reject(ctx, "create", err)
		}
	}

	questions, err := s.bank.Questions(ctx, gt)
	if err != nil {
		return domain.Session{}, s.reject(ctx, "create", err)
	}
	id, err := s.newID()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate session id: %w", err)
	}
	session, err := domain.NewSession(id, gt, creatorID, partnerID, questions, s.now())
	if err != nil {
		return domain.Session{}, s.reject(ctx, "create", err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, s.reject(ctx, "create", err)
	}
	stored, err := s.sessions.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}

	s.metrics.SessionCreated(string(gt))
	s.log(ctx).Info().
		Str("session_id", id).
		Str("game_type", string(gt)).
		Str("partner_id", partnerID).
		Int("slots", len(stored.Questions)).
		Msg("game session created")
	s.publish(ctx, stored)
	return stored, nil
}

// GetSession returns the session if requesterID takes part in it.
func (s *GameService) GetSession(ctx context.Context, sessionID, requesterID string) (domain.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, s.reject(ctx, "get", err)
	}
	if err := session.Authorize(requesterID); err != nil {
		return domain.Session{}, s.reject(ctx, "get", err)
	}
	return session, nil
}

// SubmitAnswer records requesterID's answer for one slot.
func (s *GameService) SubmitAnswer(ctx context.Context, sessionID, requesterID string, slot int, answer string) (domain.Session, error) {
	session, finished, err := s.mutate(ctx, "answer", sessionID, func(ss *domain.Session) error {
		return ss.SubmitAnswer(requesterID, slot, answer, s.now())
	})
	if err != nil {
		return domain.Session{}, err
	}

	s.metrics.Answer(string(session.Variant()))
	s.log(ctx).Debug().Str("session_id", sessionID).Int("slot", slot).Msg("answer recorded")
	s.afterWrite(ctx, session, finished)
	return session, nil
}

// SubmitVerdict records the subject's judgment of the guess on a correction slot.
func (s *GameService) SubmitVerdict(ctx context.Context, sessionID, requesterID string, slot int, correct bool) (domain.Session, error) {
	session, finished, err := s.mutate(ctx, "verdict", sessionID, func(ss *domain.Session) error {
		return ss.SubmitVerdict(requesterID, slot, correct, s.now())
	})
	if err != nil {
		return domain.Session{}, err
	}

	verdict := domain.VerdictIncorrect
	if correct {
		verdict = domain.VerdictCorrect
	}
	s.metrics.Verdict(string(verdict))
	s.log(ctx).Debug().Str("session_id", sessionID).Int("slot", slot).Bool("correct", correct).Msg("verdict recorded")
	s.afterWrite(ctx, session, finished)
	return session, nil
}

// Abandon terminates an in_progress session on behalf of either participant.
func (s *GameService) Abandon(ctx context.Context, sessionID, requesterID string) (domain.Session, error) {
	session, finished, err := s.mutate(ctx, "abandon", sessionID, func(ss *domain.Session) error {
		return ss.Abandon(requesterID)
	})
	if err != nil {
		return domain.Session{}, err
	}
	s.afterWrite(ctx, session, finished)
	return session, nil
}

// ListHistory returns the requester's terminal sessions, newest first.
func (s *GameService) ListHistory(ctx context.Context, requesterID string) ([]domain.Session, error) {
	return s.sessions.ListHistory(ctx, requesterID)
}

// ListActive returns the requester's in_progress sessions, newest first.
func (s *GameService) ListActive(ctx context.Context, requesterID string) ([]domain.Session, error) {
	return s.sessions.ListActive(ctx, requesterID)
}

// PendingVerdicts lists the slots where requesterID still owes a verdict.
func (s *GameService) PendingVerdicts(ctx context.Context, sessionID, requesterID string) ([]int, error) {
	session, err := s.GetSession(ctx, sessionID, requesterID)
	if err != nil {
		return nil, err
	}
	return session.PendingVerdictsFor(requesterID), nil
}

// Subscribe authorizes requesterID and returns the current snapshot plus a channel of later snapshots.
// Updates may overlap the snapshot; consumers should drop versions they have already seen.
func (s *GameService) Subscribe(ctx context.Context, sessionID, requesterID string) (domain.Session, <-chan domain.Session, func(), error) {
	if s.feed == nil {
		return domain.Session{}, nil, nil, ErrFeedUnavailable
	}
	if _, err := s.GetSession(ctx, sessionID, requesterID); err != nil {
		return domain.Session{}, nil, nil, err
	}
	ch, cancel, err := s.feed.Subscribe(ctx, sessionID)
	if err != nil {
		return domain.Session{}, nil, nil, err
	}
	// Read after subscribing so no write between the two is missed.
	snapshot, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		cancel()
		return domain.Session{}, nil, nil, err
	}
	return snapshot, ch, cancel, nil
}

func (s *GameService) mutate(ctx context.Context, op, sessionID string, fn func(*domain.Session) error) (domain.Session, bool, error) {
	var wasActive bool
	session, err := s.sessions.Update(ctx, sessionID, func(ss *domain.Session) error {
		wasActive = ss.Status == domain.StatusInProgress
		return fn(ss)
	})
	if err != nil {
		return domain.Session{}, false, s.reject(ctx, op, err)
	}
	return session, wasActive && session.Status.Terminal(), nil
}

func (s *GameService) afterWrite(ctx context.Context, session domain.Session, finished bool) {
	if finished {
		s.metrics.SessionFinished(string(session.GameType), string(session.Status))
		s.log(ctx).Info().
			Str("session_id", session.ID).
			Str("status", string(session.Status)).
			Int("player1_score", session.Scores.Player1.Score).
			Int("player2_score", session.Scores.Player2.Score).
			Msg("game session finished")
	}
	s.publish(ctx, session)
}

func (s *GameService) publish(ctx context.Context, session domain.Session) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, session); err != nil {
		s.log(ctx).Warn().Err(err).Str("session_id", session.ID).Msg("publish session update")
	}
}

// reject counts expected domain failures and passes err through unchanged.
func (s *GameService) reject(ctx context.Context, op string, err error) error {
	code := domain.Code(err)
	if code == "internal" {
		return err
	}
	s.metrics.Rejected(code)
	if errors.Is(err, domain.ErrConflict) {
		s.metrics.Conflict()
		s.log(ctx).Warn().Str("op", op).Msg("concurrent session write lost")
	}
	return err
}

func (s *GameService) log(ctx context.Context) *zerolog.Logger {
	l := logging.FromContext(ctx, s.logger)
	return &l
}
