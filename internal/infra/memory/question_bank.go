package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"couplegame-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches catalog records from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, gameType domain.GameType) ([]domain.BankQuestion, error)
}

// QuestionBank caches catalog records per game type with TTL to avoid repeated loader hits.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[domain.GameType]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.BankQuestion
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.GameType]cachedQuestions),
	}
}

func (b *QuestionBank) Questions(ctx context.Context, gameType domain.GameType) ([]domain.BankQuestion, error) {
	if !gameType.Valid() {
		return nil, domain.ErrUnknownGameType
	}
	if questions, ok := b.cached(gameType); ok {
		return questions, nil
	}

	result, err, _ := b.sf.Do(string(gameType), func() (interface{}, error) {
		if questions, ok := b.cached(gameType); ok {
			return questions, nil
		}
		questions, err := b.loader.LoadQuestions(ctx, gameType)
		if err != nil {
			return nil, err
		}
		questions = NormalizeQuestions(questions)
		if len(questions) == 0 {
			return nil, domain.ErrEmptyQuestionBank
		}

		b.mu.Lock()
		b.cache[gameType] = cachedQuestions{
			questions: questions,
			expiresAt: b.clock().Add(b.ttlWithJitterLocked()),
		}
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return copyQuestions(result.([]domain.BankQuestion)), nil
}

func (b *QuestionBank) cached(gameType domain.GameType) ([]domain.BankQuestion, bool) {
	now := b.clock()
	b.mu.RLock()
	defer b.mu.RUnlock()
	if entry, ok := b.cache[gameType]; ok && entry.expiresAt.After(now) {
		return copyQuestions(entry.questions), true
	}
	return nil, false
}

func (b *QuestionBank) ttlWithJitterLocked() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// NormalizeQuestions drops records without a prompt and defaults missing points to 1.
func NormalizeQuestions(in []domain.BankQuestion) []domain.BankQuestion {
	out := make([]domain.BankQuestion, 0, len(in))
	for _, q := range in {
		if q.Prompt == "" {
			continue
		}
		if q.Points <= 0 {
			q.Points = 1
		}
		out = append(out, q)
	}
	return out
}

func copyQuestions(in []domain.BankQuestion) []domain.BankQuestion {
	return append([]domain.BankQuestion(nil), in...)
}
