package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"couplegame-service/internal/domain"
	"couplegame-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionBank caches catalog records in Redis (JSON list per game type) and falls back to a loader on
// cache miss:
//
//	SET game:bank:{gameType} [{prompt, points, optionA, optionB}, ...] EX ttl
type QuestionBank struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) Questions(ctx context.Context, gameType domain.GameType) ([]domain.BankQuestion, error) {
	if !gameType.Valid() {
		return nil, domain.ErrUnknownGameType
	}
	if questions, ok := b.cached(ctx, gameType); ok {
		return questions, nil
	}

	result, err, _ := b.sf.Do(string(gameType), func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if questions, ok := b.cached(ctx, gameType); ok {
			return questions, nil
		}

		questions, err := b.loader.LoadQuestions(ctx, gameType)
		if err != nil {
			return nil, err
		}
		questions = memory.NormalizeQuestions(questions)
		if len(questions) == 0 {
			return nil, domain.ErrEmptyQuestionBank
		}

		if payload, err := json.Marshal(questions); err == nil {
			// best-effort; a failed write only costs another load
			_ = b.client.Set(ctx, bankKey(gameType), payload, b.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.BankQuestion(nil), result.([]domain.BankQuestion)...), nil
}

func (b *QuestionBank) cached(ctx context.Context, gameType domain.GameType) ([]domain.BankQuestion, bool) {
	raw, err := b.client.Get(ctx, bankKey(gameType)).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.BankQuestion
	if err := json.Unmarshal(raw, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
