package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"couplegame-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newSession(t *testing.T, id string, gt domain.GameType, startedAt time.Time) domain.Session {
	t.Helper()
	s, err := domain.NewSession(id, gt, "alice", "bob", DefaultCatalog()[gt], startedAt)
	require.NoError(t, err)
	return s
}

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	require.NoError(t, store.Create(ctx, newSession(t, "s1", domain.GameKnowMe, start)))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	updated, err := store.Update(ctx, "s1", func(s *domain.Session) error {
		return s.SubmitAnswer("alice", 0, "pizza", start)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.True(t, updated.Questions[0].Correction.SubjectHasAnswered)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = store.Update(ctx, "missing", func(*domain.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionStoreFailedMutationPersistsNothing(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	require.NoError(t, store.Create(ctx, newSession(t, "s1", domain.GameKnowMe, start)))

	_, err := store.Update(ctx, "s1", func(s *domain.Session) error {
		s.Questions[0].Correction.SubjectAnswer = "leaked"
		return domain.ErrAlreadyAnswered
	})
	require.ErrorIs(t, err, domain.ErrAlreadyAnswered)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.Questions[0].Correction.SubjectAnswer)
	assert.Equal(t, int64(1), got.Version)
}

func TestSessionStoreDuplicateActive(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	require.NoError(t, store.Create(ctx, newSession(t, "s1", domain.GameKnowMe, start)))
	assert.ErrorIs(t, store.Create(ctx, newSession(t, "s2", domain.GameKnowMe, start)), domain.ErrDuplicateActiveSession)
	require.NoError(t, store.Create(ctx, newSession(t, "s3", domain.GameDeepTalk, start)), "other game type should be allowed")

	_, err := store.Update(ctx, "s1", func(s *domain.Session) error { return s.Abandon("bob") })
	require.NoError(t, err)
	assert.NoError(t, store.Create(ctx, newSession(t, "s4", domain.GameKnowMe, start)), "create after abandon")
}

func TestSessionStoreListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	for i, gt := range []domain.GameType{domain.GameKnowMe, domain.GameDeepTalk, domain.GameThisOrThat} {
		id := []string{"s1", "s2", "s3"}[i]
		require.NoError(t, store.Create(ctx, newSession(t, id, gt, start.Add(time.Duration(i)*time.Minute))))
	}
	for _, id := range []string{"s1", "s3"} {
		_, err := store.Update(ctx, id, func(s *domain.Session) error { return s.Abandon("alice") })
		require.NoError(t, err)
	}

	history, err := store.ListHistory(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s1"}, ids(history))

	active, err := store.ListActive(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, ids(active))

	other, err := store.ListHistory(ctx, "mallory")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSessionStoreConcurrentSameSlot(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	require.NoError(t, store.Create(ctx, newSession(t, "s1", domain.GameDeepTalk, start)))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "s1", func(s *domain.Session) error {
				return s.SubmitAnswer("alice", 0, "same", start)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrAlreadyAnswered):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one answer accepted")
	assert.Equal(t, 19, rejected)
}

func ids(sessions []domain.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}
