package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"couplegame-service/internal/app"
	"couplegame-service/internal/domain"
	"couplegame-service/internal/infra/memory"
	"couplegame-service/internal/infra/postgres"
	pgmigrations "couplegame-service/internal/infra/postgres/migrations"
	infraredis "couplegame-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"
)

func TestCorrectionSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	require.NoError(t, err)
	defer pool.Close()

	loader := postgres.NewQuestionBankLoader(pool)
	require.NoError(t, loader.Seed(ctx, map[domain.GameType][]domain.BankQuestion{
		domain.GameKnowMe: {{Prompt: "Favourite food?", Points: 2}, {Prompt: "Dream city?", Points: 1}},
	}))
	partners := postgres.NewPartnerDirectory(pool)
	require.NoError(t, partners.Pair(ctx, "alice", "bob"))

	redisClient, err := redisClientFromURL(redisURL)
	require.NoError(t, err)
	defer redisClient.Close()

	service := app.NewGameService(
		postgres.NewSessionStore(pool),
		infraredis.NewQuestionBank(redisClient, loader, 5*time.Minute),
		partners,
		infraredis.NewFeed(redisClient),
	)

	session, err := service.CreateSession(ctx, "know_me", "alice", "")
	require.NoError(t, err)
	assert.Len(t, session.Questions, 4)
	assert.Equal(t, "bob", session.Player2)

	_, err = service.CreateSession(ctx, "know_me", "alice", "")
	require.ErrorIs(t, err, domain.ErrDuplicateActiveSession)

	_, updates, cancel, err := service.Subscribe(ctx, session.ID, "bob")
	require.NoError(t, err)
	defer cancel()

	for slot := range session.Questions {
		for _, player := range []string{"alice", "bob"} {
			_, err := service.SubmitAnswer(ctx, session.ID, player, slot, "answer")
			require.NoError(t, err, "answer %s/%d", player, slot)
		}
	}
	for _, v := range []struct {
		by      string
		slot    int
		correct bool
	}{{"alice", 0, true}, {"bob", 1, true}, {"alice", 2, false}, {"bob", 3, true}} {
		_, err := service.SubmitVerdict(ctx, session.ID, v.by, v.slot, v.correct)
		require.NoError(t, err, "verdict %d", v.slot)
	}

	final, err := service.GetSession(ctx, session.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.NotNil(t, final.EndedAt)
	// alice guessed slots 1 (2pts) and 3 (1pt); bob guessed slot 0 (2pts)
	assert.Equal(t, 3, final.Scores.Player1.Score)
	assert.Equal(t, 2, final.Scores.Player2.Score)

	deadline := time.After(5 * time.Second)
	for completed := false; !completed; {
		select {
		case update := <-updates:
			completed = update.Status == domain.StatusCompleted
		case <-deadline:
			t.Fatal("feed never delivered the completed snapshot")
		}
	}

	history, err := service.ListHistory(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = service.CreateSession(ctx, "know_me", "alice", "")
	assert.NoError(t, err, "new session after completion")
}

func TestPostgresSingleWriterPerSession(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	require.NoError(t, err)
	defer pool.Close()

	store := postgres.NewSessionStore(pool)
	session, err := domain.NewSession("s1", domain.GameDeepTalk, "alice", "bob", memory.DefaultCatalog()[domain.GameDeepTalk], time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, session))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "s1", func(s *domain.Session) error {
				return s.SubmitAnswer("alice", 0, "same", time.Now())
			})
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyAnswered):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted, "exactly one accepted write")
	stored, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, "same", stored.Questions[0].Simple.Player1Answer)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "game", "POSTGRES_PASSWORD": "gamepass", "POSTGRES_DB": "gamedb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		require.NoError(t, err, "start postgres")
	}
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://game:gamepass@%s:%s/gamedb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		require.NoError(t, err, "start redis")
	}
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err := migrator.Migrate(ctx)
	require.NoError(t, err)
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
