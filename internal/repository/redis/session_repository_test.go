package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmo-assistant-be/pkg/store"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "hmo:session:abc", sessionKey("abc"))
	assert.Equal(t, "hmo:session:abc:lock", lockKey("abc"))
}

func newIntegrationRepo(t *testing.T, timeout time.Duration) *SessionRepository {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := goredis.ParseURL(url)
	require.NoError(t, err)
	rdb := goredis.NewClient(opt)
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return NewSessionRepository(rdb, timeout, time.Second)
}

func TestRedisSessionLifecycle(t *testing.T) {
	repo := newIntegrationRepo(t, time.Minute)
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, repo.Create(ctx, store.NewSession(id, time.Now())))
	t.Cleanup(func() { repo.Delete(context.Background(), id) })

	err := repo.WithSession(ctx, id, func(s *store.Session) error {
		s.Phase = store.PhaseConfirming
		s.Append(store.ConversationTurn{Role: store.RoleUser, Text: "שלום", Language: store.LanguageHebrew, Timestamp: time.Now()})
		return nil
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.PhaseConfirming, got.Phase)
	require.Len(t, got.History, 1)
	assert.Equal(t, "שלום", got.History[0].Text)

	ttl, err := repo.rdb.TTL(ctx, sessionKey(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisSessionExpires(t *testing.T) {
	repo := newIntegrationRepo(t, 200*time.Millisecond)
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, repo.Create(ctx, store.NewSession(id, time.Now())))

	time.Sleep(400 * time.Millisecond)
	_, err := repo.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	assert.ErrorIs(t, repo.WithSession(ctx, id, func(*store.Session) error { return nil }), store.ErrSessionNotFound)
}

func TestRedisDeleteDuringTurn(t *testing.T) {
	repo := newIntegrationRepo(t, time.Minute)
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, repo.Create(ctx, store.NewSession(id, time.Now())))

	err := repo.WithSession(ctx, id, func(s *store.Session) error {
		s.Phase = store.PhaseQA
		return repo.Delete(ctx, id)
	})
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestRedisSessionBusy(t *testing.T) {
	repo := newIntegrationRepo(t, time.Minute)
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, repo.Create(ctx, store.NewSession(id, time.Now())))
	t.Cleanup(func() { repo.Delete(context.Background(), id) })

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- repo.WithSession(ctx, id, func(*store.Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	// pinned while in use
	ttl, err := repo.rdb.TTL(ctx, sessionKey(id)).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	err = repo.WithSession(waitCtx, id, func(*store.Session) error { return nil })
	assert.ErrorIs(t, err, store.ErrSessionBusy)

	close(release)
	assert.NoError(t, <-done)
}
