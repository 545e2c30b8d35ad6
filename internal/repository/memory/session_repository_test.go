package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hmo-assistant-be/pkg/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newRepo(t *testing.T, opts ...Option) (*SessionRepository, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewSessionRepository(time.Hour, 0, opts...), clock
}

func TestCreateGetDelete(t *testing.T) {
	repo, clock := newRepo(t)
	ctx := context.Background()

	s := store.NewSession("abc", clock.Now())
	require.NoError(t, repo.Create(ctx, s))
	assert.Error(t, repo.Create(ctx, s), "duplicate id")

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, store.PhaseCollecting, got.Phase)

	// callers get copies
	got.Append(store.ConversationTurn{Role: store.RoleUser, Text: "hi", Timestamp: clock.Now()})
	again, _ := repo.Get(ctx, "abc")
	assert.Empty(t, again.History)

	require.NoError(t, repo.Delete(ctx, "abc"))
	_, err = repo.Get(ctx, "abc")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "abc"), store.ErrSessionNotFound)
}

func TestWithSessionPersistsOnSuccessOnly(t *testing.T) {
	repo, clock := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, store.NewSession("abc", clock.Now())))

	err := repo.WithSession(ctx, "abc", func(s *store.Session) error {
		s.Phase = store.PhaseConfirming
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.WithSession(ctx, "abc", func(s *store.Session) error {
		s.Phase = store.PhaseQA
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := repo.Get(ctx, "abc")
	assert.Equal(t, store.PhaseConfirming, got.Phase)
}

func TestExpiredSessionIsNotFound(t *testing.T) {
	var mu sync.Mutex
	var expired []string
	repo, clock := newRepo(t, WithExpiryHook(func(id string) {
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, id)
	}))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, store.NewSession("old", clock.Now())))

	clock.Advance(59 * time.Minute)
	_, err := repo.Get(ctx, "old")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = repo.Get(ctx, "old")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	err = repo.WithSession(ctx, "old", func(*store.Session) error { return nil })
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	mu.Lock()
	assert.Equal(t, []string{"old"}, expired)
	mu.Unlock()
}

func TestActivityExtendsLifetime(t *testing.T) {
	repo, clock := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, store.NewSession("abc", clock.Now())))

	clock.Advance(50 * time.Minute)
	require.NoError(t, repo.WithSession(ctx, "abc", func(s *store.Session) error {
		s.Append(store.ConversationTurn{Role: store.RoleUser, Text: "hello", Timestamp: clock.Now()})
		return nil
	}))

	clock.Advance(50 * time.Minute)
	_, err := repo.Get(ctx, "abc")
	assert.NoError(t, err)
}

func TestSweepExpired(t *testing.T) {
	repo, clock := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, store.NewSession("a", clock.Now())))
	require.NoError(t, repo.Create(ctx, store.NewSession("b", clock.Now())))
	clock.Advance(30 * time.Minute)
	require.NoError(t, repo.Create(ctx, store.NewSession("c", clock.Now())))

	clock.Advance(40 * time.Minute)
	n, err := repo.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, _ := repo.Count(ctx)
	assert.Equal(t, 1, count)
}

func TestSweepDefersSessionInUse(t *testing.T) {
	repo, clock := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, store.NewSession("busy", clock.Now())))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- repo.WithSession(ctx, "busy", func(s *store.Session) error {
			close(entered)
			<-release
			s.Append(store.ConversationTurn{Role: store.RoleUser, Text: "still here", Timestamp: clock.Now()})
			return nil
		})
	}()
	<-entered

	clock.Advance(2 * time.Hour)
	n, err := repo.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "session in use is never evicted")

	close(release)
	require.NoError(t, <-done)

	got, err := repo.Get(ctx, "busy")
	require.NoError(t, err)
	assert.Len(t, got.History, 1)
}

func TestWithSessionIsExclusive(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo, clock := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, store.NewSession("abc", clock.Now())))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		overlap bool
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.WithSession(ctx, "abc", func(s *store.Session) error {
				mu.Lock()
				active++
				if active > 1 {
					overlap = true
				}
				mu.Unlock()

				s.ConfirmAttempts++
				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, overlap)
	got, _ := repo.Get(ctx, "abc")
	assert.Equal(t, 20, got.ConfirmAttempts, "no update is lost")
}

func TestWithSessionBusy(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo, clock := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, store.NewSession("abc", clock.Now())))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- repo.WithSession(ctx, "abc", func(*store.Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := repo.WithSession(waitCtx, "abc", func(*store.Session) error { return nil })
	assert.ErrorIs(t, err, store.ErrSessionBusy)

	close(release)
	assert.NoError(t, <-done)
}

func TestDeleteDuringTurn(t *testing.T) {
	repo, clock := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, store.NewSession("abc", clock.Now())))

	err := repo.WithSession(ctx, "abc", func(s *store.Session) error {
		s.Phase = store.PhaseQA
		return repo.Delete(ctx, "abc")
	})
	assert.ErrorIs(t, err, store.ErrSessionNotFound, "the save was dropped")

	_, err = repo.Get(ctx, "abc")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}
