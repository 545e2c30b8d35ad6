package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/internal/repository/memory"
	"hmo-assistant-be/pkg/rag/message"
	"hmo-assistant-be/pkg/store"
)

type countingSessions struct {
	*memory.SessionRepository
	sweeps atomic.Int32
}

func (c *countingSessions) SweepExpired(ctx context.Context) (int, error) {
	c.sweeps.Add(1)
	return c.SessionRepository.SweepExpired(ctx)
}

func TestRunSweeper(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	var offset atomic.Int64
	clock := func() time.Time { return now.Add(time.Duration(offset.Load())) }

	repo := &countingSessions{SessionRepository: memory.NewSessionRepository(time.Minute, 0, memory.WithClock(clock))}
	svc := NewConversationService(repo, &phaseStepper{}, message.NewFactory(clock), &recordingPublisher{}, logger.NewNopLogger())

	require.NoError(t, repo.Create(context.Background(), store.NewSession("stale", now)))
	offset.Store(int64(2 * time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunSweeper(ctx, svc, 5*time.Millisecond, logger.NewNopLogger()) }()

	require.Eventually(t, func() bool {
		n, _ := repo.Count(context.Background())
		return n == 0 && repo.sweeps.Load() > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
