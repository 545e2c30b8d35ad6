// Package redis keeps sessions in Redis so several API instances can share them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"hmo-assistant-be/internal/repository/contract"
	"hmo-assistant-be/pkg/store"
)

const (
	keyPrefix  = "hmo:session:"
	lockSuffix = ":lock"

	defaultLockTTL   = 2 * time.Minute
	defaultLockRetry = 25 * time.Millisecond
)

// releaseLock deletes the lock only if it still holds our token.
var releaseLock = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type SessionRepository struct {
	rdb        goredis.UniversalClient
	timeout    time.Duration
	lockTTL    time.Duration
	retryEvery time.Duration
}

var _ contract.SessionRepository = &SessionRepository{}

// NewSessionRepository stores each session as JSON with timeout as its TTL.
// lockTTL bounds how long a crashed turn can hold a session; zero means two minutes.
func NewSessionRepository(rdb goredis.UniversalClient, timeout, lockTTL time.Duration) *SessionRepository {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &SessionRepository{
		rdb:        rdb,
		timeout:    timeout,
		lockTTL:    lockTTL,
		retryEvery: defaultLockRetry,
	}
}

func sessionKey(id string) string { return keyPrefix + id }
func lockKey(id string) string    { return keyPrefix + id + lockSuffix }

func (r *SessionRepository) Create(ctx context.Context, session *store.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, sessionKey(session.ID), data, r.timeout).Result()
	if err != nil {
		return fmt.Errorf("create session %s: %w", session.ID, err)
	}
	if !ok {
		return fmt.Errorf("create session %s: already exists", session.ID)
	}
	return nil
}

func (r *SessionRepository) load(ctx context.Context, id string) (*store.Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var s store.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*store.Session, error) {
	return r.load(ctx, id)
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) acquire(ctx context.Context, id, token string) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", store.ErrSessionBusy, ctx.Err())
		case <-timer.C:
		}
		ok, err := r.rdb.SetNX(ctx, lockKey(id), token, r.lockTTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", store.ErrSessionBusy, ctx.Err())
			}
			return fmt.Errorf("lock session %s: %w", id, err)
		}
		if ok {
			return nil
		}
		timer.Reset(r.retryEvery)
	}
}

func (r *SessionRepository) WithSession(ctx context.Context, id string, fn func(*store.Session) error) error {
	// fail fast on unknown ids instead of waiting for a lock nobody holds
	if n, err := r.rdb.Exists(ctx, sessionKey(id)).Result(); err != nil {
		return fmt.Errorf("lookup session %s: %w", id, err)
	} else if n == 0 {
		return store.ErrSessionNotFound
	}

	token := uuid.NewString()
	if err := r.acquire(ctx, id, token); err != nil {
		return err
	}
	defer releaseLock.Run(context.WithoutCancel(ctx), r.rdb, []string{lockKey(id)}, token)

	s, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	// no TTL while the turn runs
	if err := r.rdb.Persist(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("pin session %s: %w", id, err)
	}

	if err := fn(s); err != nil {
		r.rdb.Expire(context.WithoutCancel(ctx), sessionKey(id), r.timeout)
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		r.rdb.Expire(context.WithoutCancel(ctx), sessionKey(id), r.timeout)
		return fmt.Errorf("marshal session: %w", err)
	}
	// XX: a session deleted during the turn stays deleted
	err = r.rdb.SetArgs(context.WithoutCancel(ctx), sessionKey(id), data, goredis.SetArgs{Mode: "XX", TTL: r.timeout}).Err()
	if errors.Is(err, goredis.Nil) {
		return store.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// SweepExpired is a no-op: Redis expires idle sessions through their TTL.
func (r *SessionRepository) SweepExpired(ctx context.Context) (int, error) {
	return 0, nil
}

func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	n := 0
	iter := r.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if !strings.HasSuffix(iter.Val(), lockSuffix) {
			n++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
