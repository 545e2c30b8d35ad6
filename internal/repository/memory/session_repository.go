package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"hmo-assistant-be/internal/repository/contract"
	"hmo-assistant-be/pkg/store"
)

// entry is what the cache holds for one session. lock is a one-slot channel
// so that waiting for it can be abandoned when the caller's ctx ends.
type entry struct {
	lock    chan struct{}
	mu      sync.RWMutex
	session *store.Session
	removed atomic.Bool
}

func newEntry(s *store.Session) *entry {
	return &entry{lock: make(chan struct{}, 1), session: s}
}

func (e *entry) snapshot() *store.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.Clone()
}

func (e *entry) tryLock() bool {
	select {
	case e.lock <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *entry) unlock() { <-e.lock }

type Option func(*SessionRepository)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(r *SessionRepository) { r.now = now }
}

// WithExpiryHook is called with the id of every session removed for being
// idle, whether by the janitor, a sweep or a lazy check on access.
func WithExpiryHook(hook func(id string)) Option {
	return func(r *SessionRepository) { r.onExpired = hook }
}

type SessionRepository struct {
	cache     *cache.Cache
	timeout   time.Duration
	now       func() time.Time
	onExpired func(id string)
}

var _ contract.SessionRepository = &SessionRepository{}

// NewSessionRepository stores sessions in go-cache with timeout as the
// default expiration. The cache janitor runs every sweepInterval.
func NewSessionRepository(timeout, sweepInterval time.Duration, opts ...Option) *SessionRepository {
	r := &SessionRepository{
		cache:   cache.New(timeout, sweepInterval),
		timeout: timeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache.OnEvicted(func(id string, v interface{}) {
		e, ok := v.(*entry)
		if !ok || e.removed.Load() || r.onExpired == nil {
			return
		}
		r.onExpired(id)
	})
	return r
}

func (r *SessionRepository) expired(s *store.Session) bool {
	return !s.LastActiveAt.Add(r.timeout).After(r.now())
}

func (r *SessionRepository) lookup(id string) (*entry, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	e, ok := x.(*entry)
	return e, ok
}

// live returns the entry unless it is expired; an expired entry that is not
// in use is evicted on the spot.
func (r *SessionRepository) live(id string) (*entry, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	if !r.expired(e.snapshot()) {
		return e, nil
	}
	if e.tryLock() {
		r.cache.Delete(id)
		e.unlock()
		return nil, store.ErrSessionNotFound
	}
	// a turn is in flight; it will refresh the session when it finishes
	return e, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *store.Session) error {
	if err := r.cache.Add(session.ID, newEntry(session.Clone()), cache.DefaultExpiration); err != nil {
		return fmt.Errorf("create session %s: %w", session.ID, err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*store.Session, error) {
	e, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	e, ok := r.lookup(id)
	if !ok {
		return store.ErrSessionNotFound
	}
	e.removed.Store(true)
	r.cache.Delete(id)
	return nil
}

func (r *SessionRepository) WithSession(ctx context.Context, id string, fn func(*store.Session) error) error {
	e, err := r.live(id)
	if err != nil {
		return err
	}

	select {
	case e.lock <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", store.ErrSessionBusy, ctx.Err())
	}
	defer e.unlock()

	// the session may have been deleted or have expired while we waited
	if cur, ok := r.lookup(id); !ok || cur != e {
		return store.ErrSessionNotFound
	}
	work := e.snapshot()
	if r.expired(work) {
		r.cache.Delete(id)
		return store.ErrSessionNotFound
	}

	// pinned while the turn runs so the janitor cannot evict it; Replace
	// fails if a Delete got in since the lookup
	if err := r.cache.Replace(id, e, cache.NoExpiration); err != nil {
		return store.ErrSessionNotFound
	}
	defer func() {
		if e.removed.Load() {
			return
		}
		_ = r.cache.Replace(id, e, cache.DefaultExpiration)
	}()

	if err := fn(work); err != nil {
		return err
	}
	e.mu.Lock()
	e.session = work
	e.mu.Unlock()
	if e.removed.Load() {
		return store.ErrSessionNotFound
	}
	return nil
}

// SweepExpired evicts idle sessions that are not in use and returns how many
// were removed.
func (r *SessionRepository) SweepExpired(ctx context.Context) (int, error) {
	removed := 0
	for id, item := range r.cache.Items() {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		e, ok := item.Object.(*entry)
		if !ok || !r.expired(e.snapshot()) || !e.tryLock() {
			continue
		}
		r.cache.Delete(id)
		e.unlock()
		removed++
	}
	r.cache.DeleteExpired()
	return removed, nil
}

// Count returns the number of sessions that have not expired.
func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	n := 0
	for _, item := range r.cache.Items() {
		if e, ok := item.Object.(*entry); ok && !r.expired(e.snapshot()) {
			n++
		}
	}
	return n, nil
}
