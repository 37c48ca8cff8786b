package tex2typst

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Registry hands out Sessions so that no two goroutines share one. Sessions
// are created lazily on first demand and recycled through a free list; a
// Session is only retained after it was created successfully.
type Registry struct {
	bundle  Bundle
	logger  zerolog.Logger
	maxIdle int

	m       sync.Mutex
	saved   []*Session
	created atomic.Int64
}

// RegistryStats is a snapshot of a Registry.
type RegistryStats struct {
	Created int64 `json:"created"`
	Idle    int   `json:"idle"`
}

// NewRegistry returns an empty registry for bundle. maxIdle bounds the number
// of idle sessions kept for reuse; zero keeps all of them.
func NewRegistry(bundle Bundle, logger zerolog.Logger, maxIdle int) *Registry {
	return &Registry{
		bundle:  bundle,
		logger:  logger,
		maxIdle: maxIdle,
		saved:   make([]*Session, 0, 4),
	}
}

// Get returns an idle Session, creating one when none is available. The
// caller owns the Session until it hands it back with Put.
func (r *Registry) Get() (*Session, error) {
	r.m.Lock()
	n := len(r.saved)
	if n > 0 {
		s := r.saved[n-1]
		r.saved = r.saved[0 : n-1]
		r.m.Unlock()
		return s, nil
	}
	r.m.Unlock()
	return r.New()
}

// Put returns s to the free list. Closed sessions are dropped.
func (r *Registry) Put(s *Session) {
	if s == nil || s.Closed() {
		return
	}
	r.m.Lock()
	defer r.m.Unlock()
	if r.maxIdle > 0 && len(r.saved) >= r.maxIdle {
		s.Close()
		return
	}
	r.saved = append(r.saved, s)
}

// With runs f with a Session that is exclusively owned for the duration of
// the call.
func (r *Registry) With(f func(*Session) error) error {
	s, err := r.Get()
	if err != nil {
		return err
	}
	defer r.Put(s)
	return f(s)
}

// New creates a Session without adding it to the free list.
func (r *Registry) New() (*Session, error) {
	start := time.Now()
	s, err := NewSession(r.bundle)
	if err != nil {
		r.logger.Warn().Err(err).Str("bundle", r.bundle.Name).Msg("session creation failed")
		return nil, err
	}
	n := r.created.Add(1)
	r.logger.Debug().
		Int64("session", n).
		Str("bundle", r.bundle.Name).
		Dur("elapsed", time.Since(start)).
		Msg("session created")
	return s, nil
}

// Shutdown closes every idle session. Sessions held by callers are not
// affected and may still be put back afterwards.
func (r *Registry) Shutdown() {
	r.m.Lock()
	defer r.m.Unlock()
	for _, s := range r.saved {
		s.Close()
	}
	r.logger.Debug().Int("sessions", len(r.saved)).Msg("registry shut down")
	r.saved = r.saved[:0]
}

// Stats reports how many sessions were created and how many are idle.
func (r *Registry) Stats() RegistryStats {
	r.m.Lock()
	defer r.m.Unlock()
	return RegistryStats{Created: r.created.Load(), Idle: len(r.saved)}
}
