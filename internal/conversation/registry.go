package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/triage-concierge/internal/session"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

// ErrUnknownSession means no live or cached conversation has the id.
var ErrUnknownSession = errors.New("conversation: unknown session")

// ActiveGauge reports the number of live conversations.
type ActiveGauge interface {
	SetActiveSessions(n int)
}

// Registry holds the live orchestrators of this process, rebuilding them
// from the session cache on demand.
type Registry struct {
	deps    Deps
	idleTTL time.Duration
	gauge   ActiveGauge
	logger  *logging.Logger

	mu    sync.Mutex
	convs map[string]*Orchestrator
}

// NewRegistry builds a registry. A zero idleTTL disables eviction.
func NewRegistry(deps Deps, idleTTL time.Duration, gauge ActiveGauge) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		deps:    deps,
		idleTTL: idleTTL,
		gauge:   gauge,
		logger:  logger.Component("registry"),
		convs:   make(map[string]*Orchestrator),
	}
}

// Open starts a new conversation with a fresh id.
func (r *Registry) Open() *Orchestrator {
	o := New(session.NewID(), r.deps)
	r.mu.Lock()
	r.convs[o.ID()] = o
	n := len(r.convs)
	r.mu.Unlock()
	r.report(n)
	return o
}

// Get returns the live conversation for id, restoring it from the session
// cache when this process has not seen it.
func (r *Registry) Get(ctx context.Context, id string) (*Orchestrator, error) {
	if !session.ValidID(id) {
		return nil, ErrUnknownSession
	}
	r.mu.Lock()
	o, ok := r.convs[id]
	r.mu.Unlock()
	if ok {
		return o, nil
	}

	o = New(id, r.deps)
	found, err := o.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnknownSession
	}

	r.mu.Lock()
	if existing, ok := r.convs[id]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.convs[id] = o
	n := len(r.convs)
	r.mu.Unlock()
	r.report(n)
	return o, nil
}

// Remove clears the conversation and forgets it.
func (r *Registry) Remove(ctx context.Context, id string) error {
	o, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := o.Clear(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.convs, id)
	n := len(r.convs)
	r.mu.Unlock()
	r.report(n)
	return nil
}

// Len returns the number of live conversations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}

// Evict drops conversations idle since before now-idleTTL. Busy ones are
// kept. Evicted conversations remain in the session cache.
func (r *Registry) Evict(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-r.idleTTL)
	r.mu.Lock()
	evicted := 0
	for id, o := range r.convs {
		if o.Busy() || o.LastActive().After(cutoff) {
			continue
		}
		delete(r.convs, id)
		evicted++
	}
	n := len(r.convs)
	r.mu.Unlock()
	if evicted > 0 {
		r.logger.Info("evicted idle conversations", "count", evicted, "remaining", n)
	}
	r.report(n)
	return evicted
}

// Run evicts idle conversations every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Evict(now)
		}
	}
}

func (r *Registry) report(n int) {
	if r.gauge != nil {
		r.gauge.SetActiveSessions(n)
	}
}
