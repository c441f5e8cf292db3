package api

import (
	"context"
	"sync"
	"time"

	"github.com/clinicore/agenda/internal/prefs"
	"github.com/clinicore/agenda/internal/schedule"
)

// OrchestratorFactory builds one scheduling orchestrator per agenda session.
type OrchestratorFactory func(anchor time.Time) *schedule.Orchestrator

// SessionManager hands out one long-lived orchestrator per user session, so
// overlapping requests from the same session share the epoch guard and
// mutation lock set that make reloads and mutations race-free.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*schedule.Orchestrator
	factory  OrchestratorFactory
	store    *prefs.Store
}

func NewSessionManager(factory OrchestratorFactory, store *prefs.Store) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*schedule.Orchestrator),
		factory:  factory,
		store:    store,
	}
}

// Get returns the session's orchestrator, creating and priming it on first
// use: clinic config is loaded and stored preferences are restored. A
// preference-store failure only costs the stored filter, never the session.
func (m *SessionManager) Get(ctx context.Context, sessionID string) *schedule.Orchestrator {
	m.mu.Lock()
	if o, ok := m.sessions[sessionID]; ok {
		m.mu.Unlock()
		return o
	}
	o := m.factory(time.Now())
	m.sessions[sessionID] = o
	m.mu.Unlock()

	o.LoadConfig(ctx)
	if m.store != nil {
		if p, err := m.store.Load(ctx, sessionID); err == nil {
			o.Session().SetFilter(p.Filter)
			o.Session().SetActiveView(p.ViewMode)
		}
	}
	return o
}
