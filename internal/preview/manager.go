package preview

import (
	"sync"
	"time"

	"equity-share-calculator/internal/events"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager tracks live-preview sessions and expires idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	debounce time.Duration
	ttl      time.Duration
	calc     CalcFunc
	bus      *events.EventBus
	log      zerolog.Logger

	stop chan struct{}
	once sync.Once
}

// NewManager creates a session manager. calc defaults to the allocation
// engine when nil.
func NewManager(debounce, ttl time.Duration, calc CalcFunc, bus *events.EventBus, log zerolog.Logger) *Manager {
	if calc == nil {
		calc = EngineCalc
	}
	return &Manager{
		sessions: make(map[string]*Session),
		debounce: debounce,
		ttl:      ttl,
		calc:     calc,
		bus:      bus,
		log:      log.With().Str("component", "preview").Logger(),
		stop:     make(chan struct{}),
	}
}

// NewSession creates and registers a session.
func (m *Manager) NewSession() *Session {
	id := uuid.New().String()
	s := newSession(id, m.debounce, m.calc, m.bus, m.log)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.log.Info().Str("session_id", id).Msg("preview session opened")
	return s
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove closes and unregisters a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
		m.log.Info().Str("session_id", id).Msg("preview session closed")
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run sweeps idle sessions until Stop is called.
func (m *Manager) Run() {
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

// Stop halts the sweep loop and closes every session.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.stop) })

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.IdleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		m.log.Info().Str("session_id", s.ID()).Msg("idle preview session expired")
	}
}
