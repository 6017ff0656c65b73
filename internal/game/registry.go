package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/talktagger/server/internal/content"
)

// ConnRef is what the registry knows about a live connection: which session
// it belongs to and whether it is the display-only host.
type ConnRef struct {
	Code   string
	IsHost bool
}

// RegistryConfig carries the per-session knobs sessions are created with.
type RegistryConfig struct {
	RoundDuration time.Duration
	ExportFile    string
}

// Registry owns the process-wide session map and the connection index. Its
// lock is separate from any session's lock and the two are never held at the
// same time.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	conns    map[string]ConnRef

	emit  Emitter
	sched *RoundScheduler
	cfg   RegistryConfig
}

func NewRegistry(emit Emitter, sched *RoundScheduler, cfg RegistryConfig) *Registry {
	if cfg.RoundDuration <= 0 {
		cfg.RoundDuration = 15 * time.Second
	}
	return &Registry{
		sessions: make(map[string]*Session),
		conns:    make(map[string]ConnRef),
		emit:     emit,
		sched:    sched,
		cfg:      cfg,
	}
}

// CreateSession builds a session around the given question pool, indexes the
// host connection and returns it. Codes are four uppercase letters, unique
// among live sessions.
func (r *Registry) CreateSession(hostConnID, hostName string, pool *content.Pool) (*Session, error) {
	if pool.Empty() {
		return nil, ErrNoGameData
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	code := randomCode(4)
	for r.sessions[code] != nil {
		code = randomCode(4)
	}
	s := newSession(code, hostConnID, hostName, pool, r.emit, r.sched, r.cfg.RoundDuration, r.cfg.ExportFile)
	r.sessions[code] = s
	r.conns[hostConnID] = ConnRef{Code: code, IsHost: true}
	log.Info().Str("code", code).Str("host", hostName).Msg("session created")
	return s, nil
}

func (r *Registry) Get(code string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.sessions[strings.ToUpper(strings.TrimSpace(code))]
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, code)
}

func (r *Registry) Bind(connID, code string, isHost bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = ConnRef{Code: code, IsHost: isHost}
}

func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
}

func (r *Registry) Lookup(connID string) (ConnRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.conns[connID]
	return ref, ok
}

// Rebind moves a connection binding from a stale id to a fresh one, used
// when reconnection migrates an identity between transport handles.
func (r *Registry) Rebind(oldConnID, newConnID, code string, isHost bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if oldConnID != "" {
		delete(r.conns, oldConnID)
	}
	r.conns[newConnID] = ConnRef{Code: code, IsHost: isHost}
}

// FindByHostToken resolves the durable host token to its session.
func (r *Registry) FindByHostToken(token string) (*Session, error) {
	if token == "" {
		return nil, ErrTokenExpired
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.HostToken == token {
			return s, nil
		}
	}
	return nil, ErrTokenExpired
}

// Sessions returns a snapshot of the live sessions for the sweeper.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Disconnect resolves a dropped connection and applies the departure rules.
// A host drop only flags the session; the sweeper reclaims it after the
// grace window. A player drop that empties the session while the host is
// connected destroys it synchronously.
func (r *Registry) Disconnect(connID string, now time.Time) {
	ref, ok := r.Lookup(connID)
	if !ok {
		return
	}
	r.Unbind(connID)
	s, err := r.Get(ref.Code)
	if err != nil {
		return
	}
	if ref.IsHost {
		s.HostGone(now)
		return
	}
	name, empty, hostConnected := s.RemovePlayer(connID)
	log.Info().Str("code", ref.Code).Str("player", name).Msg("player left")
	if empty && hostConnected {
		s.Close()
		r.Remove(ref.Code)
		log.Info().Str("code", ref.Code).Msg("removed empty session")
	}
}

func randomCode(n int) string {
	letters := []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
