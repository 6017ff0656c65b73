package game

import (
	"sync"
	"testing"
	"time"

	"github.com/talktagger/server/internal/content"
)

type recordedEvent struct {
	Room    string
	Conn    string
	Event   string
	Payload any
}

type testEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *testEmitter) ToRoom(room, event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{Room: room, Event: event, Payload: payload})
}

func (e *testEmitter) ToConn(connID, event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{Conn: connID, Event: event, Payload: payload})
}

func (e *testEmitter) count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.Event == event {
			n++
		}
	}
	return n
}

func (e *testEmitter) last(event string) (recordedEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.events) - 1; i >= 0; i-- {
		if e.events[i].Event == event {
			return e.events[i], true
		}
	}
	return recordedEvent{}, false
}

func strptr(s string) *string { return &s }

// testPool builds a pool where the correct author is always "alice" and the
// choices are alice/bob.
func testPool(nReal, nGenerated int) *content.Pool {
	pool := &content.Pool{}
	for i := 0; i < nReal; i++ {
		pool.Real = append(pool.Real, content.Question{
			Text:          "real message",
			CorrectAuthor: "alice",
			Choices:       []string{"alice", "bob"},
		})
	}
	for i := 0; i < nGenerated; i++ {
		pool.Generated = append(pool.Generated, content.Question{
			Text:          "generated message",
			CorrectAuthor: "alice",
			Choices:       []string{"alice", "bob"},
			Synthetic:     true,
		})
	}
	return pool
}

func newTestRegistry(em *testEmitter, roundDuration time.Duration) *Registry {
	return NewRegistry(em, NewRoundScheduler(), RegistryConfig{RoundDuration: roundDuration})
}

func newTestSession(t *testing.T, em *testEmitter, pool *content.Pool, roundDuration time.Duration) (*Registry, *Session) {
	t.Helper()
	reg := newTestRegistry(em, roundDuration)
	s, err := reg.CreateSession("host-conn", "Host", pool)
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	return reg, s
}
