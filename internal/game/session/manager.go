package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/quizwar/internal/game/match"
)

// ErrGameNotFound is returned when no live game has the requested ID.
var ErrGameNotFound = errors.New("session: game not found")

// Game is one live match hosted by the Manager.
type Game struct {
	// ID is the UUID assigned at creation.
	ID string
	// Engine is the game's turn engine; it carries its own lock.
	Engine *match.Engine
	// Feed receives an event after every change to the game.
	Feed *Feed
	// Created is when the game was registered.
	Created time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

// LastSeen returns when the game was last touched.
func (g *Game) LastSeen() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSeen
}

func (g *Game) touch(now time.Time) {
	g.mu.Lock()
	g.lastSeen = now
	g.mu.Unlock()
}

// Manager tracks all live games.
// All methods are safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	games      map[string]*Game
	now        func() time.Time
	feedBuffer int
}

// NewManager creates an empty game Manager.
//
// Precondition: now may be nil, selecting time.Now.
func NewManager(now func() time.Time, feedBuffer int) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		games:      make(map[string]*Game),
		now:        now,
		feedBuffer: feedBuffer,
	}
}

// Create registers engine under a fresh UUID.
//
// Precondition: engine must not be nil.
// Postcondition: Returns the registered Game with an open Feed.
func (m *Manager) Create(engine *match.Engine) (*Game, error) {
	if engine == nil {
		return nil, fmt.Errorf("session: engine must not be nil")
	}
	now := m.now()
	id := uuid.NewString()
	g := &Game{
		ID:       id,
		Engine:   engine,
		Feed:     NewFeed(id, m.feedBuffer),
		Created:  now,
		lastSeen: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[id]; exists {
		return nil, fmt.Errorf("session: game %q already registered", id)
	}
	m.games[id] = g
	return g, nil
}

// Get returns the game for id.
//
// Postcondition: Returns ErrGameNotFound if id is unknown.
func (m *Manager) Get(id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGameNotFound, id)
	}
	return g, nil
}

// Touch marks the game as active now.
//
// Postcondition: Returns ErrGameNotFound if id is unknown.
func (m *Manager) Touch(id string) error {
	g, err := m.Get(id)
	if err != nil {
		return err
	}
	g.touch(m.now())
	return nil
}

// Remove unregisters the game and closes its feed.
//
// Postcondition: Returns ErrGameNotFound if id is unknown.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	g, ok := m.games[id]
	if ok {
		delete(m.games, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrGameNotFound, id)
	}
	_ = g.Feed.Close()
	return nil
}

// ReapIdle removes every game not touched within idle of now.
//
// Postcondition: Returns the removed IDs in sorted order; their feeds are closed.
func (m *Manager) ReapIdle(now time.Time, idle time.Duration) []string {
	m.mu.Lock()
	var reaped []*Game
	for id, g := range m.games {
		if now.Sub(g.LastSeen()) > idle {
			reaped = append(reaped, g)
			delete(m.games, id)
		}
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(reaped))
	for _, g := range reaped {
		_ = g.Feed.Close()
		ids = append(ids, g.ID)
	}
	sort.Strings(ids)
	return ids
}

// IDs returns the IDs of all live games in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of live games.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}
