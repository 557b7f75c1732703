// Package session tracks live games by ID and fans their events out to
// watchers.
package session

import (
	"fmt"
	"sync"
)

// DefaultFeedBuffer is the event buffer size used when none is given.
const DefaultFeedBuffer = 64

// Feed routes game events to a Go channel, bridging a game to a streaming
// watcher.
type Feed struct {
	gameID string
	events chan []byte
	mu     sync.Mutex
	closed bool
}

// NewFeed creates a Feed for the given game ID.
//
// Precondition: gameID must be non-empty.
// Postcondition: Returns a Feed with an open events channel.
func NewFeed(gameID string, bufferSize int) *Feed {
	if bufferSize <= 0 {
		bufferSize = DefaultFeedBuffer
	}
	return &Feed{
		gameID: gameID,
		events: make(chan []byte, bufferSize),
	}
}

// GameID returns the ID of the game this feed belongs to.
func (f *Feed) GameID() string {
	return f.gameID
}

// Push sends data to the events channel without blocking.
//
// Precondition: data must be a non-nil byte slice.
// Postcondition: Data is enqueued, or an error if the feed is closed or full.
func (f *Feed) Push(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("feed %s is closed", f.gameID)
	}
	select {
	case f.events <- data:
		return nil
	default:
		return fmt.Errorf("feed %s event buffer full", f.gameID)
	}
}

// Events returns the read-only events channel.
// A watch stream reads from this channel until it is closed.
func (f *Feed) Events() <-chan []byte {
	return f.events
}

// Close marks the feed as closed and closes the events channel.
//
// Postcondition: The events channel is closed. Further Push calls return an error.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

// IsClosed reports whether the feed has been closed.
func (f *Feed) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
