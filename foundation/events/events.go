// Package events provides a fan out hub for simulator messages so
// websocket clients can follow a run live.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Message is a single simulator event delivered to subscribers.
type Message struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Hub maintains a mapping of unique id and channels so goroutines can
// subscribe to and receive simulator messages.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan Message
}

// New constructs a hub for subscribing to and receiving messages.
func New() *Hub {
	return &Hub{
		subs: make(map[string]chan Message),
	}
}

// Shutdown closes and removes every channel that was handed out by
// Acquire.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used to
// receive messages.
func (h *Hub) Acquire(id string) chan Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, exists := h.subs[id]; exists {
		return ch
	}

	// A message is dropped when the receiver is not ready, so this buffer
	// needs to cover the time a websocket send can take.
	const messageBuffer = 100

	h.subs[id] = make(chan Message, messageBuffer)
	return h.subs[id]
}

// Release closes and removes the channel that was provided by the call
// to Acquire.
func (h *Hub) Release(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, exists := h.subs[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(h.subs, id)
	close(ch)
	return nil
}

// Send delivers a message to every subscriber. Send will not block waiting
// for a receiver on any given channel.
func (h *Hub) Send(text string) {
	msg := Message{
		At:   time.Now().UTC(),
		Text: text,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}
