// Package session keeps per-conversation history in memory so follow-up
// questions carry context. History is bounded: only the most recent
// exchanges are kept and older ones are evicted.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Exchange is one user question and the assistant's answer.
type Exchange struct {
	Question string
	Answer   string
}

// Store holds conversation sessions in memory.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string][]Exchange
	maxExchanges int
}

// NewStore creates a session Store keeping at most maxExchanges recent
// exchanges per session.
func NewStore(maxExchanges int) *Store {
	if maxExchanges <= 0 {
		maxExchanges = 2
	}
	return &Store{
		sessions:     make(map[string][]Exchange),
		maxExchanges: maxExchanges,
	}
}

// Create starts a new empty session and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	return id
}

// Get returns the exchanges of a session and whether it exists.
func (s *Store) Get(id string) ([]Exchange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exchanges, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	out := make([]Exchange, len(exchanges))
	copy(out, exchanges)
	return out, true
}

// AddExchange appends an exchange to a session, creating the session if it
// does not exist. When the session exceeds the exchange cap, the oldest
// exchanges are evicted.
func (s *Store) AddExchange(id, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exchanges := append(s.sessions[id], Exchange{Question: question, Answer: answer})
	if len(exchanges) > s.maxExchanges {
		exchanges = exchanges[len(exchanges)-s.maxExchanges:]
	}
	s.sessions[id] = exchanges
}

// History returns the session transcript formatted for the model's system
// prompt, or "" for an unknown or empty session.
func (s *Store) History(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exchanges := s.sessions[id]
	if len(exchanges) == 0 {
		return ""
	}

	lines := make([]string, 0, len(exchanges))
	for _, e := range exchanges {
		lines = append(lines, fmt.Sprintf("User: %s\nAssistant: %s", e.Question, e.Answer))
	}
	return strings.Join(lines, "\n")
}

// Clear removes a session and its history.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
