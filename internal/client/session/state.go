// Package session holds the client's derived authentication state: the cached
// access token, the query cache of authenticated data and the observers that
// must learn when the session becomes invalid.
package session

import (
	"context"
	"strings"
	"sync"
)

// Notifier is told when authentication has become irrecoverably invalid.
type Notifier interface {
	OnSessionInvalidated(ctx context.Context)
}

// Holder is the write side used by the auth operations layer.
type Holder interface {
	Notifier
	SetToken(token string)
}

// Cache stores results of authenticated queries by key.
type Cache interface {
	Lookup(key string) (any, bool)
	Put(key string, value any)
	Forget(prefix string)
	// Generation changes on every purge. PutAt stores value only if no purge
	// happened since gen was read.
	Generation() uint64
	PutAt(gen uint64, key string, value any) bool
}

type NopNotifier struct{}

func (NopNotifier) OnSessionInvalidated(context.Context) {}

// State is the in-memory session value. It is never persisted: on start it is
// seeded from the credential store and afterwards kept in step synchronously
// by SetToken and OnSessionInvalidated.
type State struct {
	mu          sync.RWMutex
	token       string
	queries     map[string]any
	generation  uint64
	subscribers []chan struct{}
}

func NewState() *State {
	return &State{queries: make(map[string]any)}
}

func (s *State) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *State) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *State) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// OnSessionInvalidated drops the token, purges every cached query and wakes
// all subscribers.
func (s *State) OnSessionInvalidated(context.Context) {
	s.mu.Lock()
	s.token = ""
	clear(s.queries)
	s.generation++
	subs := s.subscribers
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe returns a channel signalled on every invalidation. Signals are
// coalesced: a subscriber that has not drained the channel sees one.
func (s *State) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()

	return ch
}

func (s *State) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.queries[key]
	return v, ok
}

func (s *State) Put(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[key] = value
}

func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *State) PutAt(gen uint64, key string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.queries[key] = value
	return true
}

// Forget drops every cached query whose key starts with prefix.
func (s *State) Forget(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	for k := range s.queries {
		if strings.HasPrefix(k, prefix) {
			delete(s.queries, k)
		}
	}
}

// Cached returns the cached value for key or runs load and caches a
// successful result. A result whose load overlapped a purge is returned but
// not cached. A nil cache disables caching.
func Cached[T any](c Cache, key string, load func() (T, error)) (T, error) {
	var gen uint64
	if c != nil {
		gen = c.Generation()
		if v, ok := c.Lookup(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if c != nil {
		c.PutAt(gen, key, v)
	}
	return v, nil
}
