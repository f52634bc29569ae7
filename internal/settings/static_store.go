package settings

import (
	"context"
	"fmt"
	"sync"
)

// StaticStore is an in-memory ListStore for tests and redis-less dev runs.
type StaticStore struct {
	mu    sync.Mutex
	lists map[string][]string
}

// NewStaticStore starts with the given lists; unset names fall back to the
// compiled-in defaults, same as the Redis implementation.
func NewStaticStore(lists map[string][]string) *StaticStore {
	if lists == nil {
		lists = make(map[string][]string)
	}
	return &StaticStore{lists: lists}
}

func (s *StaticStore) Get(_ context.Context, name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.lists[name]; ok {
		out := make([]string, len(v))
		copy(out, v)
		return out
	}
	return Default(name)
}

func (s *StaticStore) Set(_ context.Context, name string, values []string) error {
	if Default(name) == nil {
		return fmt.Errorf("unknown config list %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[name] = append([]string(nil), values...)
	return nil
}

func (s *StaticStore) SeedIfMissing(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range Names {
		if _, ok := s.lists[name]; !ok {
			s.lists[name] = Default(name)
		}
	}
	return nil
}
