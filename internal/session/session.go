// Package session runs the pluggable behaviours of an active arena. A
// Session holds the components bound to one arena; the Manager creates a
// session when a local arena activates and tears it down on deactivation.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gamefleet/internal/arena"
)

var (
	ErrComponentNotFound = errors.New("component not found")
	ErrComponentType     = errors.New("component has unexpected type")
	ErrSessionExists     = errors.New("session already exists for arena")
	ErrSessionNotFound   = errors.New("session not found")
)

// Kind names a component type. A session holds at most one component per
// kind.
type Kind string

type Component interface {
	Kind() Kind
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ArenaLookup resolves an arena id to its current state.
type ArenaLookup func(ctx context.Context, arenaID string) (arena.Arena, error)

type Session struct {
	arenaID string
	lookup  ArenaLookup

	mu         sync.Mutex
	components []Component
	started    bool
}

func New(arenaID string, lookup ArenaLookup) *Session {
	return &Session{arenaID: arenaID, lookup: lookup}
}

func (s *Session) ArenaID() string { return s.arenaID }

func (s *Session) Arena(ctx context.Context) (arena.Arena, error) {
	if s.lookup == nil {
		return arena.Arena{}, arena.ErrArenaNotFound
	}
	return s.lookup(ctx, s.arenaID)
}

// Register adds c, replacing any component of the same kind. On a started
// session the new component is started right away.
func (s *Session) Register(ctx context.Context, c Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(c.Kind()); i >= 0 {
		old := s.components[i]
		if s.started {
			if err := old.Stop(ctx); err != nil {
				return fmt.Errorf("stop replaced %s: %w", old.Kind(), err)
			}
		}
		s.components = slices.Delete(s.components, i, i+1)
	}
	if s.started {
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", c.Kind(), err)
		}
	}
	s.components = append(s.components, c)
	return nil
}

// Unregister removes the component of kind, stopping it on a started session.
func (s *Session) Unregister(ctx context.Context, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(kind)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, kind)
	}
	c := s.components[i]
	s.components = slices.Delete(s.components, i, i+1)
	if s.started {
		return c.Stop(ctx)
	}
	return nil
}

func (s *Session) Component(kind Kind) (Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(kind)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, kind)
	}
	return s.components[i], nil
}

// ComponentAs returns the component of kind as its concrete type.
func ComponentAs[T Component](s *Session, kind Kind) (T, error) {
	var zero T
	c, err := s.Component(kind)
	if err != nil {
		return zero, err
	}
	typed, ok := c.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrComponentType, kind, c)
	}
	return typed, nil
}

// Kinds lists registered component kinds in registration order.
func (s *Session) Kinds() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Kind, 0, len(s.components))
	for _, c := range s.components {
		out = append(out, c.Kind())
	}
	return out
}

func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Start starts components in registration order. When one fails, the ones
// already started are stopped again and the session stays stopped.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	for i, c := range s.components {
		if err := c.Start(ctx); err != nil {
			errs := []error{fmt.Errorf("start %s: %w", c.Kind(), err)}
			for _, prev := range s.components[:i] {
				if stopErr := prev.Stop(ctx); stopErr != nil {
					errs = append(errs, fmt.Errorf("stop %s: %w", prev.Kind(), stopErr))
				}
			}
			return errors.Join(errs...)
		}
	}
	s.started = true
	return nil
}

// Stop stops every component in registration order, even after a failure.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	var errs []error
	for _, c := range s.components {
		if err := c.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Kind(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) index(kind Kind) int {
	return slices.IndexFunc(s.components, func(c Component) bool { return c.Kind() == kind })
}
