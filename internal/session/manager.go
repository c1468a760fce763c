package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gamefleet/internal/arena"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Builder registers the components of a new session for an arena.
type Builder func(ctx context.Context, a arena.Arena, s *Session) error

// Manager indexes this server's sessions by arena id.
type Manager struct {
	lookup  ArenaLookup
	builder Builder

	mu       sync.Mutex
	sessions map[string]*Session
}

var _ arena.Observer = (*Manager)(nil)

func NewManager(lookup ArenaLookup, builder Builder) *Manager {
	return &Manager{lookup: lookup, builder: builder, sessions: map[string]*Session{}}
}

// Create returns an empty, unstarted session for arenaID.
func (m *Manager) Create(arenaID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[arenaID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, arenaID)
	}
	s := New(arenaID, m.lookup)
	m.sessions[arenaID] = s
	metricSessionsActive.Add(1)
	return s, nil
}

func (m *Manager) Get(arenaID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[arenaID]
	return s, ok
}

// Remove stops and discards the session of arenaID.
func (m *Manager) Remove(ctx context.Context, arenaID string) error {
	m.mu.Lock()
	s, ok := m.sessions[arenaID]
	delete(m.sessions, arenaID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, arenaID)
	}
	metricSessionsActive.Add(-1)
	return s.Stop(ctx)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StopAll stops and discards every session, for shutdown.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	all := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()
	metricSessionsActive.Add(-int64(len(all)))

	var (
		errMu sync.Mutex
		errs  []error
	)
	var g errgroup.Group
	g.SetLimit(8)
	for arenaID, s := range all {
		g.Go(func() error {
			if err := s.Stop(ctx); err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("session %s: %w", arenaID, err))
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// ArenaActivated builds and starts a session for a newly activated arena.
func (m *Manager) ArenaActivated(ctx context.Context, a arena.Arena) {
	logger := log.With().Str("arena_id", a.ID).Str("room_id", a.RoomID).Logger()
	s, err := m.Create(a.ID)
	if err != nil {
		logger.Warn().Err(err).Msg("session not created")
		return
	}
	if m.builder != nil {
		if err := m.builder(ctx, a, s); err != nil {
			metricSessionErrorsTotal.Add(1)
			logger.Error().Err(err).Msg("session build failed")
			_ = m.Remove(ctx, a.ID)
			return
		}
	}
	if err := s.Start(ctx); err != nil {
		metricSessionErrorsTotal.Add(1)
		logger.Error().Err(err).Msg("session start failed")
		_ = m.Remove(ctx, a.ID)
		return
	}
	logger.Info().Int("components", len(s.Kinds())).Msg("session started")
}

// ArenaDeactivated stops and discards the arena's session.
func (m *Manager) ArenaDeactivated(ctx context.Context, a arena.Arena) {
	err := m.Remove(ctx, a.ID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
	case err != nil:
		metricSessionErrorsTotal.Add(1)
		log.Error().Err(err).Str("arena_id", a.ID).Msg("session stop failed")
	default:
		log.Info().Str("arena_id", a.ID).Msg("session stopped")
	}
}
