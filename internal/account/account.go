// Package account keeps player accounts and their paws balance in the shared
// store, so every server sees the same balance.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamefleet/internal/store"

	"github.com/rs/zerolog/log"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmptyPlayer  = errors.New("player id is required")
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Paws      int64     `json:"paws"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func fromRecord(rec store.User) *User {
	return &User{ID: rec.ID, Name: rec.Name, Paws: rec.Paws, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}
}

type Service struct {
	records store.UserStore
}

func NewService(records store.UserStore) *Service {
	return &Service{records: records}
}

func (s *Service) Get(ctx context.Context, playerID string) (*User, error) {
	rec, err := s.records.GetUser(ctx, playerID)
	if err != nil {
		return nil, mapUserNotFound(err)
	}
	return fromRecord(*rec), nil
}

// Ensure creates the account with an empty balance the first time a player is
// seen and keeps the stored name current afterwards.
func (s *Service) Ensure(ctx context.Context, playerID, name string) (*User, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, ErrEmptyPlayer
	}
	if err := s.records.UpsertUser(ctx, store.User{ID: playerID, Name: strings.TrimSpace(name)}); err != nil {
		return nil, fmt.Errorf("save user %s: %w", playerID, err)
	}
	return s.Get(ctx, playerID)
}

func (s *Service) SetPaws(ctx context.Context, playerID string, amount int64) error {
	if err := s.records.SetPaws(ctx, playerID, amount); err != nil {
		return mapUserNotFound(err)
	}
	metricPawsChangesTotal.Add(1)
	log.Info().Str("player_id", playerID).Int64("paws", amount).Msg("paws set")
	return nil
}

// AddPaws adjusts the balance by delta, which may be negative, and returns
// the new balance.
func (s *Service) AddPaws(ctx context.Context, playerID string, delta int64) (int64, error) {
	paws, err := s.records.AddPaws(ctx, playerID, delta)
	if err != nil {
		return 0, mapUserNotFound(err)
	}
	metricPawsChangesTotal.Add(1)
	log.Info().Str("player_id", playerID).Int64("delta", delta).Int64("paws", paws).Msg("paws added")
	return paws, nil
}

func mapUserNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
