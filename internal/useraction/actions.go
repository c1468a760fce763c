// Package useraction turns "ask or tell a player something" into fleet-wide
// dispatch calls. The caller never needs to know which server the player is
// on: whichever server hosts the player answers.
package useraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamefleet/internal/dispatch"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotCompleted = errors.New("no server completed the action")
	ErrEmptyMail    = errors.New("mail has no lines")
)

const defaultRetryBase = 250 * time.Millisecond

// RetryPolicy bounds teleport retries. Zero MaxAttempts and MaxDuration keep
// retrying until ctx is done.
type RetryPolicy struct {
	MaxAttempts uint
	MaxDuration time.Duration
	Base        time.Duration
}

func (p RetryPolicy) options() []backoff.RetryOption {
	base := p.Base
	if base <= 0 {
		base = defaultRetryBase
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = 20 * base
	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(p.MaxDuration),
	}
	if p.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(p.MaxAttempts))
	}
	return opts
}

type Actions struct {
	disp     *dispatch.Dispatcher
	teleport RetryPolicy
}

func New(disp *dispatch.Dispatcher, teleport RetryPolicy) *Actions {
	return &Actions{disp: disp, teleport: teleport}
}

// For returns the action set of one player.
func (a *Actions) For(playerID string) *User {
	return &User{id: playerID, actions: a}
}

// OnlinePlayers gathers the players online on every server that answers
// before the deadline.
func (a *Actions) OnlinePlayers(ctx context.Context) ([]string, error) {
	rs, err := a.disp.Request(ctx, dispatch.Call{Kind: KindOnlinePlayers, Shape: dispatch.Gather, Expected: dispatch.Unbounded})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, r := range rs.Replies() {
		if !r.Settable {
			continue
		}
		var players []string
		if err := json.Unmarshal(r.Value, &players); err != nil {
			log.Warn().Err(err).Str("responder", r.Responder).Msg("bad online player list")
			continue
		}
		for _, p := range players {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (a *Actions) OnlinePlayersAsync(ctx context.Context) <-chan Result[[]string] {
	return async(ctx, a.OnlinePlayers)
}

type User struct {
	id      string
	actions *Actions
}

func (u *User) ID() string { return u.id }

// IsOnline reports whether any server says the player is online.
func (u *User) IsOnline(ctx context.Context) (bool, error) {
	return u.ask(ctx, KindIsOnline, Query{PlayerID: u.id})
}

func (u *User) IsVanished(ctx context.Context) (bool, error) {
	return u.ask(ctx, KindIsVanished, Query{PlayerID: u.id})
}

// HasPermission reports whether the player holds every permission listed.
func (u *User) HasPermission(ctx context.Context, perms ...string) (bool, error) {
	return u.ask(ctx, KindHasPermission, Query{PlayerID: u.id, Permissions: perms})
}

func (u *User) ask(ctx context.Context, kind string, q Query) (bool, error) {
	rs, err := u.actions.disp.Request(ctx, dispatch.Call{Kind: kind, Payload: q, Shape: dispatch.Settable})
	if err != nil {
		return false, err
	}
	return rs.ContainsSettable(true), nil
}

// SendMessage delivers lines to the player as one newline separated message
// and reports whether a server delivered it.
func (u *User) SendMessage(ctx context.Context, lines ...string) (bool, error) {
	msg := Message{PlayerID: u.id, Text: strings.Join(lines, "\n")}
	rs, err := u.actions.disp.Request(ctx, dispatch.Call{Kind: KindMessage, Payload: msg, Shape: dispatch.Completable})
	if err != nil {
		return false, err
	}
	return rs.ContainsCompleted(), nil
}

// Mail broadcasts lines to the player as one newline separated message
// without waiting for delivery. A player offline everywhere misses it.
func (u *User) Mail(ctx context.Context, lines ...string) error {
	if len(lines) == 0 {
		return ErrEmptyMail
	}
	return u.actions.disp.Broadcast(ctx, KindMail, Mail{PlayerID: u.id, Text: strings.Join(lines, "\n")})
}

// Teleport moves the player to loc, re-sending the request with backoff
// until a server completes it, the retry policy gives up, or ctx is done.
func (u *User) Teleport(ctx context.Context, loc Location) error {
	req := TeleportRequest{PlayerID: u.id, Location: loc}
	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		rs, err := u.actions.disp.Request(ctx, dispatch.Call{Kind: KindTeleport, Payload: req, Shape: dispatch.Completable})
		if err != nil {
			return struct{}{}, err
		}
		if !rs.ContainsCompleted() {
			return struct{}{}, ErrNotCompleted
		}
		return struct{}{}, nil
	}, u.actions.teleport.options()...)
	if err == nil {
		if attempts > 1 {
			log.Info().Str("player_id", u.id).Int("attempts", attempts).Msg("teleport completed after retry")
		}
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("teleport %s to %s after %d attempts: %w", u.id, loc, attempts, err)
}

func (u *User) IsOnlineAsync(ctx context.Context) <-chan Result[bool] {
	return async(ctx, u.IsOnline)
}

func (u *User) IsVanishedAsync(ctx context.Context) <-chan Result[bool] {
	return async(ctx, u.IsVanished)
}

func (u *User) HasPermissionAsync(ctx context.Context, perms ...string) <-chan Result[bool] {
	return async(ctx, func(ctx context.Context) (bool, error) { return u.HasPermission(ctx, perms...) })
}

func (u *User) SendMessageAsync(ctx context.Context, lines ...string) <-chan Result[bool] {
	return async(ctx, func(ctx context.Context) (bool, error) { return u.SendMessage(ctx, lines...) })
}

func (u *User) TeleportAsync(ctx context.Context, loc Location) <-chan Result[bool] {
	return async(ctx, func(ctx context.Context) (bool, error) {
		err := u.Teleport(ctx, loc)
		return err == nil, err
	})
}

// Result is the outcome of an asynchronous action.
type Result[T any] struct {
	Value T
	Err   error
}

// async runs fn on its own goroutine. The channel is buffered so the
// goroutine never blocks on a caller that stopped listening.
func async[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	go func() {
		v, err := fn(ctx)
		out <- Result[T]{Value: v, Err: err}
	}()
	return out
}
