// Package node assembles one game server: its dispatcher, arena registry,
// room service, session manager, player actions and accounts, all sharing
// one bus connection and one record store.
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamefleet/internal/account"
	"gamefleet/internal/arena"
	"gamefleet/internal/bus"
	"gamefleet/internal/chat"
	"gamefleet/internal/dispatch"
	"gamefleet/internal/gameroom"
	"gamefleet/internal/logging"
	"gamefleet/internal/session"
	"gamefleet/internal/store"
	"gamefleet/internal/useraction"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Name            string
	Records         store.Records
	Transport       bus.Transport
	DispatchTimeout time.Duration
	Teleport        useraction.RetryPolicy
	// Builder registers the components of each session; nil starts empty
	// sessions.
	Builder session.Builder
	// Host is the game platform; nil uses an in-memory host.
	Host useraction.PlayerHost
}

type Node struct {
	Name       string
	Records    store.Records
	Dispatcher *dispatch.Dispatcher
	Arenas     *arena.Directory
	Registry   *arena.Registry
	Rooms      *gameroom.Service
	Sessions   *session.Manager
	Actions    *useraction.Actions
	Responder  *useraction.Responder
	Chat       *chat.Relay
	Accounts   *account.Service
	Host       useraction.PlayerHost

	transport bus.Transport
	logger    zerolog.Logger
}

func New(opts Options) (*Node, error) {
	if opts.Name == "" {
		return nil, errors.New("node name is required")
	}
	if opts.Records == nil {
		return nil, errors.New("node records are required")
	}
	if opts.Transport == nil {
		return nil, errors.New("node transport is required")
	}
	if opts.Host == nil {
		opts.Host = useraction.NewMemoryHost()
	}

	disp := dispatch.New(opts.Name, opts.Transport, opts.DispatchTimeout)
	dir := arena.NewDirectory(opts.Records)
	reg := arena.NewRegistry(opts.Records, disp)
	n := &Node{
		Name:       opts.Name,
		Records:    opts.Records,
		Dispatcher: disp,
		Arenas:     dir,
		Registry:   reg,
		Rooms:      gameroom.NewService(opts.Records, disp, dir, reg),
		Actions:    useraction.New(disp, opts.Teleport),
		Responder:  useraction.NewResponder(disp, opts.Host),
		Chat:       chat.NewRelay(disp, opts.Host),
		Accounts:   account.NewService(opts.Records),
		Host:       opts.Host,
		transport:  opts.Transport,
		logger:     logging.Server(opts.Name),
	}
	n.Sessions = session.NewManager(n.lookupArena, opts.Builder)
	reg.AddObserver(n.Sessions)
	n.Rooms.OnInvite(n.notifyInvite)
	return n, nil
}

// lookupArena prefers the hosted copy so sessions see their arena even when
// storage is disabled.
func (n *Node) lookupArena(ctx context.Context, arenaID string) (arena.Arena, error) {
	if a, ok := n.Registry.Local(arenaID); ok {
		return a, nil
	}
	return n.Arenas.Get(ctx, arenaID)
}

func (n *Node) notifyInvite(ctx context.Context, ev gameroom.InviteEvent) error {
	if !n.Host.IsOnline(ev.PlayerID) {
		return nil
	}
	from := ev.From
	if from == "" {
		from = "Someone"
	}
	text := fmt.Sprintf("%s invited you to a %s room.", from, ev.GameType.Title())
	if err := n.Host.SendMessage(ctx, ev.PlayerID, text); err != nil {
		n.logger.Warn().Err(err).Str("player_id", ev.PlayerID).Msg("invite notice failed")
	}
	return nil
}

// Run consumes the bus until ctx is cancelled.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n.logger.Info().Msg("node started")
		return n.Dispatcher.Run(ctx)
	})
	return g.Wait()
}

// Shutdown releases the local arenas, stops what sessions remain and closes
// the bus connection. Run must be stopped separately.
func (n *Node) Shutdown(ctx context.Context) error {
	var errs []error
	if err := n.Registry.UnregisterAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("unregister arenas: %w", err))
	}
	if err := n.Sessions.StopAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop sessions: %w", err))
	}
	if err := n.transport.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close transport: %w", err))
	}
	n.logger.Info().Int("pending", n.Dispatcher.Pending()).Msg("node stopped")
	return errors.Join(errs...)
}
