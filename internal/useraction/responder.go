package useraction

import (
	"context"

	"gamefleet/internal/dispatch"

	"github.com/rs/zerolog/log"
)

// PlayerHost is the game platform of one server: it knows the players
// connected to it and can act on them.
type PlayerHost interface {
	IsOnline(playerID string) bool
	IsVanished(playerID string) bool
	HasPermission(playerID, perm string) bool
	SendMessage(ctx context.Context, playerID, text string) error
	Teleport(ctx context.Context, playerID string, loc Location) error
	OnlinePlayers() []string
}

// Responder answers user actions for the players online on this server and
// passes over everyone else.
type Responder struct {
	server string
	host   PlayerHost
}

func NewResponder(disp *dispatch.Dispatcher, host PlayerHost) *Responder {
	r := &Responder{server: disp.Server(), host: host}
	disp.Handle(dispatch.Low, KindIsOnline, r.onIsOnline)
	disp.Handle(dispatch.Low, KindIsVanished, r.onIsVanished)
	disp.Handle(dispatch.Low, KindHasPermission, r.onHasPermission)
	disp.Handle(dispatch.Low, KindMessage, r.onMessage)
	disp.Handle(dispatch.Low, KindTeleport, r.onTeleport)
	disp.Handle(dispatch.Low, KindOnlinePlayers, r.onOnlinePlayers)
	disp.Handle(dispatch.Low, KindMail, r.onMail)
	return r
}

func (r *Responder) query(ev *dispatch.Event) (Query, bool, error) {
	var q Query
	if err := ev.Decode(&q); err != nil {
		return Query{}, false, err
	}
	return q, r.host.IsOnline(q.PlayerID), nil
}

func (r *Responder) onIsOnline(_ context.Context, ev *dispatch.Event) error {
	_, here, err := r.query(ev)
	if err != nil || !here {
		return err
	}
	return ev.Set(true)
}

func (r *Responder) onIsVanished(_ context.Context, ev *dispatch.Event) error {
	q, here, err := r.query(ev)
	if err != nil || !here {
		return err
	}
	return ev.Set(r.host.IsVanished(q.PlayerID))
}

func (r *Responder) onHasPermission(_ context.Context, ev *dispatch.Event) error {
	q, here, err := r.query(ev)
	if err != nil || !here {
		return err
	}
	for _, perm := range q.Permissions {
		if !r.host.HasPermission(q.PlayerID, perm) {
			return ev.Set(false)
		}
	}
	return ev.Set(true)
}

func (r *Responder) onMessage(ctx context.Context, ev *dispatch.Event) error {
	var msg Message
	if err := ev.Decode(&msg); err != nil {
		return err
	}
	if !r.host.IsOnline(msg.PlayerID) {
		return nil
	}
	if err := r.host.SendMessage(ctx, msg.PlayerID, msg.Text); err != nil {
		return err
	}
	ev.MarkCompleted()
	return nil
}

func (r *Responder) onMail(ctx context.Context, ev *dispatch.Event) error {
	var mail Mail
	if err := ev.Decode(&mail); err != nil {
		return err
	}
	if !r.host.IsOnline(mail.PlayerID) {
		return nil
	}
	log.Debug().Str("server", r.server).Str("player_id", mail.PlayerID).Msg("mail delivered")
	return r.host.SendMessage(ctx, mail.PlayerID, mail.Text)
}

func (r *Responder) onTeleport(ctx context.Context, ev *dispatch.Event) error {
	var req TeleportRequest
	if err := ev.Decode(&req); err != nil {
		return err
	}
	if !r.host.IsOnline(req.PlayerID) {
		return nil
	}
	if err := r.host.Teleport(ctx, req.PlayerID, req.Location); err != nil {
		log.Warn().Err(err).Str("server", r.server).Str("player_id", req.PlayerID).Str("location", req.Location.String()).Msg("teleport failed")
		return nil
	}
	ev.MarkCompleted()
	return nil
}

func (r *Responder) onOnlinePlayers(_ context.Context, ev *dispatch.Event) error {
	players := r.host.OnlinePlayers()
	if players == nil {
		players = []string{}
	}
	return ev.Set(players)
}
