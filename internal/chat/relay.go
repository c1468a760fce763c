// Package chat relays player chat between servers of the fleet.
package chat

import (
	"context"
	"errors"
	"slices"

	"gamefleet/internal/dispatch"
	"gamefleet/internal/useraction"

	"github.com/rs/zerolog/log"
)

const KindChat = "player.chat"

var ErrCancelled = errors.New("chat message cancelled")

// Line is a chat line before it leaves the sending server. Filters may
// rewrite the message, decorate the format, add servers, or cancel it.
type Line struct {
	PlayerID  string
	Message   string
	Format    Format
	Servers   []string
	Cancelled bool
}

// AddServers whitelists servers for the line, skipping duplicates.
func (l *Line) AddServers(servers ...string) {
	for _, s := range servers {
		if !slices.Contains(l.Servers, s) {
			l.Servers = append(l.Servers, s)
		}
	}
}

// Filter runs on the sending server before the line is relayed.
type Filter func(ctx context.Context, l *Line) error

// Relayed is the wire form of a chat line.
type Relayed struct {
	PlayerID  string   `json:"player_id"`
	Formatted string   `json:"formatted"`
	Servers   []string `json:"servers"`
}

type Relay struct {
	disp *dispatch.Dispatcher
	host useraction.PlayerHost

	filters []Filter
}

// NewRelay delivers relayed chat whitelisted for this server to every player
// online here.
func NewRelay(disp *dispatch.Dispatcher, host useraction.PlayerHost) *Relay {
	r := &Relay{disp: disp, host: host}
	disp.Handle(dispatch.Low, KindChat, r.onChat)
	return r
}

// Use appends a filter. Filters are not safe to add once the relay is in use.
func (r *Relay) Use(f Filter) {
	r.filters = append(r.filters, f)
}

// Send runs the filters over a player's message and relays the formatted
// line to the whitelisted servers. The sending server is always whitelisted.
func (r *Relay) Send(ctx context.Context, playerID, message string, servers ...string) (Relayed, error) {
	line := &Line{PlayerID: playerID, Message: message}
	line.AddServers(r.disp.Server())
	line.AddServers(servers...)
	for _, f := range r.filters {
		if err := f(ctx, line); err != nil {
			return Relayed{}, err
		}
		if line.Cancelled {
			metricChatCancelledTotal.Add(1)
			return Relayed{}, ErrCancelled
		}
	}
	out := Relayed{PlayerID: playerID, Formatted: line.Format.Apply(line.Message), Servers: line.Servers}
	if err := r.disp.Broadcast(ctx, KindChat, out); err != nil {
		return Relayed{}, err
	}
	metricChatRelayedTotal.Add(1)
	return out, nil
}

func (r *Relay) onChat(ctx context.Context, ev *dispatch.Event) error {
	var msg Relayed
	if err := ev.Decode(&msg); err != nil {
		return err
	}
	if !slices.Contains(msg.Servers, r.disp.Server()) {
		return nil
	}
	delivered := 0
	for _, player := range r.host.OnlinePlayers() {
		if err := r.host.SendMessage(ctx, player, msg.Formatted); err != nil {
			log.Warn().Err(err).Str("player_id", player).Msg("chat delivery failed")
			continue
		}
		delivered++
	}
	metricChatDeliveredTotal.Add(int64(delivered))
	return nil
}
