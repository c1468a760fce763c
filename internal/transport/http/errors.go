package httptransport

import (
	"errors"
	"net/http"

	"gamefleet/internal/account"
	"gamefleet/internal/arena"
	"gamefleet/internal/chat"
	"gamefleet/internal/gameroom"
	"gamefleet/internal/useraction"

	"github.com/rs/zerolog/log"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{gameroom.ErrRoomNotFound, http.StatusNotFound, "room_not_found"},
	{gameroom.ErrInviteNotFound, http.StatusNotFound, "invite_not_found"},
	{gameroom.ErrAlreadyInvited, http.StatusConflict, "already_invited"},
	{gameroom.ErrInviteStale, http.StatusGone, "invite_stale"},
	{gameroom.ErrNoArenaAvailable, http.StatusConflict, "no_arena_available"},
	{arena.ErrUnknownGameType, http.StatusBadRequest, "unknown_game_type"},
	{arena.ErrArenaNotFound, http.StatusNotFound, "arena_not_found"},
	{arena.ErrNotHosted, http.StatusNotFound, "arena_not_hosted"},
	{arena.ErrArenaBusy, http.StatusConflict, "arena_busy"},
	{arena.ErrAlreadyHosted, http.StatusConflict, "arena_already_hosted"},
	{arena.ErrNoHost, http.StatusServiceUnavailable, "no_host"},
	{useraction.ErrNotCompleted, http.StatusGatewayTimeout, "not_completed"},
	{useraction.ErrPlayerOffline, http.StatusNotFound, "player_offline"},
	{chat.ErrCancelled, http.StatusUnprocessableEntity, "chat_cancelled"},
	{account.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{account.ErrEmptyPlayer, http.StatusBadRequest, "invalid_request"},
}

// writeServiceError maps domain errors to status codes; anything unknown is
// logged and reported as internal_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	metricAPIErrorsTotal.Add(1)
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			WriteHTTPError(w, e.status, e.code)
			return
		}
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg("api request failed")
	WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
}
