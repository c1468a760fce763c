package gameroom

import "expvar"

var (
	metricRoomsCreatedTotal = expvar.NewInt("gameroom_rooms_created_total")
	metricInvitesSentTotal  = expvar.NewInt("gameroom_invites_sent_total")
	metricLaunchesTotal     = expvar.NewInt("gameroom_launches_total")

	metricStaleInviteErrorsTotal = expvar.NewInt("gameroom_stale_invite_errors_total")
)
