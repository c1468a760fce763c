package httptransport

import "expvar"

var (
	metricAPIErrorsTotal    = expvar.NewInt("api_errors_total")
	metricLaunchRequests    = expvar.NewInt("api_launch_requests_total")
	metricPlayerActionTotal = expvar.NewInt("api_player_actions_total")
)
