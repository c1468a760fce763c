package dispatch

import "expvar"

var (
	metricRequestsTotal      = expvar.NewInt("dispatch_requests_total")
	metricBroadcastsTotal    = expvar.NewInt("dispatch_broadcasts_total")
	metricRepliesTotal       = expvar.NewInt("dispatch_replies_total")
	metricLateRepliesTotal   = expvar.NewInt("dispatch_late_replies_total")
	metricTimeoutsTotal      = expvar.NewInt("dispatch_timeouts_total")
	metricHandlerErrorsTotal = expvar.NewInt("dispatch_handler_errors_total")
	metricPendingActive      = expvar.NewInt("dispatch_pending_active")
)
