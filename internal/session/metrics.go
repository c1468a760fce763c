package session

import "expvar"

var (
	metricSessionsActive     = expvar.NewInt("sessions_active")
	metricSessionErrorsTotal = expvar.NewInt("session_errors_total")
)
