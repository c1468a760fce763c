package arena

import "expvar"

var (
	metricActivationsTotal   = expvar.NewInt("arena_activations_total")
	metricDeactivationsTotal = expvar.NewInt("arena_deactivations_total")
	metricHookErrorsTotal    = expvar.NewInt("arena_hook_errors_total")
	metricLocalHosted        = expvar.NewInt("arena_local_hosted")
)
