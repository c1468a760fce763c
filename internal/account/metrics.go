package account

import "expvar"

var metricPawsChangesTotal = expvar.NewInt("account_paws_changes_total")
