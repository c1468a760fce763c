package chat

import "expvar"

var (
	metricChatRelayedTotal   = expvar.NewInt("chat_relayed_total")
	metricChatCancelledTotal = expvar.NewInt("chat_cancelled_total")
	metricChatDeliveredTotal = expvar.NewInt("chat_delivered_total")
)
