package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsTotal               = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "book_events_total", Help: "Feed events consumed by kind"}, []string{"kind"})
	OrdersAppliedTotal        = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "book_orders_applied_total", Help: "Order messages merged by message type"}, []string{"type"})
	OrdersDroppedTotal        = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_orders_dropped_total", Help: "Order messages for unknown or torn-down symbols"})
	MalformedMessagesTotal    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "malformed_messages_total", Help: "Rejected feed payloads by stage"}, []string{"stage"})
	SubscriptionRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "subscription_requests_total", Help: "Requests sent to the feed by method"}, []string{"method"})
	SubscriptionAcksTotal     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "subscription_acks_total", Help: "Feed acknowledgements by method and outcome"}, []string{"method", "outcome"})
	MergeDurationSeconds      = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "book_merge_duration_seconds", Help: "Time spent merging one order message", Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10)})
	BookLevels                = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "book_levels", Help: "Retained levels of the desired symbol by side"}, []string{"side"})
	HistoryLength             = prometheus.NewGauge(prometheus.GaugeOpts{Name: "history_length", Help: "Entries in the time-travel history"})
	TimeTravelEnabled         = prometheus.NewGauge(prometheus.GaugeOpts{Name: "time_travel_enabled", Help: "1 while time travel is on"})

	// Transport
	WSConnected       = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ws_connected", Help: "1 while the feed websocket is open"})
	WSReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ws_reconnects_total", Help: "Feed reconnect attempts by reason"}, []string{"reason"})

	// View push
	ViewClients      = prometheus.NewGauge(prometheus.GaugeOpts{Name: "view_clients", Help: "Connected view websocket clients"})
	ViewDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "view_dropped_total", Help: "Views not delivered by reason"}, []string{"reason"})

	// Recorder
	RecorderFramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "recorder_frames_total", Help: "Recorded frames by outcome"}, []string{"outcome"})
)

// Init registers every collector on a fresh registry.
func Init() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		EventsTotal, OrdersAppliedTotal, OrdersDroppedTotal, MalformedMessagesTotal,
		SubscriptionRequestsTotal, SubscriptionAcksTotal, MergeDurationSeconds,
		BookLevels, HistoryLength, TimeTravelEnabled,
		WSConnected, WSReconnectsTotal,
		ViewClients, ViewDroppedTotal,
		RecorderFramesTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// BoolGauge maps a flag onto a 0/1 gauge value.
func BoolGauge(g prometheus.Gauge, on bool) {
	if on {
		g.Set(1)
		return
	}
	g.Set(0)
}
