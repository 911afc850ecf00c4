package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxybot_broadcasts_total",
		Help: "Broadcast cycles by trigger (schedule, startup, api).",
	}, []string{"trigger"})

	BroadcastDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "proxybot_broadcast_duration_seconds",
		Help:    "Duration of one broadcast cycle.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	SendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxybot_sends_total",
		Help: "Broadcast deliveries by result (ok, failed, fallback_ok, fallback_failed).",
	}, []string{"result"})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxybot_fetch_failures_total",
		Help: "Link store failures by kind (proxies, configs).",
	}, []string{"kind"})

	LinksFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxybot_links_fetched_total",
		Help: "Links returned by the store by kind.",
	}, []string{"kind"})

	SchedulerRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proxybot_scheduler_running",
		Help: "1 while the broadcast scheduler is started.",
	})

	UpdatesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxybot_updates_handled_total",
		Help: "Inbound Telegram updates by route and outcome (ok, denied, error).",
	}, []string{"route", "outcome"})
)
