package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the bot's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	drawsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardbox",
			Subsystem: "economy",
			Name:      "draws_total",
			Help:      "Cards drawn, by rarity.",
		},
		[]string{"rarity"},
	)

	drawRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardbox",
			Subsystem: "economy",
			Name:      "draw_rejections_total",
			Help:      "Draw attempts refused, by reason.",
		},
		[]string{"reason"},
	)

	cardsSold = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardbox",
			Subsystem: "economy",
			Name:      "cards_sold_total",
			Help:      "Cards sold, by rarity.",
		},
		[]string{"rarity"},
	)

	currencyCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cardbox",
			Subsystem: "economy",
			Name:      "currency_credited_total",
			Help:      "Currency paid out for sold cards.",
		},
	)

	storeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardbox",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of persistence operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "status"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardbox",
			Subsystem: "bot",
			Name:      "commands_total",
			Help:      "Chat commands and button presses handled.",
		},
		[]string{"platform", "name", "status"},
	)
)

func init() {
	Registry.MustRegister(
		drawsTotal,
		drawRejections,
		cardsSold,
		currencyCredited,
		storeDuration,
		commandsTotal,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordDraw(rarity string) {
	drawsTotal.WithLabelValues(rarity).Inc()
}

func RecordDrawRejected(reason string) {
	drawRejections.WithLabelValues(reason).Inc()
}

func RecordSale(rarity string, price int64) {
	cardsSold.WithLabelValues(rarity).Inc()
	currencyCredited.Add(float64(price))
}

func RecordStoreOp(operation string, took time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeDuration.WithLabelValues(operation, status).Observe(took.Seconds())
}

func RecordCommand(platform, name string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	commandsTotal.WithLabelValues(platform, name, status).Inc()
}
