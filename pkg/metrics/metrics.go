package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Faucet client counters and histograms, partitioned by chain.

var (
	// Outbound service calls
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faucetui",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total calls to the faucet service by operation and outcome",
	}, []string{"operation", "chain", "outcome"})

	APIRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faucetui",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Faucet service call duration",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation", "chain"})

	// Submissions
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faucetui",
		Subsystem: "faucet",
		Name:      "submissions_total",
		Help:      "Airdrop submissions by outcome (rejected, succeeded, failed)",
	}, []string{"chain", "outcome"})

	// Read queries
	QueryFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faucetui",
		Subsystem: "query",
		Name:      "fetches_total",
		Help:      "Read query fetches by kind and result",
	}, []string{"kind", "chain", "network", "result"})

	QueryDeduplicatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faucetui",
		Subsystem: "query",
		Name:      "deduplicated_total",
		Help:      "Read query calls that joined an in-flight fetch",
	}, []string{"kind", "chain", "network"})

	// Server
	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faucetui",
		Subsystem: "server",
		Name:      "websocket_clients",
		Help:      "Connected websocket clients",
	})
)
