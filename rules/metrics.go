package rules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Remote-call accounting. The at-most-one-batch guarantee makes these
// cheap to watch: remote_calls_total should track distinct batch groups,
// not program counts.
var (
	remoteCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "benefit_engine",
		Subsystem: "rules",
		Name:      "remote_calls_total",
		Help:      "Outbound calls to the remote rules service by outcome.",
	}, []string{"outcome"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "benefit_engine",
		Subsystem: "rules",
		Name:      "cache_hits_total",
		Help:      "Batch requests answered from the in-process cache.",
	})

	coalesced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "benefit_engine",
		Subsystem: "rules",
		Name:      "coalesced_requests_total",
		Help:      "Concurrent duplicate requests that awaited an in-flight call.",
	})
)

const (
	outcomeOK          = "ok"
	outcomeFailed      = "failed"
	outcomeMalformed   = "malformed"
)
