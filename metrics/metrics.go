// Package metrics holds the Prometheus collectors of the node.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "polls"

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// Transactions counts gateway transactions by operation and result.
	Transactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "transactions_total",
		Help:      "Ledger transactions executed by the gateway.",
	}, []string{"op", "result"})

	// QueueLength is the number of transactions waiting for the gateway
	// worker.
	QueueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "queue_length",
		Help:      "Transactions waiting to be executed.",
	})

	// Decryptions counts relayer user decryption requests by result.
	Decryptions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "relayer",
		Name:      "decryptions_total",
		Help:      "User decryption requests served by the relayer.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(Transactions, QueueLength, Decryptions)
}

// Result returns the result label for err.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
