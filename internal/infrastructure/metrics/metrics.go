package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BroadcastTicks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "astrodash_broadcast_ticks_total", Help: "Broadcast ticks completed"},
	)
	BroadcastDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "astrodash_broadcast_viewers_dropped_total", Help: "Viewers detached after a failed send"},
	)
	Viewers = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "astrodash_viewers", Help: "Currently attached viewers"},
	)
	StorageAbsorbed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "astrodash_storage_absorbed_total", Help: "Storage failures converted to defaults"},
		[]string{"backend", "op"},
	)
	LedgerMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "astrodash_ledger_mutations_total", Help: "Paper position mutations"},
		[]string{"op", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(BroadcastTicks, BroadcastDropped, Viewers, StorageAbsorbed, LedgerMutations)
}

func Handler() http.Handler { return promhttp.Handler() }
