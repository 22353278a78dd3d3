package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	regenerationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worldgen_regenerations_total",
		Help: "World regenerations by result",
	}, []string{"result"})

	loadedChunks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "worldgen_loaded_chunks",
		Help: "Chunks in the current world snapshot",
	})
)

func init() {
	prometheus.MustRegister(regenerationsTotal, loadedChunks)
}
