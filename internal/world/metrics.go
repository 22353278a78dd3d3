package world

import "github.com/prometheus/client_golang/prometheus"

var (
	chunksGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "worldgen_chunks_generated_total",
		Help: "Total number of generated chunks",
	})

	chunkGenerationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "worldgen_chunk_generation_seconds",
		Help:    "Time spent generating a single chunk",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})

	guaranteeUnfilled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worldgen_guarantee_unfilled_total",
		Help: "Guaranteed decorations that could not be placed",
	}, []string{"feature"})

	decorationsPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worldgen_decorations_placed_total",
		Help: "Placed decorations by kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(chunksGenerated, chunkGenerationSeconds, guaranteeUnfilled, decorationsPlaced)
}
