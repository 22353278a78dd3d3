package cache

import "github.com/prometheus/client_golang/prometheus"

var cacheRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worldgen_payload_cache_requests_total",
		Help: "Запросы к кешу закодированных чанков",
	},
	[]string{"backend", "result"},
)

func init() {
	prometheus.MustRegister(cacheRequests)
}
