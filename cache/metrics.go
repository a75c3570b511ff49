package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type lookupResult string

const (
	lookupHit     lookupResult = "hit"
	lookupMiss    lookupResult = "miss"
	lookupExpired lookupResult = "expired"
)

var (
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galmirror_cache_lookups_total",
			Help: "Cache reads by store and result",
		},
		[]string{"store", "result"},
	)

	rankingRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galmirror_ranking_refresh_total",
			Help: "Ranking refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	rankingAgeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "galmirror_ranking_snapshot_age_seconds",
			Help: "Age of the ranking snapshot at the last read",
		},
	)
)

func recordLookup(store string, result lookupResult) {
	cacheLookupsTotal.WithLabelValues(store, string(result)).Inc()
}
