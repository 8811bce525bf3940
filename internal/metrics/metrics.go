// Package metrics holds the prometheus instruments of a playback session.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pymusic"

// Recovery reasons.
const (
	ReasonStall       = "stall"
	ReasonExpiry      = "expiry"
	ReasonEngineError = "engine_error"
	ReasonSilentStop  = "silent_stop"
	ReasonResolution  = "resolution_error"
)

var (
	GenerationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_total",
		Help:      "Total number of playback generations minted.",
	})

	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_cache_lookups_total",
		Help:      "Stream cache lookups by result.",
	}, []string{"result"})

	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolutions_total",
		Help:      "Stream resolutions by outcome.",
	}, []string{"outcome"})

	RecoveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recoveries_total",
		Help:      "Automatic recoveries by reason.",
	}, []string{"reason"})

	StaleCallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_callbacks_total",
		Help:      "Asynchronous results discarded for carrying a superseded generation.",
	})

	FailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "surfaced_failures_total",
		Help:      "Failures reported to the user, by kind.",
	}, []string{"kind"})

	Playing = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "playing",
		Help:      "1 while the current session is playing.",
	})
)

var registry = prometheus.NewRegistry()

func init() {
	Register(registry)
}

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		GenerationsTotal,
		CacheLookupsTotal,
		ResolutionsTotal,
		RecoveriesTotal,
		StaleCallbacksTotal,
		FailuresTotal,
		Playing,
	)
}

// Handler serves the session instruments in the prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func CacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}

func Resolution(err error) {
	if err != nil {
		ResolutionsTotal.WithLabelValues("error").Inc()
		return
	}
	ResolutionsTotal.WithLabelValues("ok").Inc()
}

func SetPlaying(playing bool) {
	if playing {
		Playing.Set(1)
		return
	}
	Playing.Set(0)
}
