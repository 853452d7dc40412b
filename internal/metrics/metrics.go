// Package metrics holds the Prometheus collectors of the store and the
// results controller. Collectors are package-level and update whether or not
// they are registered; Register exposes them on a registry.
package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var StoreWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveresults",
	Subsystem: "store",
	Name:      "writes",
}, []string{"collection", "op"})

var StoreNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveresults",
	Subsystem: "store",
	Name:      "notifications",
}, []string{"collection", "kind"})

var StoreSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "liveresults",
	Subsystem: "store",
	Name:      "subscriptions",
})

var ControllerBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveresults",
	Subsystem: "controller",
	Name:      "builds",
}, []string{"collection"})

var ControllerSkippedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveresults",
	Subsystem: "controller",
	Name:      "skipped_records",
}, []string{"collection"})

var ControllerEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveresults",
	Subsystem: "controller",
	Name:      "events",
}, []string{"collection", "kind"})

var ControllerStaleDrops = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveresults",
	Subsystem: "controller",
	Name:      "stale_drops",
}, []string{"collection"})

var ControllerDiffDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "liveresults",
	Subsystem: "controller",
	Name:      "diff_duration_seconds",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
}, []string{"collection"})

// Collectors returns every collector of this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		StoreWrites,
		StoreNotifications,
		StoreSubscriptions,
		ControllerBuilds,
		ControllerSkippedRecords,
		ControllerEvents,
		ControllerStaleDrops,
		ControllerDiffDuration,
	}
}

// Register registers all collectors on reg. Collectors that are already
// registered are not an error, so Register may be called more than once.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler returns an http.Handler serving the collectors of this package on
// a fresh registry, so that calling it more than once does not conflict.
func Handler() (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := Register(registry); err != nil {
		return nil, fmt.Errorf("register collectors: %w", err)
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
