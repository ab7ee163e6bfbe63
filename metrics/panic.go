// Package metrics holds prometheus metrics shared between packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricPanic = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mimeparse_panic_total",
		Help: "Number of recovered panics, by package.",
	},
	[]string{
		"pkg",
	},
)

// Panic is the package label for a recovered panic.
type Panic string

const (
	Message Panic = "message"
)

func init() {
	// Start at zero so the counter shows up in the exported metrics.
	metricPanic.WithLabelValues(string(Message)).Add(0)
}

// PanicInc registers a recovered panic in package p.
func PanicInc(p Panic) {
	metricPanic.WithLabelValues(string(p)).Inc()
}
