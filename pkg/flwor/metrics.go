package flwor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openfga/flwor/internal/build"
)

var (
	tuplesEmittedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "tuples_emitted_total",
		Help:      "Number of tuples emitted by FLWOR clauses, in pull and push mode.",
	}, []string{"clause"})

	sortBufferSizeHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: build.ProjectName,
		Name:      "sort_buffer_size",
		Help:      "Number of tuples buffered by an order by clause before sorting.",
		Buckets:   []float64{1, 10, 100, 1000, 10000, 100000},
	})
)

func emitted(k Kind) {
	tuplesEmittedCounter.WithLabelValues(k.label()).Inc()
}
