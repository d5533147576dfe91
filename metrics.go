package taskstore

import "github.com/prometheus/client_golang/prometheus"

var CellUpdateCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskstore",
	Subsystem: "engine",
	Name:      "cell_updates",
}, []string{"result"})

var InvalidationFanout = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "taskstore",
	Subsystem: "engine",
	Name:      "invalidation_fanout",
	Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200, 500},
})

var InvalidatedTaskCount = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "taskstore",
	Subsystem: "engine",
	Name:      "invalidated_tasks",
})

var IndexConversionCount = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "taskstore",
	Subsystem: "storage",
	Name:      "index_conversions",
})
