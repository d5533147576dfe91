package taskstore

import "github.com/prometheus/client_golang/prometheus"

// StatsSource is what the collector scrapes; *Storage implements it.
type StatsSource interface {
	ID() string
	Stats() StorageStats
}

// StorageCollector exposes a storage's advisory stats as prometheus
// gauges, labeled with the store instance id.
type StorageCollector struct {
	src StatsSource

	tasks        *prometheus.Desc
	records      *prometheus.Desc
	indexedTasks *prometheus.Desc
}

func NewStorageCollector(src StatsSource) *StorageCollector {
	labels := prometheus.Labels{"store": src.ID()}
	return &StorageCollector{
		src: src,

		tasks: prometheus.NewDesc(
			"taskstore_storage_tasks",
			"Number of tasks with a record store allocated",
			nil, labels,
		),
		records: prometheus.NewDesc(
			"taskstore_storage_records",
			"Total number of records across all tasks",
			nil, labels,
		),
		indexedTasks: prometheus.NewDesc(
			"taskstore_storage_indexed_tasks",
			"Number of task stores that switched to the indexed representation",
			nil, labels,
		),
	}
}

func (sc *StorageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sc.tasks
	ch <- sc.records
	ch <- sc.indexedTasks
}

func (sc *StorageCollector) Collect(ch chan<- prometheus.Metric) {
	stats := sc.src.Stats()

	ch <- prometheus.MustNewConstMetric(
		sc.tasks,
		prometheus.GaugeValue,
		float64(stats.Tasks),
	)
	ch <- prometheus.MustNewConstMetric(
		sc.records,
		prometheus.GaugeValue,
		float64(stats.Records),
	)
	ch <- prometheus.MustNewConstMetric(
		sc.indexedTasks,
		prometheus.GaugeValue,
		float64(stats.IndexedTasks),
	)
}
