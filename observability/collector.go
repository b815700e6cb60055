// Package observability exposes store statistics as Prometheus metrics.
//
// The store's statistics are pull-based: a StoreCollector reads them under
// the store's shared lock at scrape time, so no metric updates sit on the
// mutation path.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/vectorcore/memstore"
)

// StoreCollector is a prometheus.Collector over one MemStore. Register it
// with a registry and every scrape snapshots the store's statistics under
// its read lock.
type StoreCollector struct {
	store *memstore.MemStore

	size           *prometheus.Desc
	bytesSize      *prometheus.Desc
	allocated      *prometheus.Desc
	allocatedBytes *prometheus.Desc
	free           *prometheus.Desc
	freeBytes      *prometheus.Desc
	tombstones     *prometheus.Desc
	tombstoneRatio *prometheus.Desc
	holeRatio      *prometheus.Desc
	snapshotID     *prometheus.Desc
}

// NewStoreCollector builds a collector for store. The label constLabels is
// attached to every series, letting one process expose several stores.
func NewStoreCollector(store *memstore.MemStore, constLabels prometheus.Labels) *StoreCollector {
	return &StoreCollector{
		store: store,
		size: prometheus.NewDesc(
			"vectorcore_store_vectors",
			"Number of live label bindings in the store.",
			nil, constLabels,
		),
		bytesSize: prometheus.NewDesc(
			"vectorcore_store_vector_bytes",
			"Bytes occupied by live vectors at the storage stride.",
			nil, constLabels,
		),
		allocated: prometheus.NewDesc(
			"vectorcore_store_allocated_vectors",
			"Physical vector slot capacity across all batches.",
			nil, constLabels,
		),
		allocatedBytes: prometheus.NewDesc(
			"vectorcore_store_allocated_bytes",
			"Physical storage footprint in bytes.",
			nil, constLabels,
		),
		free: prometheus.NewDesc(
			"vectorcore_store_free_vectors",
			"Allocated slots not occupied by a live binding.",
			nil, constLabels,
		),
		freeBytes: prometheus.NewDesc(
			"vectorcore_store_free_bytes",
			"Free slot capacity in bytes.",
			nil, constLabels,
		),
		tombstones: prometheus.NewDesc(
			"vectorcore_store_tombstones",
			"Number of tombstoned slots in the active range.",
			nil, constLabels,
		),
		tombstoneRatio: prometheus.NewDesc(
			"vectorcore_store_tombstone_ratio",
			"Tombstoned fraction of live bindings.",
			nil, constLabels,
		),
		holeRatio: prometheus.NewDesc(
			"vectorcore_store_hole_ratio",
			"Freed fraction of the active id range.",
			nil, constLabels,
		),
		snapshotID: prometheus.NewDesc(
			"vectorcore_store_snapshot_id",
			"Marker stamped by the most recent mutation.",
			nil, constLabels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size
	ch <- c.bytesSize
	ch <- c.allocated
	ch <- c.allocatedBytes
	ch <- c.free
	ch <- c.freeBytes
	ch <- c.tombstones
	ch <- c.tombstoneRatio
	ch <- c.holeRatio
	ch <- c.snapshotID
}

// Collect implements prometheus.Collector. It holds the store's shared
// lock for the duration of the scrape, per the store's locking contract.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	mu := c.store.Mutex()
	mu.RLock()
	defer mu.RUnlock()

	gauge := func(desc *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v)
	}

	gauge(c.size, float64(c.store.Size()))
	gauge(c.bytesSize, float64(c.store.BytesSize()))
	gauge(c.allocated, float64(c.store.AllocatedVectorSize()))
	gauge(c.allocatedBytes, float64(c.store.AllocatedBytes()))
	gauge(c.free, float64(c.store.FreeVectorSize()))
	gauge(c.freeBytes, float64(c.store.FreeBytes()))
	gauge(c.tombstones, float64(c.store.Tombstones()))
	gauge(c.tombstoneRatio, c.store.TombstoneRatio())
	gauge(c.holeRatio, c.store.IDManager().HoleRatio())
	gauge(c.snapshotID, float64(c.store.SnapshotID()))
}
