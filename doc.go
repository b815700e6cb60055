// Package vectorcore is the storage-and-compute substrate beneath an
// approximate-nearest-neighbor vector engine.
//
// It owns raw vector bytes, maps stable external labels to dense local ids,
// and dispatches distance/normalization computation to the fastest available
// numeric kernel for a given (metric, data type, SIMD tier) triple. The
// search index itself (graph or partition structures traversing these
// vectors) and persistence are external collaborators built on top of this
// layer.
//
// Package layout:
//
//	metric         metric / data type / SIMD tier enumerations
//	distance       scalar and lane-batched distance kernels
//	registry       the (metric, data type, tier) operator capability table
//	space          per-engine vector space configuration, aligned allocation
//	idalloc        label to local-id mapping with free-list reuse
//	memstore       batch-allocated in-memory vector storage
//	observability  Prometheus collector over store statistics
//
// This package holds the shared error taxonomy and the structured logger
// used across the module.
package vectorcore
