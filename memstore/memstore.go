// Package memstore is the in-memory vector store: a growable list of
// aligned vector batches addressed by local id, composed with the
// identifier manager that maps external labels onto those ids.
//
// The store does no locking of its own. It exposes one readers-writer lock
// through Mutex; callers hold it shared around lookups and statistics and
// exclusive around mutations. Externalizing the lock lets a caller batch
// several store operations under one critical section.
package memstore

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	vectorcore "github.com/hupe1980/vectorcore"
	"github.com/hupe1980/vectorcore/idalloc"
	"github.com/hupe1980/vectorcore/space"
)

// TombstoneStatus marks a logically deleted slot that is still physically
// allocated.
const TombstoneStatus uint64 = 1

// Options configure a MemStore.
type Options struct {
	// Reserved is the number of locked local ids below the allocatable
	// range.
	Reserved uint64

	// BatchSize is the number of vector slots per batch, the unit of
	// storage growth.
	BatchSize uint64

	// MaxElements is the hard ceiling on local ids, reserved included.
	MaxElements uint64

	// Logger receives growth and mutation diagnostics.
	Logger *vectorcore.Logger
}

// MemStore owns its batches and identifier manager and borrows the vector
// space, which must outlive it.
type MemStore struct {
	mu sync.RWMutex

	space      *space.Space
	reserved   uint64
	batchSize  uint64
	maxElem    uint64
	logger     *vectorcore.Logger
	batches    []*VectorBatch
	ids        *idalloc.Manager
	snapshotID uint64
}

// New creates an empty store over sp.
func New(sp *space.Space, optFns ...func(*Options)) (*MemStore, error) {
	opts := Options{
		BatchSize:   1024,
		MaxElements: 1 << 20,
		Logger:      vectorcore.NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	if sp == nil {
		return nil, fmt.Errorf("%w: nil vector space", vectorcore.ErrInvalidArgument)
	}

	if opts.BatchSize == 0 {
		return nil, fmt.Errorf("%w: batch size must be positive", vectorcore.ErrInvalidArgument)
	}

	if opts.MaxElements <= opts.Reserved {
		return nil, fmt.Errorf("%w: max elements %d must exceed reserved %d", vectorcore.ErrInvalidArgument, opts.MaxElements, opts.Reserved)
	}

	ids := idalloc.New(opts.BatchSize)
	if err := ids.Initialize(nil, opts.Reserved, opts.Reserved); err != nil {
		return nil, fmt.Errorf("initialize id manager: %w", err)
	}

	s := &MemStore{
		space:     sp,
		reserved:  opts.Reserved,
		batchSize: opts.BatchSize,
		maxElem:   opts.MaxElements,
		logger:    opts.Logger,
		ids:       ids,
	}

	// Reserved slots need backing storage up front so lids below the
	// allocatable range are addressable.
	if opts.Reserved > 0 {
		if err := s.ensureSpace(opts.Reserved - 1); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Mutex returns the store's readers-writer lock. The store never acquires
// it internally; callers hold it shared for reads and exclusive for
// mutations.
func (s *MemStore) Mutex() *sync.RWMutex {
	return &s.mu
}

// AddVector binds label to a fresh lid, copies vec into its slot, and
// stamps snapshotID. It returns the lid. A duplicate label fails with
// ErrAlreadyExists; a store at MaxElements fails with ErrOutOfRange.
func (s *MemStore) AddVector(snapshotID, label uint64, vec []byte) (uint64, error) {
	if err := s.checkPayload(vec); err != nil {
		return 0, err
	}

	if s.ids.FreeCount() == 0 && s.ids.NextID() >= s.ids.Capacity() {
		s.ids.Grow()
	}

	lid, err := s.ids.AllocID(label)
	if err != nil {
		return 0, err
	}

	if lid >= s.maxElem {
		s.ids.FreeLocalID(lid)
		return 0, fmt.Errorf("%w: lid %d at max elements %d", vectorcore.ErrOutOfRange, lid, s.maxElem)
	}

	if err := s.ensureSpace(lid); err != nil {
		s.ids.FreeLocalID(lid)
		return 0, err
	}

	s.slot(lid).Set(int(lid%s.batchSize), vec)
	s.snapshotID = snapshotID

	return lid, nil
}

// SetVector overwrites the vector bound to label in place and stamps
// snapshotID. An unbound label fails with ErrOutOfRange; SetVector never
// allocates.
func (s *MemStore) SetVector(snapshotID, label uint64, vec []byte) error {
	if err := s.checkPayload(vec); err != nil {
		return err
	}

	lid, ok := s.ids.LocalID(label)
	if !ok {
		return fmt.Errorf("%w: label %d not found", vectorcore.ErrOutOfRange, label)
	}

	s.slot(lid).Set(int(lid%s.batchSize), vec)
	s.snapshotID = snapshotID

	return nil
}

// RemoveVectorByLabel releases the slot bound to label and stamps
// snapshotID. Unknown labels are a no-op.
func (s *MemStore) RemoveVectorByLabel(snapshotID, label uint64) {
	if _, ok := s.ids.LocalID(label); !ok {
		return
	}

	s.ids.FreeID(label)
	s.snapshotID = snapshotID
}

// RemoveVectorByID releases lid and stamps snapshotID. Out-of-range or
// free lids are a no-op.
func (s *MemStore) RemoveVectorByID(snapshotID, lid uint64) {
	if _, ok := s.ids.Label(lid); !ok {
		return
	}

	s.ids.FreeLocalID(lid)
	s.snapshotID = snapshotID
}

// TombstoneVectorByLabel marks the slot bound to label as logically
// deleted without releasing it. Unknown labels are a no-op.
func (s *MemStore) TombstoneVectorByLabel(snapshotID, label uint64) {
	if _, ok := s.ids.LocalID(label); !ok {
		return
	}

	s.ids.SetStatusByLabel(label, TombstoneStatus)
	s.snapshotID = snapshotID
}

// TombstoneVectorByID marks lid as logically deleted without releasing
// it. Out-of-range or free lids are a no-op.
func (s *MemStore) TombstoneVectorByID(snapshotID, lid uint64) {
	if _, ok := s.ids.Label(lid); !ok {
		return
	}

	s.ids.SetStatus(lid, TombstoneStatus)
	s.snapshotID = snapshotID
}

// GetID returns the lid bound to label.
func (s *MemStore) GetID(label uint64) (uint64, error) {
	lid, ok := s.ids.LocalID(label)
	if !ok {
		return 0, fmt.Errorf("%w: label %d not found", vectorcore.ErrOutOfRange, label)
	}

	return lid, nil
}

// GetLabel returns the label bound to lid.
func (s *MemStore) GetLabel(lid uint64) (uint64, error) {
	label, ok := s.ids.Label(lid)
	if !ok {
		return 0, fmt.Errorf("%w: lid %d not bound", vectorcore.ErrOutOfRange, lid)
	}

	return label, nil
}

// GetVectorByLabel returns the payload span of the vector bound to label.
// The span aliases store memory; callers copy it if they outlive their
// read lock.
func (s *MemStore) GetVectorByLabel(label uint64) ([]byte, error) {
	lid, ok := s.ids.LocalID(label)
	if !ok {
		return nil, fmt.Errorf("%w: label %d not found", vectorcore.ErrOutOfRange, label)
	}

	return s.vectorAt(lid), nil
}

// GetVectorByID returns the payload span at lid, which must be bound.
func (s *MemStore) GetVectorByID(lid uint64) ([]byte, error) {
	if _, ok := s.ids.Label(lid); !ok {
		return nil, fmt.Errorf("%w: lid %d not bound", vectorcore.ErrOutOfRange, lid)
	}

	return s.vectorAt(lid), nil
}

// GetReservedVector returns the payload span of a reserved slot. Reserved
// slots are addressable whether or not a label was bound through
// SetReservedID.
func (s *MemStore) GetReservedVector(lid uint64) ([]byte, error) {
	if lid >= s.reserved {
		return nil, fmt.Errorf("%w: lid %d outside reserved range [0, %d)", vectorcore.ErrOutOfRange, lid, s.reserved)
	}

	return s.vectorAt(lid), nil
}

func (s *MemStore) checkPayload(vec []byte) error {
	if len(vec) != s.space.DataSize {
		return fmt.Errorf("%w: payload is %d bytes, space takes %d", vectorcore.ErrInvalidArgument, len(vec), s.space.DataSize)
	}

	return nil
}

func (s *MemStore) slot(lid uint64) *VectorBatch {
	return s.batches[lid/s.batchSize]
}

func (s *MemStore) vectorAt(lid uint64) []byte {
	return s.slot(lid).At(int(lid % s.batchSize))
}

// ensureSpace grows the batch list until lid is addressable. Growth is
// checked against MaxElements before any allocation.
func (s *MemStore) ensureSpace(lid uint64) error {
	if lid >= s.maxElem {
		return fmt.Errorf("%w: lid %d at max elements %d", vectorcore.ErrOutOfRange, lid, s.maxElem)
	}

	for uint64(len(s.batches))*s.batchSize <= lid {
		batch, err := NewVectorBatch(s.space, int(s.batchSize))
		if err != nil {
			return err
		}

		s.batches = append(s.batches, batch)

		s.logger.Debug("grew vector storage",
			"batches", len(s.batches),
			"allocated_vectors", uint64(len(s.batches))*s.batchSize,
		)
	}

	return nil
}

// Size returns the number of live label bindings.
func (s *MemStore) Size() uint64 {
	return s.ids.Size()
}

// BytesSize returns the bytes occupied by live vectors at the storage
// stride.
func (s *MemStore) BytesSize() uint64 {
	return s.Size() * uint64(s.space.VectorByteSize)
}

// AllocatedVectorSize returns the physical slot capacity across all
// batches.
func (s *MemStore) AllocatedVectorSize() uint64 {
	return uint64(len(s.batches)) * s.batchSize
}

// AllocatedBytes returns the physical storage footprint in bytes.
func (s *MemStore) AllocatedBytes() uint64 {
	var n uint64
	for _, b := range s.batches {
		n += uint64(b.BytesSize())
	}

	return n
}

// FreeVectorSize returns the allocated slots not occupied by a live
// binding.
func (s *MemStore) FreeVectorSize() uint64 {
	return s.AllocatedVectorSize() - s.Size()
}

// FreeBytes returns FreeVectorSize in bytes at the storage stride.
func (s *MemStore) FreeBytes() uint64 {
	return s.FreeVectorSize() * uint64(s.space.VectorByteSize)
}

// Tombstones returns the number of tombstoned slots in the active range.
func (s *MemStore) Tombstones() uint64 {
	var n uint64

	s.eachTombstone(func(uint64, idalloc.LabelEntity) {
		n++
	})

	return n
}

// TombstoneLocalIDs returns the set of tombstoned lids.
func (s *MemStore) TombstoneLocalIDs() *roaring64.Bitmap {
	set := roaring64.New()

	s.eachTombstone(func(lid uint64, _ idalloc.LabelEntity) {
		set.Add(lid)
	})

	return set
}

// TombstoneLabels returns the labels of tombstoned slots in lid order.
func (s *MemStore) TombstoneLabels() []uint64 {
	var labels []uint64

	s.eachTombstone(func(_ uint64, ent idalloc.LabelEntity) {
		labels = append(labels, ent.Label)
	})

	return labels
}

// TombstoneRatio returns the tombstoned fraction of live bindings, the
// trigger input for logical compaction.
func (s *MemStore) TombstoneRatio() float64 {
	size := s.Size()
	if size == 0 {
		return 0
	}

	return float64(s.Tombstones()) / float64(size)
}

func (s *MemStore) eachTombstone(fn func(lid uint64, ent idalloc.LabelEntity)) {
	for lid := s.reserved; lid < s.ids.NextID(); lid++ {
		ent, ok := s.ids.Entity(lid)
		if !ok || ent.Label == idalloc.InvalidLabel {
			continue
		}

		if ent.Status == TombstoneStatus {
			fn(lid, ent)
		}
	}
}

// SnapshotID returns the marker stamped by the most recent mutation.
func (s *MemStore) SnapshotID() uint64 {
	return s.snapshotID
}

// Space returns the borrowed vector space.
func (s *MemStore) Space() *space.Space {
	return s.space
}

// Batches returns the batch list, used by serializers.
func (s *MemStore) Batches() []*VectorBatch {
	return s.batches
}

// IDManager returns the identifier manager, used by serializers.
func (s *MemStore) IDManager() *idalloc.Manager {
	return s.ids
}

// Reserved returns the locked lid count.
func (s *MemStore) Reserved() uint64 {
	return s.reserved
}

// BatchSize returns the slots per batch.
func (s *MemStore) BatchSize() uint64 {
	return s.batchSize
}

// MaxElements returns the hard capacity ceiling.
func (s *MemStore) MaxElements() uint64 {
	return s.maxElem
}
