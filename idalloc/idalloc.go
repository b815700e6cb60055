// Package idalloc maps stable external labels to dense local ids.
//
// Local ids (lids) index storage slots. The lid space is partitioned into
// three contiguous ranges: [0, reserved) is locked and never allocated,
// [reserved, nextID) is the active range holding a mix of bound and freed
// slots, and [nextID, capacity) is pre-allocated headroom. Freed lids are
// reused smallest-first; freeing the tail of the active range shrinks
// nextID back down, never past a still-bound lid.
package idalloc

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	vectorcore "github.com/hupe1980/vectorcore"
)

const (
	// InvalidLabel marks a free slot in the entity array. It cannot be
	// used as a caller label.
	InvalidLabel uint64 = math.MaxUint64

	// NoneStatus is the zero status of a freshly bound slot.
	NoneStatus uint64 = 0

	// DefaultGrowth is the capacity increment used when no growth step is
	// configured.
	DefaultGrowth uint64 = 256
)

// LabelEntity is the per-slot record: the bound label (InvalidLabel when
// the slot is free) and a caller-defined status word.
type LabelEntity struct {
	Label  uint64
	Status uint64
}

// MakeEntities returns n free entities, every slot marked InvalidLabel.
func MakeEntities(n uint64) []LabelEntity {
	ents := make([]LabelEntity, n)
	for i := range ents {
		ents[i].Label = InvalidLabel
	}

	return ents
}

// Manager is the label/lid bookkeeper. It is not safe for concurrent use;
// the owning store serializes access behind its lock.
type Manager struct {
	ids         []LabelEntity
	idMap       map[uint64]uint64
	free        *roaring64.Bitmap
	reservedID  uint64
	nextID      uint64
	growth      uint64
	initialized bool
}

// New creates an uninitialized manager. A growth step of 0 selects
// DefaultGrowth. Mutating operations panic until Initialize is called.
func New(growth uint64) *Manager {
	if growth == 0 {
		growth = DefaultGrowth
	}

	return &Manager{
		idMap:  make(map[uint64]uint64),
		free:   roaring64.New(),
		growth: growth,
	}
}

// Initialize adopts an existing entity array and rebuilds the derived
// state: the label map and the free set, from one scan of the active range
// [reserved, nextID). A nil entities slice starts empty. Calling
// Initialize on an initialized manager is a no-op, not an error.
func (m *Manager) Initialize(entities []LabelEntity, reserved, nextID uint64) error {
	if m.initialized {
		return nil
	}

	if reserved > nextID {
		return fmt.Errorf("%w: reserved %d exceeds next id %d", vectorcore.ErrInvalidArgument, reserved, nextID)
	}

	m.ids = entities
	m.reservedID = reserved
	m.nextID = nextID

	if uint64(len(m.ids)) < nextID+m.growth {
		m.resize(nextID + m.growth)
	}

	for lid := reserved; lid < nextID; lid++ {
		if label := m.ids[lid].Label; label == InvalidLabel {
			m.free.Add(lid)
		} else {
			m.idMap[label] = lid
		}
	}

	m.initialized = true

	return nil
}

// Initialized reports whether Initialize has run.
func (m *Manager) Initialized() bool {
	return m.initialized
}

func (m *Manager) mustInit() {
	if !m.initialized {
		panic("idalloc: mutation on uninitialized manager")
	}
}

// AllocID binds label to a lid: the smallest free lid if any exist,
// otherwise nextID. A label that is already bound fails with
// ErrAlreadyExists; a full backing array fails with ErrResourceExhausted.
func (m *Manager) AllocID(label uint64) (uint64, error) {
	m.mustInit()

	if label == InvalidLabel {
		return 0, fmt.Errorf("%w: label %d is the free-slot sentinel", vectorcore.ErrInvalidArgument, label)
	}

	if lid, ok := m.idMap[label]; ok {
		return lid, fmt.Errorf("%w: label %d already bound to lid %d", vectorcore.ErrAlreadyExists, label, lid)
	}

	var lid uint64

	if !m.free.IsEmpty() {
		lid = m.free.Minimum()
		m.free.Remove(lid)
	} else {
		if m.nextID >= uint64(len(m.ids)) {
			return 0, fmt.Errorf("%w: id space full at %d slots", vectorcore.ErrResourceExhausted, len(m.ids))
		}

		lid = m.nextID
		m.nextID++
	}

	m.ids[lid] = LabelEntity{Label: label, Status: NoneStatus}
	m.idMap[label] = lid

	return lid, nil
}

// FreeID releases the lid bound to label. Unknown labels are a no-op.
func (m *Manager) FreeID(label uint64) {
	m.mustInit()

	if lid, ok := m.idMap[label]; ok {
		m.freeSlot(lid)
	}
}

// FreeLocalID releases lid. Out-of-range or already-free lids are a no-op.
func (m *Manager) FreeLocalID(lid uint64) {
	m.mustInit()

	if lid < m.reservedID || lid >= m.nextID {
		return
	}

	if m.ids[lid].Label == InvalidLabel {
		return
	}

	m.freeSlot(lid)
}

func (m *Manager) freeSlot(lid uint64) {
	delete(m.idMap, m.ids[lid].Label)
	m.ids[lid] = LabelEntity{Label: InvalidLabel, Status: NoneStatus}
	m.free.Add(lid)
	m.shrinkNextID()
}

// shrinkNextID pops freed lids off the tail of the active range, stopping
// at the first bound lid or at the reserved boundary.
func (m *Manager) shrinkNextID() {
	for m.nextID > m.reservedID && m.free.Contains(m.nextID-1) {
		m.nextID--
		m.free.Remove(m.nextID)
	}
}

// Resize grows the backing array to n slots, new slots free. Shrinking is
// not supported; a smaller n is a no-op.
func (m *Manager) Resize(n uint64) {
	m.mustInit()
	m.resize(n)
}

func (m *Manager) resize(n uint64) {
	if n <= uint64(len(m.ids)) {
		return
	}

	grown := make([]LabelEntity, n)
	copy(grown, m.ids)

	for i := uint64(len(m.ids)); i < n; i++ {
		grown[i].Label = InvalidLabel
	}

	m.ids = grown
}

// Grow expands capacity by the configured growth step.
func (m *Manager) Grow() {
	m.mustInit()
	m.resize(uint64(len(m.ids)) + m.growth)
}

// SetReservedID binds label to a lid inside the locked [0, reserved)
// range. It panics if lid is not reserved; reserved slots are set up once
// at store construction, never through AllocID.
func (m *Manager) SetReservedID(lid, label uint64) {
	m.mustInit()

	if lid >= m.reservedID {
		panic(fmt.Sprintf("idalloc: lid %d outside reserved range [0, %d)", lid, m.reservedID))
	}

	m.ids[lid] = LabelEntity{Label: label, Status: NoneStatus}
	m.idMap[label] = lid
}

// LocalID returns the lid bound to label.
func (m *Manager) LocalID(label uint64) (uint64, bool) {
	lid, ok := m.idMap[label]
	return lid, ok
}

// Label returns the label bound to lid.
func (m *Manager) Label(lid uint64) (uint64, bool) {
	if lid >= uint64(len(m.ids)) || m.ids[lid].Label == InvalidLabel {
		return 0, false
	}

	return m.ids[lid].Label, true
}

// Entity returns the slot record at lid.
func (m *Manager) Entity(lid uint64) (LabelEntity, bool) {
	if lid >= uint64(len(m.ids)) {
		return LabelEntity{}, false
	}

	return m.ids[lid], true
}

// Status returns the status word of the slot at lid.
func (m *Manager) Status(lid uint64) (uint64, bool) {
	if lid >= uint64(len(m.ids)) || m.ids[lid].Label == InvalidLabel {
		return 0, false
	}

	return m.ids[lid].Status, true
}

// SetStatus stores a status word at lid. A free or out-of-range lid is a
// no-op.
func (m *Manager) SetStatus(lid, status uint64) {
	m.mustInit()

	if lid >= uint64(len(m.ids)) || m.ids[lid].Label == InvalidLabel {
		return
	}

	m.ids[lid].Status = status
}

// StatusByLabel returns the status word of the slot bound to label.
func (m *Manager) StatusByLabel(label uint64) (uint64, bool) {
	lid, ok := m.idMap[label]
	if !ok {
		return 0, false
	}

	return m.ids[lid].Status, true
}

// SetStatusByLabel stores a status word on the slot bound to label.
// Unknown labels are a no-op.
func (m *Manager) SetStatusByLabel(label, status uint64) {
	m.mustInit()

	if lid, ok := m.idMap[label]; ok {
		m.ids[lid].Status = status
	}
}

// Size returns the number of bound labels, reserved bindings included.
func (m *Manager) Size() uint64 {
	return uint64(len(m.idMap))
}

// Capacity returns the backing array size in slots.
func (m *Manager) Capacity() uint64 {
	return uint64(len(m.ids))
}

// NextID returns the upper bound of the active range.
func (m *Manager) NextID() uint64 {
	return m.nextID
}

// Reserved returns the size of the locked range.
func (m *Manager) Reserved() uint64 {
	return m.reservedID
}

// FreeCount returns the number of freed lids awaiting reuse.
func (m *Manager) FreeCount() uint64 {
	return m.free.GetCardinality()
}

// IDs returns the backing entity array, used by serializers. Callers must
// not mutate it.
func (m *Manager) IDs() []LabelEntity {
	return m.ids
}

// FreeIDs returns a copy of the free lid set.
func (m *Manager) FreeIDs() *roaring64.Bitmap {
	return m.free.Clone()
}

// HoleRatio returns the freed fraction of the active range, the trigger
// input for physical compaction.
func (m *Manager) HoleRatio() float64 {
	active := m.nextID - m.reservedID
	if active == 0 {
		return 0
	}

	return float64(m.free.GetCardinality()) / float64(active)
}

// Rebuild constructs a compacted manager with no holes: every bound lid is
// reassigned densely above the reserved range, preserving labels, statuses,
// and reserved bindings. It returns the new manager and the old-to-new lid
// remapping so the caller can relocate backing storage. The receiver is
// left untouched and keeps serving until the caller swaps it out.
func (m *Manager) Rebuild() (*Manager, map[uint64]uint64, error) {
	compact := New(m.growth)
	if err := compact.Initialize(MakeEntities(m.reservedID+m.growth), m.reservedID, m.reservedID); err != nil {
		return nil, nil, err
	}

	remap := make(map[uint64]uint64, len(m.idMap))

	for lid := uint64(0); lid < m.reservedID; lid++ {
		if ent := m.ids[lid]; ent.Label != InvalidLabel {
			compact.SetReservedID(lid, ent.Label)
			compact.ids[lid].Status = ent.Status
			remap[lid] = lid
		}
	}

	for lid := m.reservedID; lid < m.nextID; lid++ {
		ent := m.ids[lid]
		if ent.Label == InvalidLabel {
			continue
		}

		if compact.nextID >= uint64(len(compact.ids)) {
			compact.resize(uint64(len(compact.ids)) + m.growth)
		}

		newLID, err := compact.AllocID(ent.Label)
		if err != nil {
			return nil, nil, fmt.Errorf("rebuild lid %d: %w", lid, err)
		}

		compact.ids[newLID].Status = ent.Status
		remap[lid] = newLID
	}

	return compact, remap, nil
}
