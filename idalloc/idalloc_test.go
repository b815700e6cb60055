package idalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vectorcore "github.com/hupe1980/vectorcore"
)

func newInitialized(t *testing.T, reserved uint64) *Manager {
	t.Helper()

	m := New(0)
	require.NoError(t, m.Initialize(nil, reserved, reserved))

	return m
}

func TestInitialize(t *testing.T) {
	t.Run("Fresh", func(t *testing.T) {
		m := New(0)
		require.NoError(t, m.Initialize(nil, 1, 1))

		assert.True(t, m.Initialized())
		assert.Equal(t, uint64(1), m.Reserved())
		assert.Equal(t, uint64(1), m.NextID())
		assert.Equal(t, uint64(0), m.Size())
		assert.Equal(t, 1+DefaultGrowth, m.Capacity())
	})

	t.Run("Idempotent", func(t *testing.T) {
		m := newInitialized(t, 1)

		_, err := m.AllocID(100)
		require.NoError(t, err)

		// A second Initialize must not reset state.
		require.NoError(t, m.Initialize(nil, 0, 0))
		lid, ok := m.LocalID(100)
		assert.True(t, ok)
		assert.Equal(t, uint64(1), lid)
	})

	t.Run("ReservedBeyondNextID", func(t *testing.T) {
		m := New(0)
		assert.ErrorIs(t, m.Initialize(nil, 5, 2), vectorcore.ErrInvalidArgument)
	})

	t.Run("AdoptExistingEntities", func(t *testing.T) {
		ents := MakeEntities(8)
		ents[1] = LabelEntity{Label: 100, Status: NoneStatus}
		ents[3] = LabelEntity{Label: 300, Status: 7}

		m := New(4)
		require.NoError(t, m.Initialize(ents, 1, 4))

		// Slot 2 was free inside the active range, so it is the first
		// lid handed out.
		lid, err := m.AllocID(200)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), lid)

		lid, ok := m.LocalID(300)
		require.True(t, ok)
		assert.Equal(t, uint64(3), lid)

		status, ok := m.Status(3)
		require.True(t, ok)
		assert.Equal(t, uint64(7), status)
	})
}

func TestAllocID(t *testing.T) {
	t.Run("SequentialAboveReserved", func(t *testing.T) {
		m := newInitialized(t, 1)

		for i := uint64(0); i < 5; i++ {
			lid, err := m.AllocID(100 + i)
			require.NoError(t, err)
			assert.Equal(t, 1+i, lid)
		}

		assert.Equal(t, uint64(5), m.Size())
		assert.Equal(t, uint64(6), m.NextID())
	})

	t.Run("DuplicateLabel", func(t *testing.T) {
		m := newInitialized(t, 0)

		_, err := m.AllocID(42)
		require.NoError(t, err)

		lid, err := m.AllocID(42)
		assert.ErrorIs(t, err, vectorcore.ErrAlreadyExists)
		assert.Equal(t, uint64(0), lid)
	})

	t.Run("SentinelLabel", func(t *testing.T) {
		m := newInitialized(t, 0)

		_, err := m.AllocID(InvalidLabel)
		assert.ErrorIs(t, err, vectorcore.ErrInvalidArgument)
	})

	t.Run("Exhaustion", func(t *testing.T) {
		m := New(2)
		require.NoError(t, m.Initialize(nil, 0, 0))

		for i := uint64(0); i < m.Capacity(); i++ {
			_, err := m.AllocID(i)
			require.NoError(t, err)
		}

		_, err := m.AllocID(999)
		assert.ErrorIs(t, err, vectorcore.ErrResourceExhausted)

		// Growth reopens allocation.
		m.Grow()
		_, err = m.AllocID(999)
		assert.NoError(t, err)
	})

	t.Run("ZeroLabelIsValid", func(t *testing.T) {
		m := newInitialized(t, 0)

		lid, err := m.AllocID(0)
		require.NoError(t, err)

		got, ok := m.LocalID(0)
		assert.True(t, ok)
		assert.Equal(t, lid, got)
	})
}

func TestFreeAndReuse(t *testing.T) {
	t.Run("FreedLidIsReallocated", func(t *testing.T) {
		m := newInitialized(t, 1)

		lid, err := m.AllocID(100)
		require.NoError(t, err)

		m.FreeID(100)
		_, ok := m.LocalID(100)
		assert.False(t, ok)

		again, err := m.AllocID(100)
		require.NoError(t, err)
		assert.Equal(t, lid, again)
	})

	t.Run("SmallestFirst", func(t *testing.T) {
		m := newInitialized(t, 0)

		for i := uint64(0); i < 5; i++ {
			_, err := m.AllocID(i)
			require.NoError(t, err)
		}

		m.FreeID(3)
		m.FreeID(1)

		lid, err := m.AllocID(10)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), lid)

		lid, err = m.AllocID(11)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), lid)
	})

	t.Run("UnknownLabelNoop", func(t *testing.T) {
		m := newInitialized(t, 0)
		m.FreeID(12345)
		assert.Equal(t, uint64(0), m.FreeCount())
	})

	t.Run("FreeLocalIDOutOfRange", func(t *testing.T) {
		m := newInitialized(t, 1)

		_, err := m.AllocID(100)
		require.NoError(t, err)

		m.FreeLocalID(0)  // reserved
		m.FreeLocalID(99) // beyond active range
		assert.Equal(t, uint64(1), m.Size())
	})

	t.Run("FreeResetsStatus", func(t *testing.T) {
		m := newInitialized(t, 0)

		lid, err := m.AllocID(7)
		require.NoError(t, err)
		m.SetStatus(lid, 1)

		m.FreeLocalID(lid)

		again, err := m.AllocID(8)
		require.NoError(t, err)
		require.Equal(t, lid, again)

		status, ok := m.Status(again)
		require.True(t, ok)
		assert.Equal(t, NoneStatus, status)
	})
}

func TestShrinkNextID(t *testing.T) {
	t.Run("TrailingFreesShrink", func(t *testing.T) {
		m := newInitialized(t, 1)

		for i := uint64(0); i < 4; i++ {
			_, err := m.AllocID(100 + i)
			require.NoError(t, err)
		}
		require.Equal(t, uint64(5), m.NextID())

		m.FreeID(103)
		m.FreeID(102)

		assert.Equal(t, uint64(3), m.NextID())
		assert.Equal(t, uint64(0), m.FreeCount())
	})

	t.Run("NonTrailingFreeDoesNotShrink", func(t *testing.T) {
		m := newInitialized(t, 1)

		for i := uint64(0); i < 4; i++ {
			_, err := m.AllocID(100 + i)
			require.NoError(t, err)
		}

		m.FreeID(101)

		assert.Equal(t, uint64(5), m.NextID())
		assert.Equal(t, uint64(1), m.FreeCount())
	})

	t.Run("CascadeThroughEarlierHole", func(t *testing.T) {
		m := newInitialized(t, 0)

		for i := uint64(0); i < 4; i++ {
			_, err := m.AllocID(i)
			require.NoError(t, err)
		}

		// Free 2 first (non-trailing once 3 exists), then 3. Freeing 3
		// cascades through the hole at 2.
		m.FreeID(2)
		require.Equal(t, uint64(4), m.NextID())

		m.FreeID(3)
		assert.Equal(t, uint64(2), m.NextID())
	})

	t.Run("StopsAtReserved", func(t *testing.T) {
		m := newInitialized(t, 2)

		_, err := m.AllocID(100)
		require.NoError(t, err)

		m.FreeID(100)
		assert.Equal(t, uint64(2), m.NextID())
	})
}

func TestReservedRange(t *testing.T) {
	t.Run("SetReservedID", func(t *testing.T) {
		m := newInitialized(t, 2)

		m.SetReservedID(0, 9000)
		m.SetReservedID(1, 9001)

		lid, ok := m.LocalID(9000)
		require.True(t, ok)
		assert.Equal(t, uint64(0), lid)

		label, ok := m.Label(1)
		require.True(t, ok)
		assert.Equal(t, uint64(9001), label)
	})

	t.Run("PanicsOutsideReserved", func(t *testing.T) {
		m := newInitialized(t, 1)
		assert.Panics(t, func() { m.SetReservedID(1, 9000) })
	})
}

func TestStatus(t *testing.T) {
	m := newInitialized(t, 0)

	lid, err := m.AllocID(100)
	require.NoError(t, err)

	status, ok := m.Status(lid)
	require.True(t, ok)
	assert.Equal(t, NoneStatus, status)

	m.SetStatus(lid, 1)
	status, ok = m.StatusByLabel(100)
	require.True(t, ok)
	assert.Equal(t, uint64(1), status)

	m.SetStatusByLabel(100, 2)
	status, _ = m.Status(lid)
	assert.Equal(t, uint64(2), status)

	t.Run("MissIsNoop", func(t *testing.T) {
		m.SetStatus(42, 1)
		m.SetStatusByLabel(42, 1)

		_, ok := m.Status(42)
		assert.False(t, ok)
		_, ok = m.StatusByLabel(42)
		assert.False(t, ok)
	})
}

func TestMutationBeforeInitializePanics(t *testing.T) {
	m := New(0)

	assert.Panics(t, func() { _, _ = m.AllocID(1) })
	assert.Panics(t, func() { m.FreeID(1) })
	assert.Panics(t, func() { m.Grow() })
}

func TestHoleRatio(t *testing.T) {
	m := newInitialized(t, 1)

	assert.Equal(t, 0.0, m.HoleRatio())

	for i := uint64(0); i < 4; i++ {
		_, err := m.AllocID(100 + i)
		require.NoError(t, err)
	}

	m.FreeID(101) // non-trailing hole
	assert.InDelta(t, 0.25, m.HoleRatio(), 1e-9)
}

func TestRebuild(t *testing.T) {
	m := newInitialized(t, 1)

	for i := uint64(0); i < 6; i++ {
		_, err := m.AllocID(100 + i)
		require.NoError(t, err)
	}

	m.SetStatusByLabel(104, 1)
	m.FreeID(101)
	m.FreeID(103)
	require.Equal(t, uint64(2), m.FreeCount())

	compact, remap, err := m.Rebuild()
	require.NoError(t, err)

	// The compacted manager has no holes and the same live bindings.
	assert.Equal(t, uint64(0), compact.FreeCount())
	assert.Equal(t, m.Size(), compact.Size())
	assert.Equal(t, compact.Reserved()+m.Size(), compact.NextID())

	for _, label := range []uint64{100, 102, 104, 105} {
		oldLID, ok := m.LocalID(label)
		require.True(t, ok)

		newLID, ok := compact.LocalID(label)
		require.True(t, ok)
		assert.Equal(t, newLID, remap[oldLID], "label %d", label)
	}

	status, ok := compact.StatusByLabel(104)
	require.True(t, ok)
	assert.Equal(t, uint64(1), status)

	// The original keeps serving unchanged.
	assert.Equal(t, uint64(2), m.FreeCount())
}
