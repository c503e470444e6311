// Slot allocator

package orchestrator

import (
	"fmt"

	"github.com/boljen/go-bitmap"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/games"
)

// SlotAllocator hands out the slots of one pool, lowest index first.
type SlotAllocator struct {
	Pool             *games.Pool
	AllocationBitmap bitmap.Bitmap
	allocated        int
}

// NewSlotAllocator creates an allocator with every slot of the pool free.
func NewSlotAllocator(pool *games.Pool) *SlotAllocator {
	return &SlotAllocator{
		Pool:             pool,
		AllocationBitmap: bitmap.New(pool.Size()),
	}
}

// Available gives the number of free slots.
func (alloc *SlotAllocator) Available() int {
	return alloc.Pool.Size() - alloc.allocated
}

// IsAllocated reports whether the slot at `index` is taken. Out of range
// indices are never allocated.
func (alloc *SlotAllocator) IsAllocated(index int) bool {
	if index < 0 || index >= alloc.Pool.Size() {
		return false
	}
	return alloc.AllocationBitmap.Get(index)
}

// Reserve allocates a specific slot, e.g. one a team was pinned to.
func (alloc *SlotAllocator) Reserve(index int) (rompatch.SlotID, error) {
	slot, err := alloc.Pool.Slot(index)
	if err != nil {
		return slot, err
	}
	if alloc.AllocationBitmap.Get(index) {
		return slot, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("slot %s (%s) is already taken", slot, alloc.Pool.Label(index)))
	}

	alloc.AllocationBitmap.Set(index, true)
	alloc.allocated++
	return slot, nil
}

// AllocateNext allocates the first free slot it finds. If the pool is full it
// returns [rompatch.ErrNoSpace].
func (alloc *SlotAllocator) AllocateNext() (rompatch.SlotID, error) {
	for i := 0; i < alloc.Pool.Size(); i++ {
		if !alloc.AllocationBitmap.Get(i) {
			return alloc.Reserve(i)
		}
	}
	return rompatch.SlotID{}, rompatch.ErrNoSpace.WithMessage(
		fmt.Sprintf("all %d slots of pool %q are taken", alloc.Pool.Size(), alloc.Pool.Name))
}

// Free releases a slot. Freeing a slot that isn't allocated is an error.
func (alloc *SlotAllocator) Free(index int) error {
	if _, err := alloc.Pool.Slot(index); err != nil {
		return err
	}
	if !alloc.AllocationBitmap.Get(index) {
		return rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("slot %d of pool %q is already free", index, alloc.Pool.Name))
	}

	alloc.AllocationBitmap.Set(index, false)
	alloc.allocated--
	return nil
}
