package games

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dargueta/rompatch"
)

// Pool is a set of interchangeable team slots in a target, e.g. the club
// teams or the national teams. Every slot has a label that's unique within the
// pool; labels and indices map one-to-one.
type Pool struct {
	Name   string
	labels []string
	lookup map[string]int
}

// NewPool creates a pool with one slot per label. Labels are matched
// case-insensitively, so two labels differing only in case are duplicates.
func NewPool(name string, labels []string) (*Pool, error) {
	pool := &Pool{
		Name:   name,
		labels: append([]string(nil), labels...),
		lookup: make(map[string]int, len(labels)),
	}

	for i, label := range labels {
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("pool %q: slot %d has an empty label", name, i))
		}
		if previous, exists := pool.lookup[key]; exists {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf(
					"pool %q: slots %d and %d are both labeled %q",
					name,
					previous,
					i,
					label))
		}
		pool.lookup[key] = i
	}
	return pool, nil
}

// NumberedPool creates a pool of `size` slots labeled with `prefix` and a
// 1-based, zero-padded slot number, like "ML01".
func NumberedPool(name, prefix string, size int) *Pool {
	labels := make([]string, size)
	for i := range labels {
		labels[i] = fmt.Sprintf("%s%02d", prefix, i+1)
	}

	pool, err := NewPool(name, labels)
	if err != nil {
		// Generated labels are always unique.
		panic(err)
	}
	return pool
}

// Size is the number of slots in the pool.
func (p *Pool) Size() int {
	return len(p.labels)
}

// Label gives the label of the slot at `index`.
func (p *Pool) Label(index int) string {
	if index < 0 || index >= len(p.labels) {
		return fmt.Sprintf("%s#%d", p.Name, index)
	}
	return p.labels[index]
}

// Lookup finds a slot by its label.
func (p *Pool) Lookup(label string) (int, bool) {
	index, ok := p.lookup[strings.ToLower(strings.TrimSpace(label))]
	return index, ok
}

// Slot builds the ID of the slot at `index`.
func (p *Pool) Slot(index int) (rompatch.SlotID, error) {
	if index < 0 || index >= len(p.labels) {
		return rompatch.SlotID{}, rompatch.ErrNotFound.WithMessage(
			fmt.Sprintf("pool %q has no slot %d; valid range is [0, %d)", p.Name, index, len(p.labels)))
	}
	return rompatch.SlotID{Pool: p.Name, Index: index}, nil
}

// Resolve finds a slot given either its label or its 0-based index.
func (p *Pool) Resolve(ref string) (rompatch.SlotID, error) {
	if index, ok := p.Lookup(ref); ok {
		return p.Slot(index)
	}
	if index, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil {
		return p.Slot(index)
	}
	return rompatch.SlotID{}, rompatch.ErrNotFound.WithMessage(
		fmt.Sprintf("pool %q has no slot labeled %q", p.Name, ref))
}

// ParseSlot resolves a "pool:slot" reference against a target. If the pool
// is omitted the target's default pool is used.
func ParseSlot(target Target, ref string) (rompatch.SlotID, error) {
	poolName, slotRef, found := strings.Cut(ref, ":")
	if !found {
		poolName, slotRef = target.DefaultPool(), ref
	}

	pool, err := target.Pool(poolName)
	if err != nil {
		return rompatch.SlotID{}, err
	}
	return pool.Resolve(slotRef)
}
