package netlab

//
// Topology iteration
//

import "fmt"

// TopologyIterator is a forward-only cursor over the [MatrixSet]s of a
// topology. There is no way to rewind: construct a new iterator for each
// test case. The zero value is an exhausted iterator.
type TopologyIterator struct {
	sets []*MatrixSet
	next int
}

// NewTopologyIterator creates a [TopologyIterator] over the given sets.
func NewTopologyIterator(sets ...*MatrixSet) *TopologyIterator {
	return &TopologyIterator{sets: sets}
}

// NewTopologyIteratorFromConfig generates the sets described by tc using
// [GenerateMatrixSets] and returns an iterator over them.
func NewTopologyIteratorFromConfig(tc *TopologyConfig, limits Limits, logger Logger) (*TopologyIterator, error) {
	sets, err := GenerateMatrixSets(tc, limits, logger)
	if err != nil {
		return nil, err
	}
	return NewTopologyIterator(sets...), nil
}

// HasNext returns whether [TopologyIterator.Next] would return a set.
func (ti *TopologyIterator) HasNext() bool {
	return ti.next < len(ti.sets)
}

// Next returns the next [MatrixSet] or [ErrExhausted].
func (ti *TopologyIterator) Next() (*MatrixSet, error) {
	if !ti.HasNext() {
		return nil, fmt.Errorf("%w: all %d consumed", ErrExhausted, len(ti.sets))
	}
	ms := ti.sets[ti.next]
	ti.next++
	return ms, nil
}

// Len returns the total number of sets.
func (ti *TopologyIterator) Len() int {
	return len(ti.sets)
}

// Index returns the number of sets already returned by Next.
func (ti *TopologyIterator) Index() int {
	return ti.next
}

// Compound returns whether the iterator covers more than one set.
func (ti *TopologyIterator) Compound() bool {
	return len(ti.sets) > 1
}
