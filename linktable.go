package netlab

//
// Link IP table
//

import (
	"fmt"
	"net/netip"
	"sort"
)

// LinkKey is an ordered pair of host names.
type LinkKey struct {
	// From is the name of the host looking at the link.
	From string

	// To is the name of the host on the other side.
	To string
}

// LinkIPTable maps (A, B) to the address of B's interface facing A. For
// every link, (A, B) and (B, A) map to the two distinct addresses of the
// link subnet. The table only contains entries for adjacency edges.
type LinkIPTable map[LinkKey]netip.Addr

// Lookup returns the address of b's interface facing a.
func (t LinkIPTable) Lookup(a, b Host) (netip.Addr, bool) {
	addr, found := t[LinkKey{From: a.Name(), To: b.Name()}]
	return addr, found
}

// MustLookup is like Lookup but returns [ErrLinkTableMiss] when the
// pair is not in the table.
func (t LinkIPTable) MustLookup(a, b Host) (netip.Addr, error) {
	addr, found := t.Lookup(a, b)
	if !found {
		return netip.Addr{}, fmt.Errorf("%w: (%s, %s)", ErrLinkTableMiss, a.Name(), b.Name())
	}
	return addr, nil
}

// Clone returns a copy of the table.
func (t LinkIPTable) Clone() LinkIPTable {
	out := make(LinkIPTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Keys returns the table keys sorted by From and then To.
func (t LinkIPTable) Keys() []LinkKey {
	keys := make([]LinkKey, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].From != keys[j].From {
			return keys[i].From < keys[j].From
		}
		return keys[i].To < keys[j].To
	})
	return keys
}
