package netlab

//
// Matrix set statistics
//

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"
)

// AttributeSummary contains statistics about the values of a matrix over
// the adjacency edges (both directions).
type AttributeSummary struct {
	Type   MatrixType
	Min    float64
	Mean   float64
	Median float64
	Max    float64
}

// Summary contains an [AttributeSummary] for each value matrix.
type Summary struct {
	// Nodes is the number of nodes.
	Nodes int

	// Links is the number of undirected links.
	Links int

	// Attributes contains the statistics in canonical matrix order.
	Attributes []AttributeSummary
}

// Summary computes the [Summary] of the set. Sets without links have
// zero-valued statistics.
func (ms *MatrixSet) Summary() (*Summary, error) {
	if err := ms.Validate(); err != nil {
		return nil, err
	}
	edges := ms.Edges()
	out := &Summary{Nodes: ms.NumNodes(), Links: len(edges)}
	for _, mt := range AllMatrixTypes[1:] {
		as := AttributeSummary{Type: mt}
		m := ms.Get(mt)
		var values stats.Float64Data
		for _, e := range edges {
			values = append(values, m[e[0]][e[1]], m[e[1]][e[0]])
		}
		if len(values) > 0 {
			var err error
			if as.Min, err = values.Min(); err != nil {
				return nil, err
			}
			if as.Mean, err = values.Mean(); err != nil {
				return nil, err
			}
			if as.Median, err = values.Median(); err != nil {
				return nil, err
			}
			if as.Max, err = values.Max(); err != nil {
				return nil, err
			}
		}
		out.Attributes = append(out.Attributes, as)
	}
	return out, nil
}

// String implements fmt.Stringer
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d nodes, %d links", s.Nodes, s.Links)
	for _, as := range s.Attributes {
		fmt.Fprintf(&b, "; %s min/mean/median/max %s/%s/%s/%s", as.Type,
			formatNumber(as.Min), formatNumber(as.Mean),
			formatNumber(as.Median), formatNumber(as.Max))
	}
	return b.String()
}
