package netlab

//
// Link attribute matrices
//

import (
	"fmt"
	"strconv"
	"strings"
)

// MatrixType identifies one of the matrices inside a [MatrixSet].
type MatrixType int

const (
	// MatrixAdjacency is the 0/1 adjacency matrix.
	MatrixAdjacency = MatrixType(0)

	// MatrixBandwidth contains the per-direction bandwidth in Mbps.
	MatrixBandwidth = MatrixType(1)

	// MatrixLoss contains the per-direction packet loss in percent.
	MatrixLoss = MatrixType(2)

	// MatrixLatency contains the per-direction one-way delay in milliseconds.
	MatrixLatency = MatrixType(3)

	// MatrixJitter contains the per-direction jitter in milliseconds.
	MatrixJitter = MatrixType(4)
)

// AllMatrixTypes lists all the [MatrixType] values in canonical order.
var AllMatrixTypes = []MatrixType{
	MatrixAdjacency,
	MatrixBandwidth,
	MatrixLoss,
	MatrixLatency,
	MatrixJitter,
}

// String implements fmt.Stringer
func (mt MatrixType) String() string {
	switch mt {
	case MatrixAdjacency:
		return "adjacency"
	case MatrixBandwidth:
		return "bandwidth"
	case MatrixLoss:
		return "loss"
	case MatrixLatency:
		return "latency"
	case MatrixJitter:
		return "jitter"
	default:
		return "matrix(" + strconv.Itoa(int(mt)) + ")"
	}
}

// Matrix is an NxN table of non-negative numbers indexed by node id. Row i,
// column j describes the direction from node i to node j.
type Matrix [][]float64

// NewMatrix returns a zero-filled NxN [Matrix].
func NewMatrix(n int) Matrix {
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

// Dim returns the matrix dimension.
func (m Matrix) Dim() int {
	return len(m)
}

// square returns whether every row has exactly Dim entries.
func (m Matrix) square() bool {
	for _, row := range m {
		if len(row) != len(m) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the matrix.
func (m Matrix) Clone() Matrix {
	if m == nil {
		return nil
	}
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Equal returns whether two matrices contain exactly the same values.
func (m Matrix) Equal(other Matrix) bool {
	if len(m) != len(other) || (m == nil) != (other == nil) {
		return false
	}
	for i := range m {
		if len(m[i]) != len(other[i]) {
			return false
		}
		for j := range m[i] {
			if m[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

// Linked returns whether nodes i and j are connected. Link existence is
// symmetric even when the matrix is stored asymmetrically.
func (m Matrix) Linked(i, j int) bool {
	return i != j && (m[i][j] != 0 || m[j][i] != 0)
}

// String implements fmt.Stringer
func (m Matrix) String() string {
	var b strings.Builder
	for _, row := range m {
		for j, v := range row {
			if j > 0 {
				b.WriteString(" ")
			}
			b.WriteString(formatNumber(v))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatNumber formats a float using the shortest representation.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MatrixSet is a concrete topology instance: the adjacency matrix plus the
// four link attribute matrices, all sharing the same dimension.
type MatrixSet struct {
	// Name is the OPTIONAL topology name.
	Name string

	// Family is the OPTIONAL family that generated this set.
	Family Family

	// Adjacency is the MANDATORY adjacency matrix.
	Adjacency Matrix

	// Bandwidth is the bandwidth matrix (Mbps).
	Bandwidth Matrix

	// Loss is the loss matrix (percent).
	Loss Matrix

	// Latency is the latency matrix (ms).
	Latency Matrix

	// Jitter is the jitter matrix (ms).
	Jitter Matrix
}

// Get returns the matrix of the given type or nil.
func (ms *MatrixSet) Get(mt MatrixType) Matrix {
	switch mt {
	case MatrixAdjacency:
		return ms.Adjacency
	case MatrixBandwidth:
		return ms.Bandwidth
	case MatrixLoss:
		return ms.Loss
	case MatrixLatency:
		return ms.Latency
	case MatrixJitter:
		return ms.Jitter
	default:
		return nil
	}
}

// Set replaces the matrix of the given type.
func (ms *MatrixSet) Set(mt MatrixType, m Matrix) {
	switch mt {
	case MatrixAdjacency:
		ms.Adjacency = m
	case MatrixBandwidth:
		ms.Bandwidth = m
	case MatrixLoss:
		ms.Loss = m
	case MatrixLatency:
		ms.Latency = m
	case MatrixJitter:
		ms.Jitter = m
	}
}

// NumNodes returns the number of nodes, i.e., the adjacency dimension.
func (ms *MatrixSet) NumNodes() int {
	return ms.Adjacency.Dim()
}

// Validate checks that the adjacency matrix exists and that all the
// matrices are square and share its dimension.
func (ms *MatrixSet) Validate() error {
	if ms == nil || ms.Adjacency == nil {
		return fmt.Errorf("%w: missing adjacency matrix", ErrTopologyIntegrity)
	}
	n := ms.Adjacency.Dim()
	for _, mt := range AllMatrixTypes {
		m := ms.Get(mt)
		if m == nil {
			return fmt.Errorf("%w: missing %s matrix", ErrTopologyIntegrity, mt)
		}
		if m.Dim() != n || !m.square() {
			return fmt.Errorf("%w: %s matrix is not %dx%d", ErrTopologyIntegrity, mt, n, n)
		}
	}
	return nil
}

// Equal returns whether the five matrices are identical. Name and family
// do not matter because they do not affect the realized network.
func (ms *MatrixSet) Equal(other *MatrixSet) bool {
	if ms == nil || other == nil {
		return ms == other
	}
	for _, mt := range AllMatrixTypes {
		if !ms.Get(mt).Equal(other.Get(mt)) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the set.
func (ms *MatrixSet) Clone() *MatrixSet {
	out := &MatrixSet{Name: ms.Name, Family: ms.Family}
	for _, mt := range AllMatrixTypes {
		out.Set(mt, ms.Get(mt).Clone())
	}
	return out
}

// Edges returns the adjacency edges (i, j), i < j, in row-major
// upper-triangle order. This is the order in which links are created. An
// edge stored only in the lower triangle still counts (see [Matrix.Linked]).
func (ms *MatrixSet) Edges() [][2]int {
	var edges [][2]int
	n := ms.NumNodes()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if ms.Adjacency.Linked(i, j) {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return edges
}

// String implements fmt.Stringer
func (ms *MatrixSet) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "topology %q (%s, %d nodes)\n", ms.Name, ms.Family, ms.NumNodes())
	for _, mt := range AllMatrixTypes {
		fmt.Fprintf(&b, "%s:\n%s", mt, ms.Get(mt))
	}
	return b.String()
}
