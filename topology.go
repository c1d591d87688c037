package netlab

//
// Network topologies
//

import (
	"fmt"
	"strings"
)

// Family is a topology family: a deterministic rule that derives the
// adjacency matrix from the number of nodes.
type Family string

const (
	// FamilyLinear is a chain where node i connects to nodes i-1 and i+1.
	FamilyLinear = Family("linear")

	// FamilyMesh is a full mesh where every node connects to every other node.
	FamilyMesh = Family("mesh")

	// FamilyStar is a star where node 0 is the center and every other
	// node only connects to the center.
	FamilyStar = Family("star")

	// FamilyTree is a binary tree rooted at node 0 where node i > 0
	// connects to its parent (i-1)/2.
	FamilyTree = Family("tree")

	// FamilyButterfly is the seven-node butterfly network used to study
	// network coding: a source (0) feeds two relays (1, 2) that share a
	// bottleneck (3 -> 4) and that also reach one sink each (5, 6).
	FamilyButterfly = Family("butterfly")
)

// butterflyNodes is the only node count supported by [FamilyButterfly].
const butterflyNodes = 7

// butterflyEdges contains the undirected edges of [FamilyButterfly].
var butterflyEdges = [][2]int{
	{0, 1}, {0, 2},
	{1, 3}, {2, 3},
	{3, 4},
	{1, 5}, {2, 6},
	{4, 5}, {4, 6},
}

// ParseFamily parses a topology family tag (case insensitive).
func ParseFamily(value string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(value))); f {
	case FamilyLinear, FamilyMesh, FamilyStar, FamilyTree, FamilyButterfly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFamily, value)
	}
}

// Adjacency generates the symmetric adjacency matrix of the family for the
// given number of nodes. The result only depends on the arguments.
func (f Family) Adjacency(n int) (Matrix, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %s needs at least one node, got %d", ErrConfig, f, n)
	}
	m := NewMatrix(n)
	connect := func(i, j int) {
		m[i][j], m[j][i] = 1, 1
	}

	switch f {
	case FamilyLinear:
		for i := 0; i+1 < n; i++ {
			connect(i, i+1)
		}

	case FamilyMesh:
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				connect(i, j)
			}
		}

	case FamilyStar:
		for i := 1; i < n; i++ {
			connect(0, i)
		}

	case FamilyTree:
		for i := 1; i < n; i++ {
			connect((i-1)/2, i)
		}

	case FamilyButterfly:
		if n != butterflyNodes {
			return nil, fmt.Errorf("%w: butterfly needs %d nodes, got %d",
				ErrUnsupportedFamily, butterflyNodes, n)
		}
		for _, e := range butterflyEdges {
			connect(e[0], e[1])
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFamily, string(f))
	}

	return m, nil
}
