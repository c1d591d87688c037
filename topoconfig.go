package netlab

//
// Topology configuration and family generation
//

import (
	"fmt"
)

// TopologyConfig describes a topology or a family of topologies. Use either
// Attributes (array description) or MatrixFile (JSON description).
type TopologyConfig struct {
	// Name is the OPTIONAL topology name.
	Name string

	// Nodes is the number of nodes. It is MANDATORY for the array
	// description and OPTIONAL for the JSON description, where, if
	// set, it must match the dimension of the loaded matrices.
	Nodes int

	// Family is the topology family used by the array description.
	Family Family

	// Attributes contains the link attributes of the array description.
	Attributes []LinkAttribute

	// MatrixFile is the OPTIONAL path of a precomputed matrix-set file.
	MatrixFile string
}

// Compound returns whether the configuration describes more than one
// topology, i.e., whether at least one attribute is stepped.
func (tc *TopologyConfig) Compound() bool {
	for idx := range tc.Attributes {
		if tc.Attributes[idx].Stepped() {
			return true
		}
	}
	return false
}

// GenerateMatrixSets generates the [MatrixSet]s described by the config.
//
// With the JSON description, we load a single [MatrixSet] from the file and
// any failure is fatal. With the array description, we generate the family
// adjacency and fill the value matrices. In both cases, we clamp out-of-range
// values and log an error for each of them. When
// some attributes are stepped, the result is the cross product of all the
// stepped attributes (a compound topology).
//
// Arguments:
//
// - tc is the topology configuration;
//
// - limits contains the clamping limits (zero fields use the defaults);
//
// - logger is the logger to use.
func GenerateMatrixSets(tc *TopologyConfig, limits Limits, logger Logger) ([]*MatrixSet, error) {
	if tc == nil {
		return nil, fmt.Errorf("%w: missing topology config", ErrConfig)
	}

	if tc.MatrixFile != "" {
		ms, err := LoadMatrixFile(tc.MatrixFile)
		if err != nil {
			return nil, err
		}
		if tc.Nodes > 0 && tc.Nodes != ms.NumNodes() {
			return nil, fmt.Errorf("%w: %s: expected %d nodes, found %d",
				ErrConfig, tc.MatrixFile, tc.Nodes, ms.NumNodes())
		}
		ms.Name, ms.Family = tc.Name, tc.Family
		limits = limits.withDefaults()
		for _, mt := range AllMatrixTypes[1:] {
			clampMatrix(ms.Get(mt), mt, limits.max(mt), logger)
		}
		return []*MatrixSet{ms}, nil
	}

	adj, err := tc.Family.Adjacency(tc.Nodes)
	if err != nil {
		return nil, err
	}
	base := &MatrixSet{Name: tc.Name, Family: tc.Family, Adjacency: adj}

	if len(tc.Attributes) <= 0 {
		logger.Warnf("netlab: topology %q has no link attributes; using zero-valued matrices", tc.Name)
	}
	variants, err := valueVariants(adj, tc.Attributes, limits.withDefaults(), logger)
	if err != nil {
		return nil, err
	}

	sets := crossProduct(base, variants)
	logger.Debugf("netlab: topology %q: %d matrix set(s) generated", tc.Name, len(sets))
	return sets, nil
}
