package netlab

//
// Errors
//

import (
	"errors"
	"fmt"
)

// ErrConfig indicates a malformed or missing topology or node configuration.
var ErrConfig = errors.New("netlab: invalid configuration")

// ErrTopologyIntegrity indicates that the adjacency matrix is missing or
// that the matrices of a [MatrixSet] do not share the same dimension.
var ErrTopologyIntegrity = errors.New("netlab: topology integrity violation")

// ErrRoutingSetup indicates that a [RoutingStrategy] failed to set up routes.
var ErrRoutingSetup = errors.New("netlab: routing setup failed")

// ErrExhausted indicates that a [TopologyIterator] has no more topologies.
var ErrExhausted = errors.New("netlab: no more topologies")

// ErrInvalidState indicates an operation not allowed in the current [RealizerState].
var ErrInvalidState = errors.New("netlab: invalid realizer state")

// ErrLinkTableMiss indicates that the [LinkIPTable] lacks a required pair.
var ErrLinkTableMiss = errors.New("netlab: no such link in link table")

// ErrUnsupportedFamily indicates an unknown topology family tag or a node
// count the family cannot be generated for.
var ErrUnsupportedFamily = errors.New("netlab: unsupported topology family")

// ErrSubnetExhausted indicates that the subnet window cannot fit another link.
var ErrSubnetExhausted = errors.New("netlab: subnet window exhausted")

// SetupDegradation describes a host command that failed while setting up
// the network. Degradations are logged and collected but they do not
// cause the enclosing operation to fail.
type SetupDegradation struct {
	// Stage is the setup stage (e.g., "shaping", "routing", "forwarding").
	Stage string

	// Host is the name of the host where the command failed.
	Host string

	// Command is the failed command.
	Command string

	// Err is the error that occurred.
	Err error
}

// String implements fmt.Stringer
func (sd *SetupDegradation) String() string {
	return fmt.Sprintf("%s: %s: %s: %s", sd.Stage, sd.Host, sd.Command, sd.Err)
}
