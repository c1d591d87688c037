package netlab

//
// Data model
//

import (
	"io"
)

// Logger is the logger we're using.
type Logger interface {
	// Debugf formats and emits a debug message.
	Debugf(format string, v ...any)

	// Debug emits a debug message.
	Debug(message string)

	// Infof formats and emits an informational message.
	Infof(format string, v ...any)

	// Info emits an informational message.
	Info(message string)

	// Warnf formats and emits a warning message.
	Warnf(format string, v ...any)

	// Warn emits a warning message.
	Warn(message string)

	// Errorf formats and emits an error message.
	Errorf(format string, v ...any)

	// Error emits an error message.
	Error(message string)
}

// Host is a provisioned network endpoint on which we can run commands.
//
// All methods are blocking. A [Host] is owned by the [Realizer] that
// provisioned it, which is the only component allowed to destroy it.
type Host interface {
	// Name returns the unique host name (e.g., "h0").
	Name() string

	// IP returns the host's primary IP address or the empty string
	// when the host has not been assigned any address yet.
	IP() string

	// Cmd runs a shell command and returns its combined output.
	Cmd(command string) (string, error)

	// CmdPrint is like Cmd but also logs the command and its output.
	CmdPrint(command string) (string, error)

	// Popen starts a command in the background and returns a reader
	// for its standard output. Closing the reader kills the command.
	Popen(command string) (io.ReadCloser, error)

	// DeleteIntfs removes all the link interfaces owned by the host.
	DeleteIntfs() error

	// Cleanup removes the queueing disciplines installed on the host's
	// link interfaces, skipping the kernel built-in ones.
	Cleanup() error
}

// NodeSpec describes a node to provision using a [Backend].
type NodeSpec struct {
	// Name is the MANDATORY unique node name.
	Name string

	// Image is the OPTIONAL container image.
	Image string

	// Volumes contains OPTIONAL volume mappings.
	Volumes []string

	// Capabilities contains OPTIONAL extra capabilities (e.g., NET_ADMIN).
	Capabilities []string

	// Ports contains OPTIONAL port mappings.
	Ports []string
}

// LinkParams contains the parameters of one endpoint of a link.
type LinkParams struct {
	// Interface is the MANDATORY interface name to create.
	Interface string

	// Address is the MANDATORY interface address in CIDR notation.
	Address string
}

// LinkHandle describes a link created by a [Backend].
type LinkHandle struct {
	// Intf1 is the name of the interface on the first host.
	Intf1 string

	// Intf2 is the name of the interface on the second host.
	Intf2 string
}

// Backend provisions nodes and links. This is the boundary between the
// topology realization logic and a specific runtime (network namespaces,
// containers, virtual machines).
type Backend interface {
	// AddNode provisions a new node and returns the corresponding [Host].
	AddNode(spec *NodeSpec) (Host, error)

	// AddLink creates a point-to-point link between two hosts.
	AddLink(a, b Host, pa, pb *LinkParams) (*LinkHandle, error)

	// RemoveNode destroys the given node.
	RemoveNode(name string) error

	// RemoveLink destroys the link between the given hosts.
	RemoveLink(a, b Host) error

	// Start activates the provisioned network.
	Start() error

	// Stop deactivates the network and releases every node.
	Stop() error
}

// NodeConfig contains the node-related configuration used by [Realizer.Build].
type NodeConfig struct {
	// Prefix is the OPTIONAL node name prefix (default: "h").
	Prefix string

	// Image is the OPTIONAL image passed to [Backend.AddNode].
	Image string

	// Volumes is passed to [Backend.AddNode].
	Volumes []string

	// Capabilities is passed to [Backend.AddNode].
	Capabilities []string

	// Ports is passed to [Backend.AddNode].
	Ports []string
}

// DefaultNodePrefix is the default node name prefix.
const DefaultNodePrefix = "h"

func (nc *NodeConfig) prefix() string {
	if nc == nil || nc.Prefix == "" {
		return DefaultNodePrefix
	}
	return nc.Prefix
}

// NullLogger is a [Logger] that does not emit logs.
type NullLogger struct{}

// Debug implements Logger
func (nl *NullLogger) Debug(message string) {
	// nothing
}

// Debugf implements Logger
func (nl *NullLogger) Debugf(format string, v ...any) {
	// nothing
}

// Info implements Logger
func (nl *NullLogger) Info(message string) {
	// nothing
}

// Infof implements Logger
func (nl *NullLogger) Infof(format string, v ...any) {
	// nothing
}

// Warn implements Logger
func (nl *NullLogger) Warn(message string) {
	// nothing
}

// Warnf implements Logger
func (nl *NullLogger) Warnf(format string, v ...any) {
	// nothing
}

// Error implements Logger
func (nl *NullLogger) Error(message string) {
	// nothing
}

// Errorf implements Logger
func (nl *NullLogger) Errorf(format string, v ...any) {
	// nothing
}

var _ Logger = &NullLogger{}
