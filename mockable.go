package netlab

//
// Mockable hosts and backends
//

import "io"

// MockableHost is a mockable [Host].
type MockableHost struct {
	// MockName is the MANDATORY function to mock Name.
	MockName func() string

	// MockIP is the MANDATORY function to mock IP.
	MockIP func() string

	// MockCmd is the MANDATORY function to mock Cmd.
	MockCmd func(command string) (string, error)

	// MockCmdPrint is the MANDATORY function to mock CmdPrint.
	MockCmdPrint func(command string) (string, error)

	// MockPopen is the MANDATORY function to mock Popen.
	MockPopen func(command string) (io.ReadCloser, error)

	// MockDeleteIntfs is the MANDATORY function to mock DeleteIntfs.
	MockDeleteIntfs func() error

	// MockCleanup is the MANDATORY function to mock Cleanup.
	MockCleanup func() error
}

var _ Host = &MockableHost{}

// Name implements Host
func (mh *MockableHost) Name() string {
	return mh.MockName()
}

// IP implements Host
func (mh *MockableHost) IP() string {
	return mh.MockIP()
}

// Cmd implements Host
func (mh *MockableHost) Cmd(command string) (string, error) {
	return mh.MockCmd(command)
}

// CmdPrint implements Host
func (mh *MockableHost) CmdPrint(command string) (string, error) {
	return mh.MockCmdPrint(command)
}

// Popen implements Host
func (mh *MockableHost) Popen(command string) (io.ReadCloser, error) {
	return mh.MockPopen(command)
}

// DeleteIntfs implements Host
func (mh *MockableHost) DeleteIntfs() error {
	return mh.MockDeleteIntfs()
}

// Cleanup implements Host
func (mh *MockableHost) Cleanup() error {
	return mh.MockCleanup()
}

// MockableBackend is a mockable [Backend].
type MockableBackend struct {
	// MockAddNode is the MANDATORY function to mock AddNode.
	MockAddNode func(spec *NodeSpec) (Host, error)

	// MockAddLink is the MANDATORY function to mock AddLink.
	MockAddLink func(a, b Host, pa, pb *LinkParams) (*LinkHandle, error)

	// MockRemoveNode is the MANDATORY function to mock RemoveNode.
	MockRemoveNode func(name string) error

	// MockRemoveLink is the MANDATORY function to mock RemoveLink.
	MockRemoveLink func(a, b Host) error

	// MockStart is the MANDATORY function to mock Start.
	MockStart func() error

	// MockStop is the MANDATORY function to mock Stop.
	MockStop func() error
}

var _ Backend = &MockableBackend{}

// AddNode implements Backend
func (mb *MockableBackend) AddNode(spec *NodeSpec) (Host, error) {
	return mb.MockAddNode(spec)
}

// AddLink implements Backend
func (mb *MockableBackend) AddLink(a, b Host, pa, pb *LinkParams) (*LinkHandle, error) {
	return mb.MockAddLink(a, b, pa, pb)
}

// RemoveNode implements Backend
func (mb *MockableBackend) RemoveNode(name string) error {
	return mb.MockRemoveNode(name)
}

// RemoveLink implements Backend
func (mb *MockableBackend) RemoveLink(a, b Host) error {
	return mb.MockRemoveLink(a, b)
}

// Start implements Backend
func (mb *MockableBackend) Start() error {
	return mb.MockStart()
}

// Stop implements Backend
func (mb *MockableBackend) Stop() error {
	return mb.MockStop()
}
