package netlab

//
// Hosts running commands on the local machine
//

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ExecHost is a [Host] running commands on the local machine using "sh -c".
//
// An ExecHost is typically the machine on top of which a [NamespaceBackend]
// creates network namespaces, so DeleteIntfs and Cleanup do nothing.
type ExecHost struct {
	// Context is the OPTIONAL context bounding the commands.
	Context context.Context

	// HostName is the OPTIONAL name (default: "localhost").
	HostName string

	// Address is the OPTIONAL address returned by IP.
	Address string

	// Logger is the MANDATORY logger used by CmdPrint.
	Logger Logger

	// Shell is the OPTIONAL shell (default: "sh").
	Shell string
}

var _ Host = &ExecHost{}

// Name implements Host
func (eh *ExecHost) Name() string {
	if eh.HostName == "" {
		return "localhost"
	}
	return eh.HostName
}

// IP implements Host
func (eh *ExecHost) IP() string {
	return eh.Address
}

func (eh *ExecHost) command(command string) *exec.Cmd {
	ctx := eh.Context
	if ctx == nil {
		ctx = context.Background()
	}
	shell := eh.Shell
	if shell == "" {
		shell = "sh"
	}
	return exec.CommandContext(ctx, shell, "-c", command)
}

// Cmd implements Host
func (eh *ExecHost) Cmd(command string) (string, error) {
	var output bytes.Buffer
	cmd := eh.command(command)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return output.String(), fmt.Errorf("%s: %w: %s", command, err, strings.TrimSpace(output.String()))
	}
	return output.String(), nil
}

// CmdPrint implements Host
func (eh *ExecHost) CmdPrint(command string) (string, error) {
	return cmdPrint(eh, eh.Logger, command)
}

// Popen implements Host
func (eh *ExecHost) Popen(command string) (io.ReadCloser, error) {
	cmd := eh.command(command)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &processReader{ReadCloser: stdout, cmd: cmd}, nil
}

// DeleteIntfs implements Host
func (eh *ExecHost) DeleteIntfs() error {
	return nil
}

// Cleanup implements Host
func (eh *ExecHost) Cleanup() error {
	return nil
}

// processReader is the [io.ReadCloser] returned by [ExecHost.Popen].
type processReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

// Close kills the process and reaps it.
func (pr *processReader) Close() error {
	_ = pr.cmd.Process.Kill()
	err := pr.ReadCloser.Close()
	_ = pr.cmd.Wait()
	return err
}

// cmdPrint implements CmdPrint for a host.
func cmdPrint(host Host, logger Logger, command string) (string, error) {
	logger.Infof("netlab: %s> %s", host.Name(), command)
	output, err := host.Cmd(command)
	if trimmed := strings.TrimSpace(output); trimmed != "" {
		logger.Info(trimmed)
	}
	if err != nil {
		logger.Warnf("netlab: %s> %s: %s", host.Name(), command, err.Error())
	}
	return output, err
}
