package netlab

//
// Hosts running commands over SSH
//

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig contains config for [DialSSH].
type SSHConfig struct {
	// Address is the MANDATORY endpoint (e.g., "10.0.0.1:22").
	Address string

	// User is the MANDATORY user name.
	User string

	// Password is the OPTIONAL password.
	Password string

	// KeyFile is the OPTIONAL path of a private key.
	KeyFile string

	// HostKey is the OPTIONAL expected host key in authorized_keys
	// format. When empty we do not verify the host key, which is only
	// acceptable on an isolated testbed.
	HostKey string

	// Timeout is the OPTIONAL dial timeout (default: 10s).
	Timeout time.Duration

	// Logger is the MANDATORY logger.
	Logger Logger
}

// ErrSSHAuth indicates that [SSHConfig] contains no authentication method.
var ErrSSHAuth = errors.New("netlab: no ssh authentication method")

// clientConfig builds the *ssh.ClientConfig.
func (sc *SSHConfig) clientConfig() (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod
	if sc.KeyFile != "" {
		data, err := os.ReadFile(sc.KeyFile)
		if err != nil {
			return nil, err
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sc.KeyFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if sc.Password != "" {
		methods = append(methods, ssh.Password(sc.Password))
	}
	if len(methods) <= 0 {
		return nil, ErrSSHAuth
	}
	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if sc.HostKey != "" {
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(sc.HostKey))
		if err != nil {
			return nil, fmt.Errorf("host key: %w", err)
		}
		hostKeyCallback = ssh.FixedHostKey(key)
	}
	timeout := sc.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	config := &ssh.ClientConfig{
		User:            sc.User,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}
	return config, nil
}

// SSHHost is a [Host] running commands on a remote machine over SSH. Each
// command uses its own session. Use [DialSSH] to construct.
type SSHHost struct {
	address string
	client  *ssh.Client
	logger  Logger
	name    string
}

var _ Host = &SSHHost{}

// DialSSH connects to the remote machine described by config.
func DialSSH(ctx context.Context, config *SSHConfig) (*SSHHost, error) {
	cc, err := config.clientConfig()
	if err != nil {
		return nil, err
	}
	dialer := &net.Dialer{Timeout: cc.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", config.Address)
	if err != nil {
		return nil, err
	}
	config.Logger.Debugf("netlab: ssh %s@%s", config.User, config.Address)
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, config.Address, cc)
	if err != nil {
		conn.Close()
		return nil, err
	}
	host, _, err := net.SplitHostPort(config.Address)
	if err != nil {
		host = config.Address
	}
	sh := &SSHHost{
		address: host,
		client:  ssh.NewClient(sshConn, chans, reqs),
		logger:  config.Logger,
		name:    host,
	}
	return sh, nil
}

// Name implements Host
func (sh *SSHHost) Name() string {
	return sh.name
}

// IP implements Host
func (sh *SSHHost) IP() string {
	return sh.address
}

// Cmd implements Host
func (sh *SSHHost) Cmd(command string) (string, error) {
	session, err := sh.client.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()
	output, err := session.CombinedOutput(command)
	if err != nil {
		return string(output), fmt.Errorf("%s: %w: %s", command, err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// CmdPrint implements Host
func (sh *SSHHost) CmdPrint(command string) (string, error) {
	return cmdPrint(sh, sh.logger, command)
}

// Popen implements Host
func (sh *SSHHost) Popen(command string) (io.ReadCloser, error) {
	session, err := sh.client.NewSession()
	if err != nil {
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, err
	}
	if err := session.Start(command); err != nil {
		session.Close()
		return nil, err
	}
	return &sessionReader{Reader: stdout, session: session}, nil
}

// DeleteIntfs implements Host
func (sh *SSHHost) DeleteIntfs() error {
	return nil
}

// Cleanup implements Host
func (sh *SSHHost) Cleanup() error {
	return nil
}

// Close closes the SSH connection.
func (sh *SSHHost) Close() error {
	return sh.client.Close()
}

// sessionReader is the [io.ReadCloser] returned by [SSHHost.Popen].
type sessionReader struct {
	io.Reader
	session *ssh.Session
}

// Close asks the remote command to terminate and closes the session.
func (sr *sessionReader) Close() error {
	_ = sr.session.Signal(ssh.SIGKILL)
	return sr.session.Close()
}
