package netlab

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

// newTestSigner generates an ed25519 [ssh.Signer].
func newTestSigner(t *testing.T) ssh.Signer {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	return signer
}

// startSSHServer starts an SSH server accepting netlab:secret whose
// sessions print "ran: COMMAND" and exit with status zero, except for the
// "false" command that exits with status one.
func startSSHServer(t *testing.T, signer ssh.Signer) string {
	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "netlab" && string(pass) == "secret" {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	config.AddHostKey(signer)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				serveSSH(conn, config)
			}()
		}
	}()
	t.Cleanup(func() {
		listener.Close()
		wg.Wait()
	})
	return listener.Addr().String()
}

func serveSSH(conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()
	sconn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)
	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go serveSession(channel, requests)
	}
}

func serveSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()
	for req := range requests {
		if req.Type != "exec" {
			req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			req.Reply(false, nil)
			return
		}
		req.Reply(true, nil)
		var status uint32
		if payload.Command == "false" {
			status = 1
		} else {
			fmt.Fprintf(channel, "ran: %s\n", payload.Command)
		}
		channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}

func TestSSHConfig(t *testing.T) {
	t.Run("without authentication methods", func(t *testing.T) {
		sc := &SSHConfig{User: "netlab"}
		if _, err := sc.clientConfig(); !errors.Is(err, ErrSSHAuth) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("with an invalid key file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "id_ed25519")
		if err := os.WriteFile(path, []byte("not a key"), 0600); err != nil {
			t.Fatal(err)
		}
		sc := &SSHConfig{User: "netlab", KeyFile: path}
		if _, err := sc.clientConfig(); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("with an invalid host key", func(t *testing.T) {
		sc := &SSHConfig{User: "netlab", Password: "secret", HostKey: "garbage"}
		if _, err := sc.clientConfig(); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("the default timeout", func(t *testing.T) {
		sc := &SSHConfig{User: "netlab", Password: "secret"}
		cc, err := sc.clientConfig()
		if err != nil {
			t.Fatal(err)
		}
		if cc.Timeout != 10*time.Second {
			t.Fatal("unexpected timeout", cc.Timeout)
		}
	})
}

func TestSSHHost(t *testing.T) {
	signer := newTestSigner(t)
	address := startSSHServer(t, signer)
	hostKey := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(signer.PublicKey())))

	t.Run("runs commands", func(t *testing.T) {
		sh, err := DialSSH(context.Background(), &SSHConfig{
			Address:  address,
			User:     "netlab",
			Password: "secret",
			HostKey:  hostKey,
			Logger:   &NullLogger{},
		})
		if err != nil {
			t.Fatal(err)
		}
		defer sh.Close()
		if sh.Name() != "127.0.0.1" || sh.IP() != "127.0.0.1" {
			t.Fatal("unexpected name", sh.Name(), sh.IP())
		}

		output, err := sh.CmdPrint("ip netns add h0")
		if err != nil {
			t.Fatal(err)
		}
		if output != "ran: ip netns add h0\n" {
			t.Fatalf("unexpected output %q", output)
		}

		if _, err := sh.Cmd("false"); err == nil {
			t.Fatal("expected an error")
		}

		rc, err := sh.Popen("ping")
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		rc.Close()
		if string(data) != "ran: ping\n" {
			t.Fatalf("unexpected output %q", data)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := DialSSH(context.Background(), &SSHConfig{
			Address:  address,
			User:     "netlab",
			Password: "wrong",
			Logger:   &NullLogger{},
		})
		if err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("unexpected host key", func(t *testing.T) {
		other := newTestSigner(t)
		_, err := DialSSH(context.Background(), &SSHConfig{
			Address:  address,
			User:     "netlab",
			Password: "secret",
			HostKey:  string(ssh.MarshalAuthorizedKey(other.PublicKey())),
			Logger:   &NullLogger{},
		})
		if err == nil {
			t.Fatal("expected an error")
		}
	})
}
