package netlab

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeMachine is a machine recording commands and returning canned outputs.
type fakeMachine struct {
	commands []string
	outputs  map[string]string
	failing  map[string]bool
}

func newFakeMachine() *fakeMachine {
	return &fakeMachine{outputs: map[string]string{}, failing: map[string]bool{}}
}

// host returns the [Host] view of the fake machine.
func (fm *fakeMachine) host() *MockableHost {
	return &MockableHost{
		MockName: func() string { return "machine" },
		MockIP:   func() string { return "" },
		MockCmd: func(command string) (string, error) {
			fm.commands = append(fm.commands, command)
			if fm.failing[command] {
				return "", errors.New("mocked error")
			}
			return fm.outputs[command], nil
		},
		MockPopen: func(command string) (io.ReadCloser, error) {
			fm.commands = append(fm.commands, command)
			return io.NopCloser(strings.NewReader(fm.outputs[command])), nil
		},
	}
}

func TestParseQdiscs(t *testing.T) {
	output := strings.Join([]string{
		"qdisc noqueue 0: dev lo root refcnt 2",
		"qdisc tbf 1: dev h0-eth0 root refcnt 2 rate 100Mbit burst 125Kb lat 1ms",
		"qdisc ingress ffff: dev h0-eth0 parent ffff:fff1 ----------------",
		"qdisc netem 1: dev ifb0 root refcnt 2 limit 1000 delay 20ms",
		"qdisc pfifo_fast 0: dev eth0 root refcnt 2 bands 3 priomap 1 2 2 2",
		"qdisc pfifo 8001: dev ifb0 parent 1:1 limit 1000p",
		"garbage",
		"",
	}, "\n")
	expect := []qdiscEntry{
		{kind: "noqueue", handle: "0:", dev: "lo", parent: "root", builtin: true},
		{kind: "tbf", handle: "1:", dev: "h0-eth0", parent: "root"},
		{kind: "ingress", handle: "ffff:", dev: "h0-eth0", parent: "ingress"},
		{kind: "netem", handle: "1:", dev: "ifb0", parent: "root"},
		{kind: "pfifo_fast", handle: "0:", dev: "eth0", parent: "root", builtin: true},
		{kind: "pfifo", handle: "8001:", dev: "ifb0", parent: "1:1"},
	}
	if diff := cmp.Diff(expect, parseQdiscs(output), cmp.AllowUnexported(qdiscEntry{})); diff != "" {
		t.Fatal(diff)
	}
}

func TestParseLinkNames(t *testing.T) {
	output := strings.Join([]string{
		"1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536 qdisc noqueue state UNKNOWN",
		"7: h0-eth1@if8: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc tbf",
		"5: h0-eth0@if6: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc tbf",
		"    link/ether 00:00:00:00:00:00 brd 00:00:00:00:00:00",
	}, "\n")
	expect := []string{"h0-eth0", "h0-eth1", "lo"}
	if diff := cmp.Diff(expect, parseLinkNames(output)); diff != "" {
		t.Fatal(diff)
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote("echo 'hi'"); got != `'echo '\''hi'\'''` {
		t.Fatal("unexpected quoting", got)
	}
}

func TestNamespaceHost(t *testing.T) {
	newHost := func(fm *fakeMachine) *NamespaceHost {
		return &NamespaceHost{
			intfs:   map[string]bool{"h0-eth0": true},
			logger:  &NullLogger{},
			machine: fm.host(),
			name:    "h0",
		}
	}

	t.Run("commands run inside the namespace", func(t *testing.T) {
		fm := newFakeMachine()
		nh := newHost(fm)
		if _, err := nh.Cmd("ip route show"); err != nil {
			t.Fatal(err)
		}
		rc, err := nh.Popen("ping -c1 10.0.0.2")
		if err != nil {
			t.Fatal(err)
		}
		rc.Close()
		expect := []string{
			"ip netns exec h0 sh -c 'ip route show'",
			"ip netns exec h0 sh -c 'ping -c1 10.0.0.2'",
		}
		if diff := cmp.Diff(expect, fm.commands); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Cleanup removes qdiscs and ifb devices", func(t *testing.T) {
		fm := newFakeMachine()
		fm.outputs["ip netns exec h0 sh -c 'tc qdisc show'"] = strings.Join([]string{
			"qdisc noqueue 0: dev lo root refcnt 2",
			"qdisc tbf 1: dev h0-eth0 root refcnt 2 rate 100Mbit",
			"qdisc ingress ffff: dev h0-eth0 parent ffff:fff1 ----------------",
			"qdisc netem 1: dev ifb0 root refcnt 2 limit 1000 delay 20ms",
		}, "\n")
		fm.outputs["ip netns exec h0 sh -c 'ip -o link show type ifb'"] =
			"3: ifb0: <BROADCAST,NOARP,UP,LOWER_UP> mtu 1500 qdisc netem\n"
		if err := newHost(fm).Cleanup(); err != nil {
			t.Fatal(err)
		}
		expect := []string{
			"ip netns exec h0 sh -c 'tc qdisc show'",
			"ip netns exec h0 sh -c 'tc qdisc del dev h0-eth0 root'",
			"ip netns exec h0 sh -c 'tc qdisc del dev h0-eth0 ingress'",
			"ip netns exec h0 sh -c 'tc qdisc del dev ifb0 root'",
			"ip netns exec h0 sh -c 'ip -o link show type ifb'",
			"ip netns exec h0 sh -c 'ip link del ifb0'",
		}
		if diff := cmp.Diff(expect, fm.commands); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Cleanup joins the errors and keeps going", func(t *testing.T) {
		fm := newFakeMachine()
		fm.outputs["ip netns exec h0 sh -c 'tc qdisc show'"] = "qdisc tbf 1: dev h0-eth0 root refcnt 2\n"
		fm.failing["ip netns exec h0 sh -c 'tc qdisc del dev h0-eth0 root'"] = true
		if err := newHost(fm).Cleanup(); err == nil {
			t.Fatal("expected an error")
		}
		if n := len(fm.commands); n != 3 {
			t.Fatal("expected three commands, got", fm.commands)
		}
	})

	t.Run("DeleteIntfs only removes our interfaces", func(t *testing.T) {
		fm := newFakeMachine()
		fm.outputs["ip netns exec h0 sh -c 'ip -o link show'"] = strings.Join([]string{
			"1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536",
			"5: h0-eth0@if6: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500",
			"9: ifb0: <BROADCAST,NOARP,UP,LOWER_UP> mtu 1500",
		}, "\n")
		nh := newHost(fm)
		if err := nh.DeleteIntfs(); err != nil {
			t.Fatal(err)
		}
		expect := []string{
			"ip netns exec h0 sh -c 'ip -o link show'",
			"ip netns exec h0 sh -c 'ip link del h0-eth0'",
		}
		if diff := cmp.Diff(expect, fm.commands); diff != "" {
			t.Fatal(diff)
		}
		if len(nh.intfs) != 0 {
			t.Fatal("expected no tracked interfaces")
		}
	})
}
