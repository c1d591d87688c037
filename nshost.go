package netlab

//
// Hosts living inside network namespaces
//

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// NamespaceHost is a [Host] living in a network namespace of a machine,
// which is itself a [Host] (e.g., [ExecHost] or [SSHHost]). Use a
// [NamespaceBackend] to create it.
type NamespaceHost struct {
	address string
	intfs   map[string]bool
	logger  Logger
	machine Host
	name    string
}

var _ Host = &NamespaceHost{}

// Name implements Host
func (nh *NamespaceHost) Name() string {
	return nh.name
}

// IP implements Host
func (nh *NamespaceHost) IP() string {
	return nh.address
}

// Namespace returns the namespace name.
func (nh *NamespaceHost) Namespace() string {
	return nh.name
}

// wrap returns the machine command running command inside the namespace.
func (nh *NamespaceHost) wrap(command string) string {
	return fmt.Sprintf("ip netns exec %s sh -c %s", nh.name, shellQuote(command))
}

// Cmd implements Host
func (nh *NamespaceHost) Cmd(command string) (string, error) {
	return nh.machine.Cmd(nh.wrap(command))
}

// CmdPrint implements Host
func (nh *NamespaceHost) CmdPrint(command string) (string, error) {
	return cmdPrint(nh, nh.logger, command)
}

// Popen implements Host
func (nh *NamespaceHost) Popen(command string) (io.ReadCloser, error) {
	return nh.machine.Popen(nh.wrap(command))
}

// DeleteIntfs implements Host. We only delete the link interfaces that
// the backend created and that still exist.
func (nh *NamespaceHost) DeleteIntfs() error {
	output, err := nh.Cmd("ip -o link show")
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range parseLinkNames(output) {
		if !nh.intfs[name] {
			continue
		}
		if _, err := nh.Cmd("ip link del " + name); err != nil {
			errs = append(errs, err)
		}
	}
	nh.intfs = map[string]bool{}
	return errors.Join(errs...)
}

// Cleanup implements Host. We remove the root and ingress queueing
// disciplines (children go away with their root), skipping the kernel
// built-in noqueue and priomap ones, and we delete the ifb devices.
func (nh *NamespaceHost) Cleanup() error {
	output, err := nh.Cmd("tc qdisc show")
	if err != nil {
		return err
	}
	var errs []error
	for _, q := range parseQdiscs(output) {
		if q.builtin {
			continue
		}
		var command string
		switch q.parent {
		case "root":
			command = fmt.Sprintf("tc qdisc del dev %s root", q.dev)
		case "ingress":
			command = fmt.Sprintf("tc qdisc del dev %s ingress", q.dev)
		default:
			continue
		}
		if _, err := nh.Cmd(command); err != nil {
			errs = append(errs, err)
		}
	}
	output, err = nh.Cmd("ip -o link show type ifb")
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	for _, name := range parseLinkNames(output) {
		if _, err := nh.Cmd("ip link del " + name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// qdiscEntry is a line of the `tc qdisc show` output.
type qdiscEntry struct {
	kind    string
	handle  string
	dev     string
	parent  string
	builtin bool
}

// parseQdiscs parses the output of `tc qdisc show`, whose lines look like:
//
//	qdisc netem 1: dev ifb0 root refcnt 2 limit 1000 delay 20ms
//	qdisc ingress ffff: dev h0-eth0 parent ffff:fff1 ----------------
//	qdisc pfifo_fast 0: dev eth0 root refcnt 2 bands 3 priomap 1 2 2 2
//
// The ingress qdisc reports parent ffff:fff1, which we map to "ingress".
func parseQdiscs(output string) []qdiscEntry {
	var out []qdiscEntry
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[0] != "qdisc" || fields[3] != "dev" {
			continue
		}
		q := qdiscEntry{
			kind:   fields[1],
			handle: fields[2],
			dev:    fields[4],
		}
		for idx := 5; idx < len(fields); idx++ {
			switch fields[idx] {
			case "root":
				q.parent = "root"
			case "parent":
				if idx+1 < len(fields) {
					q.parent = fields[idx+1]
				}
			case "priomap":
				q.builtin = true
			}
		}
		if q.kind == "ingress" || q.kind == "clsact" {
			q.parent = "ingress"
		}
		if q.kind == "noqueue" {
			q.builtin = true
		}
		out = append(out, q)
	}
	return out
}

// parseLinkNames parses the output of `ip -o link show`, whose lines look
// like "5: h0-eth0@if6: <BROADCAST,...> ...", and returns the sorted names.
func parseLinkNames(output string) []string {
	var out []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasSuffix(fields[0], ":") {
			continue
		}
		name := strings.TrimSuffix(fields[1], ":")
		if idx := strings.Index(name, "@"); idx >= 0 {
			name = name[:idx]
		}
		if name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// shellQuote quotes a string for sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
