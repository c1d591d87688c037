// Command netlab realizes emulated network topologies using network
// namespaces, traffic control and configurable routing.
//
// Usage:
//
//	netlab show -c topology.yaml
//	netlab up -c topology.yaml [--metrics-addr :9100] [--duration 1m]
//	netlab sweep -c topology.yaml [--strategy static_bfs,ospf] [--hold 10s]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and returns the exit code.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(newApp(os.Stdout, os.Stderr))
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "netlab:", err)
		return 1
	}
	return 0
}
