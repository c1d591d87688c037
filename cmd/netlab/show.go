package main

import (
	"fmt"

	"github.com/bassosimone/netlab"
	"github.com/spf13/cobra"
)

// newShowCmd creates the command printing the topologies without
// touching any host.
func newShowCmd(a *app, load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the matrix sets described by the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			iter, err := iterator(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%d topologies (compound: %v)\n", iter.Len(), iter.Compound())
			for iter.HasNext() {
				ms, err := iter.Next()
				if err != nil {
					return err
				}
				printMatrixSet(a, ms)
			}
			return nil
		},
	}
}

// printMatrixSet prints a set, its summary and its description.
func printMatrixSet(a *app, ms *netlab.MatrixSet) {
	fmt.Fprintf(a.stdout, "\n%s", ms)
	if summary, err := ms.Summary(); err == nil {
		fmt.Fprintf(a.stdout, "summary: %s\n", summary)
	}
	if desc := netlab.Describe(ms); desc != "" {
		fmt.Fprintf(a.stdout, "%s\n", desc)
	}
}
