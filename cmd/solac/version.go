package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tangzhangming/solac/internal/target"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "solac %s (%s, host %s)\n", Version, runtime.Version(), target.Host())
		},
	}
}
