package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tangzhangming/solac/internal/aot"
	"github.com/tangzhangming/solac/internal/target"
)

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List known targets and their support status",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ok := color.New(color.FgGreen).SprintFunc()
			bad := color.New(color.FgYellow).SprintFunc()
			host := target.Host()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TARGET\tSTATUS\tFORMAT\tLINKER")
			for _, t := range target.All() {
				name := t.String()
				if t == host {
					name += " (host)"
				}
				status := ok("supported")
				if _, err := aot.CreateBackend(t); err != nil {
					status = bad("unsupported")
				}
				format := aot.CreateGenerator(t).FormatName()
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, status, format, t.DefaultLinker())
			}
			w.Flush()
		},
	}
}
