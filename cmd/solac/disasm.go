package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file>",
		Short: "Disassemble a .sasm or .sbc file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunk, err := loadChunk(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), chunk.Disassemble(sourceName(args[0])))
			return nil
		},
	}
}
