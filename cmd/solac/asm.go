package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tangzhangming/solac/internal/bytecode"
	"github.com/tangzhangming/solac/internal/frontend"
)

func newAsmCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "asm <file.sasm>",
		Short: "Assemble a textual bytecode listing into a .sbc container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			source, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "failed to read source %s", path)
			}
			chunk, err := frontend.NewAssembler().Compile(path, source)
			if err != nil {
				return err
			}
			data, err := bytecode.Marshal(chunk)
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(path, filepath.Ext(path)) + ".sbc"
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errors.Wrapf(err, "failed to write %s", output)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d bytes)\n", path, output, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output container path")
	return cmd
}
