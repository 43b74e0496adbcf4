package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tangzhangming/solac/internal/bytecode"
	"github.com/tangzhangming/solac/internal/convert"
	"github.com/tangzhangming/solac/internal/frontend"
	"github.com/tangzhangming/solac/internal/ir"
)

func newIRCmd(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ir <file>",
		Short: "Print the register IR produced for a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			chunk, err := loadChunk(path)
			if err != nil {
				return err
			}
			// 不经过后端，arm64 主机上也能查看 IR
			m, err := convert.Convert(sourceName(path), chunk)
			if err != nil {
				return errors.Wrap(err, "IR conversion failed")
			}
			g.loggerOf().Debug("converted module",
				zap.String("module", m.Name),
				zap.Int("registers", m.RegisterCount()))

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := ir.DumpJSON(m)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprint(out, m.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the module as JSON")
	return cmd
}

// loadChunk 按扩展名选择前端读取字节码
func loadChunk(path string) (*bytecode.Chunk, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read source %s", path)
	}
	return frontend.ForPath(path).Compile(path, source)
}
