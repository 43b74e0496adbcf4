// solac 把 Sola 字节码编译成本机可执行文件。
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tangzhangming/solac/internal/logging"
)

const Version = "0.1.0"

// globalOptions 所有子命令共享的参数
type globalOptions struct {
	verbose    bool
	configPath string
	logger     *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "solac",
		Short: "Ahead-of-time compiler for Sola bytecode",
		Long: "solac lowers Sola bytecode to a register IR, generates x86-64 machine code,\n" +
			"wraps it in a minimal ELF or PE image and hands it to the system linker.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			g.logger = logging.New(g.verbose)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Print pipeline progress")
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "",
		"Path to solac.toml (default: searched upwards from the source file)")

	cmd.AddCommand(newBuildCmd(g))
	cmd.AddCommand(newIRCmd(g))
	cmd.AddCommand(newAsmCmd())
	cmd.AddCommand(newDisasmCmd())
	cmd.AddCommand(newTargetsCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loggerOf 子命令未经过根命令时返回空日志记录器
func (g *globalOptions) loggerOf() *zap.Logger {
	if g.logger == nil {
		return zap.NewNop()
	}
	return g.logger
}

// sourceName 源文件名去掉扩展名
func sourceName(path string) string {
	base := filepath.Base(path)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" {
		return name
	}
	return base
}
