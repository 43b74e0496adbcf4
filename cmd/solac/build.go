package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tangzhangming/solac/internal/aot"
	"github.com/tangzhangming/solac/internal/target"
)

// buildFlags build 子命令参数，只有显式给出的参数才覆盖配置文件
type buildFlags struct {
	output       string
	target       string
	optimization string
	linker       string
	libraries    []string
	libraryPaths []string
	linkerFlags  []string
	static       bool
	keepObject   bool
	debug        bool
	strip        bool
}

func newBuildCmd(g *globalOptions) *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a .sasm or .sbc file to a native executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			opts, err := resolveOptions(cmd.Flags(), g, f, source)
			if err != nil {
				return err
			}

			output := f.output
			if output == "" {
				output = defaultOutput(source, opts.Target)
			}

			compiler, err := aot.New(opts, nil, aot.WithLogger(g.loggerOf()))
			if err != nil {
				return err
			}
			if err := compiler.CompileFile(source, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n", source, output, opts.Target)
			return nil
		},
	}

	f.register(cmd.Flags())
	return cmd
}

// register 注册 build 参数
func (f *buildFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.output, "output", "o", "", "Output executable path")
	flags.StringVar(&f.target, "target", "", "Target platform, e.g. x86_64-linux (default: host)")
	flags.StringVarP(&f.optimization, "opt", "O", "", "Optimization level: 0, 2, 3, s")
	flags.StringVar(&f.linker, "linker", "", "Linker executable (default: gcc, clang on macOS)")
	flags.StringArrayVarP(&f.libraries, "lib", "l", nil, "Link against library")
	flags.StringArrayVarP(&f.libraryPaths, "lib-path", "L", nil, "Add library search path")
	flags.StringArrayVarP(&f.linkerFlags, "linker-flag", "X", nil, "Pass flag to the linker")
	flags.BoolVar(&f.static, "static", false, "Link statically")
	flags.BoolVar(&f.keepObject, "keep-object", false, "Keep the intermediate object file")
	flags.BoolVar(&f.debug, "debug", false, "Request debug symbols")
	flags.BoolVar(&f.strip, "strip", false, "Request stripped output")
}

// resolveOptions 合并默认值、配置文件和命令行参数
func resolveOptions(flags *pflag.FlagSet, g *globalOptions, f *buildFlags, source string) (aot.CompileOptions, error) {
	opts := aot.DefaultOptions(target.Host())
	linkerSet := flags.Changed("linker")

	configPath := g.configPath
	if configPath == "" {
		configPath = aot.FindConfig(source)
	}
	if configPath != "" {
		cfg, err := aot.LoadConfig(configPath)
		if err != nil {
			return opts, err
		}
		if opts, err = cfg.Options(); err != nil {
			return opts, errors.Wrap(err, configPath)
		}
		linkerSet = linkerSet || cfg.Build.Linker != ""
	}

	if flags.Changed("target") {
		t, err := target.Parse(f.target)
		if err != nil {
			return opts, err
		}
		// 换目标时默认链接器跟着换，除非配置或参数指定过
		if !linkerSet {
			opts.Linker = t.DefaultLinker()
		}
		opts.Target = t
	}
	if flags.Changed("opt") {
		level, err := aot.ParseOptLevel(f.optimization)
		if err != nil {
			return opts, err
		}
		opts.Optimization = level
	}
	if flags.Changed("linker") {
		opts.Linker = f.linker
	}
	opts.Libraries = append(opts.Libraries, f.libraries...)
	opts.LibraryPaths = append(opts.LibraryPaths, f.libraryPaths...)
	opts.LinkerFlags = append(opts.LinkerFlags, f.linkerFlags...)
	if flags.Changed("static") {
		opts.StaticLinking = f.static
	}
	if flags.Changed("keep-object") {
		opts.CleanupObject = !f.keepObject
	}
	if flags.Changed("debug") {
		opts.DebugSymbols = f.debug
	}
	if flags.Changed("strip") {
		opts.StripSymbols = f.strip
	}
	return opts, nil
}

// defaultOutput 源文件名去掉扩展名，加上目标平台的可执行文件后缀
func defaultOutput(source string, t target.Target) string {
	return sourceName(source) + t.ExecutableSuffix()
}
