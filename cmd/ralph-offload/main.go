package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/raymyers/ralph-offload/pkg/compiler"
	"github.com/raymyers/ralph-offload/pkg/config"
	"github.com/raymyers/ralph-offload/pkg/logger"
	"github.com/raymyers/ralph-offload/pkg/manifest"
	"github.com/raymyers/ralph-offload/pkg/wire"
)

var version = "0.1.0"

// Debug flags for dumping intermediate results
var (
	dIR     bool
	dInline bool
	dLayout bool
	dC      bool
)

// Compilation options
var (
	outputFile string
	entryName  string
	configFile string
	noInline   bool
	bigEndian  bool
	verbose    bool
	logFormat  string
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Accept single-dash dump flags such as -dir
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ralph-offload: error: %v\n", err)
		return 1
	}
	return 0
}

// dumpFlagNames lists the dump flags that also accept a single dash
var dumpFlagNames = []string{"dir", "dinline", "dlayout", "dc"}

// normalizeFlags converts single-dash dump flags like -dir to --dir
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range dumpFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

// flagName lets long flags be spelled with underscores, as in the config
// file keys.
func flagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-offload [flags] program.yaml",
		Short: "ralph-offload compiles managed methods to native C",
		Long: `ralph-offload compiles the methods of a managed program, described by a
YAML manifest, into a C translation unit. The generated program talks to
the managed side over a binary object-graph protocol on stdin and stdout.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return doCompile(args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetGlobalNormalizationFunc(flagName)

	rootCmd.Flags().BoolVar(&dIR, "dir", false, "Dump the IR after tracing")
	rootCmd.Flags().BoolVar(&dInline, "dinline", false, "Dump the IR after inlining and binding")
	rootCmd.Flags().BoolVar(&dLayout, "dlayout", false, "Dump the type descriptor table")
	rootCmd.Flags().BoolVar(&dC, "dc", false, "Write the generated C to stdout as well")

	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default <input>.c, - for stdout)")
	rootCmd.Flags().StringVar(&entryName, "entry", "", "Entry method as Class.method, overriding the manifest")
	rootCmd.Flags().StringVar(&configFile, "config", "", "YAML file of compiler options")
	rootCmd.Flags().BoolVar(&noInline, "no-inline", false, "Disable inlining")
	rootCmd.PersistentFlags().BoolVar(&bigEndian, "big-endian", false, "Use big-endian byte order on the wire")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every pass")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(newStatusCmd(out), newDecodeCmd(out))
	return rootCmd
}

func newStatusCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "status CODE",
		Short: "Explain an exit status of a generated program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("status %q: %w", args[0], err)
			}
			fmt.Fprintln(out, wire.Diagnose(code))
			return nil
		},
	}
}

func newDecodeCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "decode FILE",
		Short: "Decode an object-graph stream and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			var order binary.ByteOrder = binary.LittleEndian
			if bigEndian {
				order = binary.BigEndian
			}
			v, err := wire.Decode(f, order)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			wire.NewPrinter(out).Print(v)
			return nil
		},
	}
}

// loadConfig reads the options file, if any, and applies the flags over it.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return cfg, err
		}
	}
	if noInline {
		cfg.Inline = false
	}
	if bigEndian {
		cfg.ByteOrder = "big"
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, cfg.Validate()
}

// doCompile compiles the manifest at filename and writes the C output.
func doCompile(filename string, out, errOut io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lc := cfg.Logger()
	lc.Output = errOut
	closeLog, err := logger.Init(lc)
	if err != nil {
		return err
	}
	defer closeLog()

	m, err := manifest.Load(filename)
	if err != nil {
		return err
	}
	var dumps compiler.Dumps
	if dIR {
		dumps.IR = out
	}
	if dInline {
		dumps.Inline = out
	}
	if dLayout {
		dumps.Layout = out
	}

	var buf bytes.Buffer
	if err := compiler.Compile(&buf, m, cfg, entryName, dumps); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	path := outputFile
	if path == "" {
		path = outputFilename(filename)
	}
	if path == "-" {
		_, err := out.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return err
	}
	logger.Info("wrote output", "file", path, "bytes", buf.Len())
	if dC {
		_, err := out.Write(buf.Bytes())
		return err
	}
	return nil
}

// outputFilename computes the C file name: prog.yaml -> prog.c
func outputFilename(inputFilename string) string {
	ext := filepath.Ext(inputFilename)
	if ext == ".yaml" || ext == ".yml" {
		return strings.TrimSuffix(inputFilename, ext) + ".c"
	}
	return inputFilename + ".c"
}
