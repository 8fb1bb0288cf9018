package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hotpath-tools/perfanno/internal/analyzer"
)

func newRootCmd() *cobra.Command {
	var (
		reportPath string
		binaryPath string
		daemon     string
		format     string
		output     string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "perfanno",
		Short: "Aggregate and symbolize annotated profiling reports",
		Long: `Perfanno ingests a disassembly-annotated profiling report, aggregates the
sample counts into a daemon -> function -> instruction tree, resolves the
instruction addresses of one daemon against the debug information of its
binary (via addr2line, including inlined call chains), and renders the result.

Formats: json and table render the whole tree; pprof, otlp and folded render
the symbolized daemon for downstream profiling tools.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := analyzer.ParseFormat(format)
			if err != nil {
				return err
			}
			rep, err := analyzer.Process(reportPath, binaryPath, daemon, analyzer.Options{Strict: strict})
			if err != nil {
				return err
			}
			out := os.Stdout
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("can't create output file %s: %w", output, err)
				}
				defer file.Close()
				out = file
			}
			return analyzer.Render(out, rep, daemon, outFormat)
		},
	}

	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "annotated profiling report file")
	cmd.Flags().StringVarP(&binaryPath, "binary", "b", "", "binary with debug info for the selected daemon")
	cmd.Flags().StringVarP(&daemon, "daemon", "d", "", "daemon/module name to symbolize")
	cmd.Flags().StringVarP(&format, "format", "f", string(analyzer.FormatTable), "output format: json|table|pprof|otlp|folded")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&strict, "strict", false, "abort when an address can't be resolved instead of leaving it unsymbolized")
	_ = cmd.MarkFlagRequired("report")
	_ = cmd.MarkFlagRequired("binary")
	_ = cmd.MarkFlagRequired("daemon")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("perfanno failed", "error", err)
		os.Exit(1)
	}
}
