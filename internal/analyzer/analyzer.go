package analyzer

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hotpath-tools/perfanno/internal/exporter"
	"github.com/hotpath-tools/perfanno/internal/pprof"
	"github.com/hotpath-tools/perfanno/internal/report"
	"github.com/hotpath-tools/perfanno/internal/symbolize"
)

// Format selects how a processed report is rendered.
type Format string

const (
	FormatJSON   Format = "json"
	FormatTable  Format = "table"
	FormatPprof  Format = "pprof"
	FormatOTLP   Format = "otlp"
	FormatFolded Format = "folded"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatTable, FormatPprof, FormatOTLP, FormatFolded:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Options configure Process. OpenResolver defaults to the addr2line-backed
// resolver; tests inject fakes through it.
type Options struct {
	Strict       bool
	OpenResolver func(binary string) (symbolize.Resolver, error)
}

// Process reads and aggregates the annotated report at reportPath, then
// symbolizes the named daemon against binaryPath's debug info. Everything is
// all-or-nothing: on any failure no tree is handed to the caller.
func Process(reportPath, binaryPath, daemon string, opts Options) (*report.Report, error) {
	text, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, fmt.Errorf("can't read file %s: %w", reportPath, err)
	}
	rep, err := report.Parse(string(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", reportPath, err)
	}
	open := opts.OpenResolver
	if open == nil {
		open = func(binary string) (symbolize.Resolver, error) {
			return symbolize.Open(binary)
		}
	}
	res, err := open(binaryPath)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	if err := symbolize.Daemon(rep, res, daemon, symbolize.Options{Strict: opts.Strict}); err != nil {
		return nil, err
	}
	return rep, nil
}

// Render writes the processed tree in the selected format. json and table
// cover the whole tree; pprof, otlp and folded cover the symbolized daemon.
func Render(w io.Writer, rep *report.Report, daemon string, format Format) error {
	switch format {
	case FormatJSON:
		return exporter.WriteJSON(w, rep)
	case FormatTable:
		return exporter.WriteTable(w, rep)
	}

	mod := rep.Module(daemon)
	if mod == nil {
		return fmt.Errorf("%w: %q", symbolize.ErrDaemonNotFound, daemon)
	}
	switch format {
	case FormatFolded:
		return exporter.WriteFoldedStacks(w, mod)
	case FormatPprof:
		p, err := pprof.BuildProfile(mod, daemon)
		if err != nil {
			return err
		}
		return pprof.WriteProfileGzip(p, w)
	case FormatOTLP:
		data := exporter.BuildOTLPProfile(mod, daemon, func() uint64 {
			return uint64(time.Now().UnixNano())
		})
		return exporter.WriteOTLPProfile(w, data)
	}
	return fmt.Errorf("unknown output format %q", format)
}
