package symbolize

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/hotpath-tools/perfanno/internal/report"
)

// ErrDaemonNotFound is returned when the requested daemon has no entry in the
// aggregated report.
var ErrDaemonNotFound = errors.New("daemon not found in report")

// Options control how per-address lookup misses are treated. The default
// leaves a line the resolver can't cover unsymbolized and moves on; Strict
// aborts the whole operation on the first miss instead.
type Options struct {
	Strict bool
}

// Daemon resolves every line address of the named daemon's functions and
// attaches the resulting frame chains, innermost first. Only the selected
// daemon is symbolized; every other daemon in the tree keeps empty frames.
func Daemon(rep *report.Report, res Resolver, daemon string, opts Options) error {
	mod := rep.Module(daemon)
	if mod == nil {
		return fmt.Errorf("%w: %q", ErrDaemonNotFound, daemon)
	}
	for _, fn := range mod.Funcs {
		for _, line := range fn.Lines {
			pc, err := strconv.ParseUint(line.Address, 16, 64)
			if err != nil {
				return fmt.Errorf("malformed address %q: %w", line.Address, err)
			}
			frames, err := res.Frames(pc)
			if err != nil {
				if opts.Strict {
					return fmt.Errorf("failed to resolve address 0x%x: %w", pc, err)
				}
				slog.Warn("Leaving line unsymbolized", "address", line.Address, "error", err)
				continue
			}
			if len(frames) == 0 {
				if opts.Strict {
					return fmt.Errorf("no debug info covers address 0x%x", pc)
				}
				slog.Debug("No frames for address", "address", line.Address)
				continue
			}
			for _, frame := range frames {
				line.Frames = append(line.Frames, report.Frame{
					Funcname: funcName(frame),
					Location: location(frame),
				})
			}
		}
	}
	return nil
}

func funcName(frame Frame) string {
	if frame.Func == "" {
		return "??"
	}
	return frame.Func
}

// location reduces a resolved source path to "basename:line", or "?:?" when
// the resolver had no source information for the frame.
func location(frame Frame) string {
	if frame.File == "" {
		return "?:?"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}
