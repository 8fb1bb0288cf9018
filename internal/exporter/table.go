package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/hotpath-tools/perfanno/internal/report"
)

const (
	bannerWidth      = 100
	instructionWidth = 30
)

// percent implements the zero-total policy: an empty report renders every
// share as 0 instead of propagating NaN.
func percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Table renders the finished tree as the multi-level text table: a summary
// banner, one banner per daemon, and one fixed-width table per function with
// a synthetic [TOTAL] row. Pure formatting; nothing is recomputed and nothing
// is sorted, daemons and functions keep tree order.
func Table(rep *report.Report) string {
	var b strings.Builder

	summaryDecor := strings.Repeat("S", bannerWidth)
	spacer := strings.Repeat(" ", 6)
	fmt.Fprintf(&b, "%s\n", summaryDecor)
	fmt.Fprintf(&b, "[SUMMARY]%sSamples:%d%sDaemons:%d%sFuncs:%d%sLines:%d\n",
		spacer, rep.TotalSamples, spacer, rep.NumMods, spacer, rep.NumFuncs, spacer, rep.NumLines)
	fmt.Fprintf(&b, "%s\n\n\n", summaryDecor)

	moduleDecor := strings.Repeat("M", bannerWidth)
	borderline := strings.Repeat("=", bannerWidth)
	centerline := strings.Join([]string{
		strings.Repeat("-", 8),
		strings.Repeat("-", 13),
		strings.Repeat("-", 12),
		strings.Repeat("-", instructionWidth),
		strings.Repeat("-", 25),
	}, "-+-")
	pad := strings.Repeat(" ", 3)

	modCount := uint64(0)
	for pair := rep.Mods.Oldest(); pair != nil; pair = pair.Next() {
		modCount++
		name, mod := pair.Key, pair.Value

		fmt.Fprintf(&b, "%s\n", moduleDecor)
		fmt.Fprintf(&b, "[%s]%sPercent:%.2f%%%sSamples:%d/%d%sFuncs:%d/%d%sLines:%d/%d\n",
			name, spacer, percent(mod.Samples, rep.TotalSamples),
			spacer, mod.Samples, rep.TotalSamples,
			spacer, mod.NumFuncs, rep.NumFuncs,
			spacer, mod.NumLines, rep.NumLines)
		fmt.Fprintf(&b, "%s\n\n\n", moduleDecor)

		for funcIdx, fn := range mod.Funcs {
			fmt.Fprintf(&b, "%s\n", borderline)
			fmt.Fprintf(&b, "%8s%s%13s%s%12.12s%s%-30s%sFunc&Location\n",
				"Percent", pad, "Samples", pad, "Address", pad, "Instruction", pad)
			fmt.Fprintf(&b, "%s\n", centerline)
			fmt.Fprintf(&b, "%8.4f%s%13s%s%12s%s%-30.30s%s\n",
				percent(fn.Samples, rep.TotalSamples), pad,
				fmt.Sprintf("%d/%d", fn.Samples, rep.TotalSamples), pad,
				"[TOTAL]", pad,
				fmt.Sprintf("[%s][Func#%d]", name, funcIdx+1), pad)

			for _, line := range fn.Lines {
				fmt.Fprintf(&b, "%8.4f%s%13s%s%12s%s%-30.30s%s%s\n",
					percent(line.Samples, rep.TotalSamples), pad,
					fmt.Sprintf("%d/%d", line.Samples, rep.TotalSamples), pad,
					line.Address, pad,
					line.Instruction, pad,
					frameChain(line.Frames))
			}

			fmt.Fprintf(&b, "%s\n", borderline)
			if funcIdx < len(mod.Funcs)-1 {
				b.WriteString("\n\n")
			}
		}

		if modCount < rep.NumMods {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// frameChain joins the resolved frames as "func@location" separated by "->",
// outermost call site first. Empty for unsymbolized lines.
func frameChain(frames []report.Frame) string {
	var b strings.Builder
	for i := len(frames) - 1; i >= 0; i-- {
		if b.Len() > 0 {
			b.WriteString("->")
		}
		b.WriteString(frames[i].Funcname)
		b.WriteString("@")
		b.WriteString(frames[i].Location)
	}
	return b.String()
}

func WriteTable(w io.Writer, rep *report.Report) error {
	_, err := io.WriteString(w, Table(rep))
	return err
}
