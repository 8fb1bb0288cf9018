package exporter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hotpath-tools/perfanno/internal/report"
)

// BuildFoldedStacks aggregates the symbolized lines of one daemon into folded
// stacks keyed root->leaf, one entry per distinct call chain, suitable for
// flamegraph tooling. Unsymbolized lines carry no chain and are skipped.
func BuildFoldedStacks(mod *report.Module) map[string]uint64 {
	agg := make(map[string]uint64)
	for _, fn := range mod.Funcs {
		for _, line := range fn.Lines {
			if len(line.Frames) == 0 {
				continue
			}
			names := make([]string, 0, len(line.Frames))
			for i := len(line.Frames) - 1; i >= 0; i-- { // reverse order because flamegraphs expect root->leaf order
				names = append(names, escapeFoldedName(line.Frames[i].Funcname))
			}
			agg[strings.Join(names, ";")] += line.Samples
		}
	}
	return agg
}

func escapeFoldedName(name string) string {
	// semicolons separate frames and newlines separate lines. Replace them with safe characters.
	name = strings.ReplaceAll(name, ";", "_")
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return "<unknown>"
	}
	return name
}

// WriteFoldedStacks writes the aggregated stacks hottest first, ties broken
// by key for deterministic output.
func WriteFoldedStacks(w io.Writer, mod *report.Module) error {
	agg := BuildFoldedStacks(mod)

	type kv struct {
		k string
		v uint64
	}
	items := make([]kv, 0, len(agg))
	for k, v := range agg {
		items = append(items, kv{k, v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].v == items[j].v {
			return items[i].k < items[j].k
		}
		return items[i].v > items[j].v
	})

	for _, it := range items {
		if _, err := fmt.Fprintf(w, "%s %d\n", it.k, it.v); err != nil {
			return err
		}
	}
	return nil
}
