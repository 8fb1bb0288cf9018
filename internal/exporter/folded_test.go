package exporter

import (
	"strings"
	"testing"

	"github.com/hotpath-tools/perfanno/internal/report"
)

func TestBuildFoldedStacks_AggregationAndOrder(t *testing.T) {
	rep := mustParse(t, `Samples: cycles of d1 for x (30 samples)
 10 : 1000 : nop
 20 : 1004 : nop
 5 : 1008 : nop
`)
	mod := rep.Module("d1")
	chain := []report.Frame{
		{Funcname: "leaf", Location: "a.c:1"},
		{Funcname: "root", Location: "b.c:2"},
	}
	mod.Funcs[0].Lines[0].Frames = chain
	mod.Funcs[0].Lines[1].Frames = chain
	// third line stays unsymbolized and must be skipped

	agg := BuildFoldedStacks(mod)
	if len(agg) != 1 {
		t.Fatalf("expected 1 aggregated entry, got %d: %v", len(agg), agg)
	}
	if agg["root;leaf"] != 30 {
		t.Fatalf("expected root;leaf with 30 samples, got %v", agg)
	}
}

func TestBuildFoldedStacks_Escaping(t *testing.T) {
	rep := mustParse(t, `Samples: cycles of d1 for x (1 samples)
 1 : 1000 : nop
`)
	mod := rep.Module("d1")
	mod.Funcs[0].Lines[0].Frames = []report.Frame{
		{Funcname: "Leaf;Name", Location: "a.c:1"},
		{Funcname: "Root\nName", Location: "b.c:2"},
	}
	agg := BuildFoldedStacks(mod)
	if len(agg) != 1 {
		t.Fatalf("expected 1 entry, got %v", agg)
	}
	for key := range agg {
		if key != "Root Name;Leaf_Name" {
			t.Fatalf("unexpected folded key: %q", key)
		}
	}
}

func TestWriteFoldedStacks_HottestFirst(t *testing.T) {
	rep := mustParse(t, `Samples: cycles of d1 for x (30 samples)
 10 : 1000 : nop
 20 : 1004 : nop
`)
	mod := rep.Module("d1")
	mod.Funcs[0].Lines[0].Frames = []report.Frame{{Funcname: "cold", Location: "a.c:1"}}
	mod.Funcs[0].Lines[1].Frames = []report.Frame{{Funcname: "hot", Location: "a.c:2"}}

	var b strings.Builder
	if err := WriteFoldedStacks(&b, mod); err != nil {
		t.Fatalf("WriteFoldedStacks returned error: %v", err)
	}
	want := "hot 20\ncold 10\n"
	if b.String() != want {
		t.Fatalf("unexpected folded output:\nwant %q\ngot  %q", want, b.String())
	}
}
