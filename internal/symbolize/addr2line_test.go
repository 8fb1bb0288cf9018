package symbolize

import (
	"strings"
	"testing"
)

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }

// scripted builds a resolver whose stdout side replays a canned addr2line
// transcript. Writes to stdin are discarded, so the transcript must match the
// query sequence of the test.
func scripted(transcript string) *Addr2Line {
	return newAddr2Line(nopWriteCloser{}, strings.NewReader(transcript))
}

func TestAddr2Line_InlineChain(t *testing.T) {
	a := scripted(`0x400500
inlined_helper
/src/util/inline.c:10
main
/home/user/foo.c:42
0xffffffffffffffff
??
??:0
`)
	frames, err := a.Frames(0x400500)
	if err != nil {
		t.Fatalf("Frames returned error: %v", err)
	}
	want := []Frame{
		{Func: "inlined_helper", File: "/src/util/inline.c", Line: 10},
		{Func: "main", File: "/home/user/foo.c", Line: 42},
	}
	if len(frames) != len(want) {
		t.Fatalf("unexpected frame count: want %d got %d (%+v)", len(want), len(frames), frames)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Fatalf("frame %d: want %+v got %+v", i, want[i], frames[i])
		}
	}
}

func TestAddr2Line_UnknownAddressYieldsNoFrames(t *testing.T) {
	a := scripted(`0x12345
??
??:0
0xffffffffffffffff
??
??:0
`)
	frames, err := a.Frames(0x12345)
	if err != nil {
		t.Fatalf("Frames returned error: %v", err)
	}
	if frames != nil {
		t.Fatalf("expected nil frames for uncovered address, got %+v", frames)
	}
}

func TestAddr2Line_ResultsAreCached(t *testing.T) {
	// The transcript covers exactly one round trip; the second call must be
	// served from the cache without touching the process.
	a := scripted(`0x1000
f
/a/b.c:1
0xffffffffffffffff
??
??:0
`)
	first, err := a.Frames(0x1000)
	if err != nil {
		t.Fatalf("first Frames call returned error: %v", err)
	}
	second, err := a.Frames(0x1000)
	if err != nil {
		t.Fatalf("cached Frames call returned error: %v", err)
	}
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}
}

func TestAddr2Line_TruncatedOutput(t *testing.T) {
	a := scripted("0x1000\nf\n")
	if _, err := a.Frames(0x1000); err == nil {
		t.Fatalf("expected error on truncated addr2line output, got nil")
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name     string
		funcLine string
		fileLine string
		want     Frame
	}{
		{
			name:     "plain",
			funcLine: "main",
			fileLine: "/home/user/foo.c:42",
			want:     Frame{Func: "main", File: "/home/user/foo.c", Line: 42},
		},
		{
			name:     "discriminator_suffix_stripped",
			funcLine: "f",
			fileLine: "/a/b.c:7 (discriminator 3)",
			want:     Frame{Func: "f", File: "/a/b.c", Line: 7},
		},
		{
			name:     "unknown_function_and_file",
			funcLine: "??",
			fileLine: "??:0",
			want:     Frame{Func: "??"},
		},
		{
			name:     "unknown_line_number",
			funcLine: "f",
			fileLine: "/a/b.c:?",
			want:     Frame{Func: "f", File: "/a/b.c", Line: 0},
		},
		{
			name:     "mangled_name_demangled",
			funcLine: "_Z3foov",
			fileLine: "/a/b.cc:3",
			want:     Frame{Func: "foo()", File: "/a/b.cc", Line: 3},
		},
		{
			name:     "empty_function",
			funcLine: "",
			fileLine: "/a/b.c:1",
			want:     Frame{Func: "??", File: "/a/b.c", Line: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFrame(tt.funcLine, tt.fileLine)
			if got != tt.want {
				t.Fatalf("parseFrame(%q, %q): want %+v got %+v", tt.funcLine, tt.fileLine, tt.want, got)
			}
		})
	}
}
