package report

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrOrphanDataLine marks a data line seen before any header line opened a
// function to attribute it to.
var ErrOrphanDataLine = errors.New("data line with no preceding header line")

var (
	// Header lines announce a sampled function: free-form text containing
	// "Samples", then "of <daemon> for", ending with "(<N> samples)".
	headerPattern = regexp.MustCompile(`Samples.*?of (.*?) for.*?\((\d+)\s*samples`)
	// Data lines carry "<count> : <address> : <instruction>", trailing
	// blanks trimmed.
	dataPattern = regexp.MustCompile(`(\d+)\s*:\s*([0-9a-zA-Z]+)\s*:\s*(.*?)\s*$`)
)

type eventKind int

const (
	eventIgnored eventKind = iota
	eventHeader
	eventData
)

// event is one classified physical line of the annotated report.
type event struct {
	kind        eventKind
	daemon      string
	count       uint64
	address     string
	instruction string
}

// classify matches a physical line against the header grammar first, then the
// data grammar. Anything else (blank lines, disassembly noise, separators) is
// ignored.
func classify(line string) (event, error) {
	if m := headerPattern.FindStringSubmatch(line); m != nil {
		count, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			return event{}, fmt.Errorf("bad sample count %q: %w", m[2], err)
		}
		return event{kind: eventHeader, daemon: m[1], count: count}, nil
	}
	if m := dataPattern.FindStringSubmatch(line); m != nil {
		count, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return event{}, fmt.Errorf("bad sample count %q: %w", m[1], err)
		}
		return event{kind: eventData, count: count, address: strings.ToLower(m[2]), instruction: m[3]}, nil
	}
	return event{kind: eventIgnored}, nil
}

// parserState tracks where data lines attach: either no header has been seen
// yet, or the function opened by the most recent header (daemon key plus
// function index; functions are not uniquely named, so an index it is).
type parserState struct {
	active  bool
	daemon  string
	funcIdx int
}

// Parse consumes the raw annotated report text and builds the aggregated
// tree. Lines are processed strictly in file order; no sorting is performed
// anywhere, daemons keep their first-seen order.
func Parse(text string) (*Report, error) {
	rep := NewReport()
	var state parserState
	for i, raw := range strings.Split(text, "\n") {
		ev, err := classify(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		switch ev.kind {
		case eventHeader:
			idx := rep.addFunction(ev.daemon, ev.count)
			state = parserState{active: true, daemon: ev.daemon, funcIdx: idx}
		case eventData:
			if !state.active {
				return nil, fmt.Errorf("line %d: %w", i+1, ErrOrphanDataLine)
			}
			rep.addLine(state.daemon, state.funcIdx, &Line{
				Address:     ev.address,
				Samples:     ev.count,
				Instruction: ev.instruction,
				Frames:      []Frame{},
			})
		}
	}
	return rep, nil
}
