package pprof

import (
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/pprof/profile"

	"github.com/hotpath-tools/perfanno/internal/report"
)

// BuildProfile converts one daemon's annotated lines into a pprof profile:
// one pprof sample per data line, valued by its sample count, located at the
// line's address with the resolved inline chain attached as Line entries
// (innermost first, which is what pprof expects).
func BuildProfile(mod *report.Module, daemon string) (*profile.Profile, error) {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "cpu", Unit: "samples"},
	}

	funcs := map[string]*profile.Function{}
	locMap := map[uint64]*profile.Location{}
	nextFuncID := uint64(1)
	nextLocID := uint64(1)

	addFunction := func(name, file string) *profile.Function {
		key := name + "@" + file
		if fn, ok := funcs[key]; ok {
			return fn
		}
		fn := &profile.Function{
			ID:       nextFuncID,
			Name:     name,
			Filename: file,
		}
		nextFuncID++
		funcs[key] = fn
		p.Function = append(p.Function, fn)
		return fn
	}

	addLocation := func(line *report.Line, pc uint64) *profile.Location {
		if loc, ok := locMap[pc]; ok {
			return loc
		}
		var lines []profile.Line
		for _, frame := range line.Frames {
			file, lineNo := splitLocation(frame.Location)
			fn := addFunction(frame.Funcname, file)
			lines = append(lines, profile.Line{Function: fn, Line: lineNo})
		}
		loc := &profile.Location{
			ID:      nextLocID,
			Address: pc,
			Line:    lines,
		}
		nextLocID++
		locMap[pc] = loc
		p.Location = append(p.Location, loc)
		return loc
	}

	for _, fn := range mod.Funcs {
		for _, line := range fn.Lines {
			pc, err := strconv.ParseUint(line.Address, 16, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed address %q: %w", line.Address, err)
			}
			loc := addLocation(line, pc)
			p.Sample = append(p.Sample, &profile.Sample{
				Value:    []int64{int64(line.Samples)},
				Location: []*profile.Location{loc},
				Label:    map[string][]string{"daemon": {daemon}},
			})
		}
	}

	return p, nil
}

func splitLocation(location string) (string, int64) {
	colon := strings.LastIndex(location, ":")
	if colon <= 0 {
		return "", 0
	}
	file := location[:colon]
	if file == "?" {
		return "", 0
	}
	num, err := strconv.ParseInt(location[colon+1:], 10, 64)
	if err != nil {
		num = 0
	}
	return file, num
}

func WriteProfileGzip(p *profile.Profile, w io.Writer) error {
	gw := gzip.NewWriter(w)
	defer gw.Close()
	return p.Write(gw)
}
