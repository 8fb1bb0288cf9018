package report

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Frame is one entry of the inlined call chain resolved for an instruction
// address, innermost first. Funcname is "??" when the symbol is unknown;
// Location is "<basename>:<line>", or "?:?" when no source info is available.
type Frame struct {
	Funcname string `json:"funcname"`
	Location string `json:"location"`
}

// Line is a single annotated disassembly line: its sample count, instruction
// address (lowercase hex, no prefix) and raw instruction text. Frames stays
// empty until the line's daemon is symbolized.
type Line struct {
	Address     string  `json:"address"`
	Samples     uint64  `json:"counter"`
	Instruction string  `json:"instruction"`
	Frames      []Frame `json:"frames"`
}

// Function groups the data lines that followed one header line.
//
// Samples is accumulated from data lines only. The header line carries its own
// sample count, which goes into the module and report totals; the two
// quantities are tracked independently and may disagree.
type Function struct {
	Samples uint64  `json:"counter"`
	Lines   []*Line `json:"lines"`
}

// Module is one named daemon/binary component. Functions appear in the order
// their header lines were seen.
type Module struct {
	Samples  uint64      `json:"counter"`
	NumFuncs uint64      `json:"num_funcs"`
	NumLines uint64      `json:"num_lines"`
	Funcs    []*Function `json:"funcs"`
}

// Report is the root of the aggregation tree: daemon -> function -> line.
// Mods iterates in first-seen order, which also fixes the rendering order.
type Report struct {
	TotalSamples uint64                                  `json:"counter"`
	NumMods      uint64                                  `json:"num_mods"`
	NumFuncs     uint64                                  `json:"num_funcs"`
	NumLines     uint64                                  `json:"num_lines"`
	Mods         *orderedmap.OrderedMap[string, *Module] `json:"mods"`
}

func NewReport() *Report {
	return &Report{Mods: orderedmap.New[string, *Module]()}
}

// Module returns the daemon registered under name, or nil.
func (r *Report) Module(name string) *Module {
	mod, ok := r.Mods.Get(name)
	if !ok {
		return nil
	}
	return mod
}

// addFunction records a header line: a new empty function is appended to the
// named daemon (inserted on first sight) and count is added to the daemon and
// report totals. Returns the index of the new function within the daemon.
func (r *Report) addFunction(name string, count uint64) int {
	mod := r.Module(name)
	if mod == nil {
		mod = &Module{Funcs: []*Function{}}
		r.Mods.Set(name, mod)
		r.NumMods++
	}
	mod.Funcs = append(mod.Funcs, &Function{Lines: []*Line{}})
	mod.Samples += count
	mod.NumFuncs++
	r.TotalSamples += count
	r.NumFuncs++
	return len(mod.Funcs) - 1
}

// addLine records a data line under the function opened by the most recent
// header line.
func (r *Report) addLine(name string, funcIdx int, line *Line) {
	mod := r.Module(name)
	fn := mod.Funcs[funcIdx]
	fn.Lines = append(fn.Lines, line)
	fn.Samples += line.Samples
	mod.NumLines++
	r.NumLines++
}
