package symbolize

// Frame is one entry of the inline call chain covering an address, as
// reported by the debug-info resolver. File is empty when no source location
// is known for the frame.
type Frame struct {
	Func string
	File string
	Line int
}

// Resolver is the opaque debug-info capability the engine depends on: it is
// loaded once for one binary and then queried per address. A nil frame slice
// with a nil error means the debug info simply does not cover the address.
type Resolver interface {
	Frames(pc uint64) ([]Frame, error)
	Close() error
}
