package symbolize

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// sentinelPC is appended after every query. addr2line runs with -a, so it
// echoes each address back, and the sentinel echo delimits the frame group of
// the address we actually asked about. The sentinel itself always resolves to
// a single ??/??:0 pair, which we consume and drop.
const sentinelPC = "0xffffffffffffffff"

// Addr2Line resolves addresses against one binary's debug information by
// driving a long-running `addr2line -afi` process. -f prints function names,
// -i expands inlined call chains (innermost first). Not safe for concurrent
// use; the whole pipeline is single-threaded.
type Addr2Line struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	cache  map[uint64]cacheEntry
}

// cacheEntry memoizes per-address results so duplicate addresses across data
// lines cost a single subprocess round trip.
type cacheEntry struct {
	frames []Frame
	err    error
}

// Open loads the binary's debug information by starting addr2line against it.
// A first sentinel round trip is performed eagerly, so a binary addr2line
// cannot handle fails Open rather than the first lookup.
func Open(binary string) (*Addr2Line, error) {
	if _, err := os.Stat(binary); err != nil {
		return nil, fmt.Errorf("can't read binary %s: %w", binary, err)
	}
	cmd := exec.Command("addr2line", "-afi", "-e", binary)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe to addr2line: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe from addr2line: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start addr2line: %w", err)
	}
	a := newAddr2Line(stdin, stdout)
	a.cmd = cmd
	if err := a.probe(); err != nil {
		stdin.Close()
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("failed to load debug info from %s: %w", binary, err)
	}
	return a, nil
}

// newAddr2Line wires the resolver to an already-running process (or a fake in
// tests).
func newAddr2Line(stdin io.WriteCloser, stdout io.Reader) *Addr2Line {
	return &Addr2Line{
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		cache:  make(map[uint64]cacheEntry),
	}
}

// Frames returns the inline frame chain covering pc, innermost first, or nil
// when the debug info does not cover the address.
func (a *Addr2Line) Frames(pc uint64) ([]Frame, error) {
	if entry, ok := a.cache[pc]; ok {
		return entry.frames, entry.err
	}
	frames, err := a.lookup(pc)
	a.cache[pc] = cacheEntry{frames: frames, err: err}
	return frames, err
}

func (a *Addr2Line) Close() error {
	a.stdin.Close()
	if a.cmd == nil {
		return nil
	}
	return a.cmd.Wait()
}

// probe sends only the sentinel and consumes its echo and frame pair.
func (a *Addr2Line) probe() error {
	if _, err := fmt.Fprintf(a.stdin, "%s\n", sentinelPC); err != nil {
		return err
	}
	echo, err := a.readLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(echo, "0x") {
		return fmt.Errorf("unexpected addr2line output %q", echo)
	}
	if _, err := a.readLine(); err != nil {
		return err
	}
	_, err = a.readLine()
	return err
}

func (a *Addr2Line) lookup(pc uint64) ([]Frame, error) {
	if _, err := fmt.Fprintf(a.stdin, "0x%x\n%s\n", pc, sentinelPC); err != nil {
		return nil, fmt.Errorf("addr2line write failed: %w", err)
	}
	echo, err := a.readLine()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(echo, "0x") {
		return nil, fmt.Errorf("expected address echo from addr2line, got %q", echo)
	}
	var frames []Frame
	for {
		funcLine, err := a.readLine()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(funcLine, "0x") {
			// sentinel echo: consume its ??/??:0 pair and stop
			if _, err := a.readLine(); err != nil {
				return nil, err
			}
			if _, err := a.readLine(); err != nil {
				return nil, err
			}
			break
		}
		fileLine, err := a.readLine()
		if err != nil {
			return nil, err
		}
		frames = append(frames, parseFrame(funcLine, fileLine))
	}
	if len(frames) == 1 && frames[0].Func == "??" && frames[0].File == "" {
		// the debug info does not cover this address at all
		return nil, nil
	}
	return frames, nil
}

func (a *Addr2Line) readLine() (string, error) {
	line, err := a.stdout.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("addr2line read failed: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// parseFrame interprets one (function, file:line) pair printed by addr2line.
func parseFrame(funcLine, fileLine string) Frame {
	frame := Frame{Func: strings.TrimSpace(funcLine)}
	if frame.Func == "" {
		frame.Func = "??"
	} else {
		frame.Func = demangle.Filter(frame.Func)
	}
	loc := strings.TrimSpace(fileLine)
	if i := strings.Index(loc, " (discriminator"); i >= 0 {
		loc = loc[:i]
	}
	colon := strings.LastIndex(loc, ":")
	if colon < 0 {
		return frame
	}
	file := loc[:colon]
	if file == "" || file == "??" {
		return frame
	}
	num, err := strconv.Atoi(loc[colon+1:])
	if err != nil {
		num = 0
	}
	frame.File = file
	frame.Line = num
	return frame
}
