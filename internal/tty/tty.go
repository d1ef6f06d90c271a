// Package tty provides terminal emulation.
package tty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/kettlelang/mes/internal/heap"
	"github.com/kettlelang/mes/internal/ioport"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Console is a REPL terminal adapted for raw-mode, character-at-a-time I/O[^1]. It wraps
// the process's standard streams and, once bound, becomes the stream the evaluator's
// stdin/stdout ports (§4.1 "port table") read and write through, the same way the
// machine this package is adapted from wires a Console to a simulated keyboard and
// display device instead of a real terminal.
//
// [1]: See: tty(4), termios(4).
type Console struct {
	in    *os.File
	out   *term.Terminal
	fd    int
	state *term.State
}

// ErrNoTTY is returned if standard input is not a terminal. In this case, raw-mode
// console I/O is not supported.
var ErrNoTTY error = errors.New("console: not a TTY")

// NewConsole creates a Console using the provided streams. If the input stream is not a
// terminal, ErrNoTTY is returned. Callers are responsible for calling [Console.Restore]
// to return the terminal to its initial state.
func NewConsole(sin, sout, _ *os.File) (*Console, error) {
	fd := int(sin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	cons := Console{
		fd:    fd,
		in:    sin,
		out:   term.NewTerminal(sin, ""),
		state: saved,
	}

	if err := cons.setTerminalParams(1, 0); err != nil {
		return nil, err
	}

	return &cons, nil
}

// BindPorts rebinds the stdin and stdout ports already registered in h's port table
// (by internal/boot, under "stdin" and "stdout") so that reads and writes through those
// ports go through the raw terminal instead of the process's plain standard streams.
func (c *Console) BindPorts(h *heap.Heap, ports *ioport.Table) {
	if p, ok := h.Port("stdin"); ok {
		ports.Rebind(h.PortHandle(p), &ioport.Port{Reader: c})
	}

	if p, ok := h.Port("stdout"); ok {
		ports.Rebind(h.PortHandle(p), &ioport.Port{Writer: c})
	}
}

// Read implements io.Reader, reading raw bytes from the terminal.
func (c *Console) Read(p []byte) (int, error) {
	return c.in.Read(p)
}

// Write implements io.Writer, writing raw bytes to the terminal.
func (c *Console) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

// ReadLine reads one line of input with the terminal's editing and history support.
func (c *Console) ReadLine() (string, error) {
	return c.out.ReadLine()
}

// SetPrompt sets the prompt ReadLine displays before each line.
func (c *Console) SetPrompt(prompt string) {
	c.out.SetPrompt(prompt)
}

// Writer returns an io.Writer that writes to the terminal.
func (c *Console) Writer() io.Writer {
	return c.out
}

// Restore returns the terminal to its initial state.
func (c *Console) Restore() {
	_ = os.Stdin.SetReadDeadline(time.Now())
	_ = term.Restore(c.fd, c.state)
}

func (c *Console) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	_ = os.Stdin.SetReadDeadline(time.Time{})

	return nil
}
