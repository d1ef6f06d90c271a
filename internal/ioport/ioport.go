// Package ioport holds the host-side table that port cells' handles index into: each
// entry pairs an io.Reader and/or io.Writer with the port cell that names it, so
// primitives like write-char and read-char can reach the real stream a port handle
// stands for without the heap itself knowing anything about *os.File or terminals.
package ioport

import "io"

// Port is one entry in the table: a readable and/or writable stream. A port opened for
// output only leaves Reader nil, and vice versa.
type Port struct {
	Reader io.Reader
	Writer io.Writer
}

// Table is a growable slice of ports, indexed by the int32 handle a port cell carries.
// It is analogous to builtin.Registry: a flat side table the heap's tagged cells point
// into instead of embedding host resources directly in GC-managed memory.
type Table struct {
	ports []*Port
}

// NewTable creates an empty port table.
func NewTable() *Table {
	return &Table{}
}

// Register adds p to the table and returns its handle.
func (t *Table) Register(p *Port) int32 {
	t.ports = append(t.ports, p)
	return int32(len(t.ports) - 1)
}

// Get returns the port at handle, if any.
func (t *Table) Get(handle int32) (*Port, bool) {
	if handle < 0 || int(handle) >= len(t.ports) {
		return nil, false
	}

	return t.ports[handle], true
}

// Rebind replaces the port at handle with p, used when a console takes over the
// standard streams after boot has already registered placeholder ports for them.
func (t *Table) Rebind(handle int32, p *Port) {
	if handle < 0 || int(handle) >= len(t.ports) {
		return
	}

	t.ports[handle] = p
}
