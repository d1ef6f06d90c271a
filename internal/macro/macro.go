// Package macro implements the process-wide macro table (C6): a single global mapping
// from symbol to macro transformer, consulted during expansion and never per-lexical-
// scope.
package macro

import (
	"github.com/kettlelang/mes/internal/cell"
)

// Table is a name-keyed lookup from macro name to macro cell, adapted from the teacher's
// MMIO device table (internal/vm/devices.go): a native Go map indexing into cell-store
// values, rather than a cell-store-resident hash table — exactly as the teacher's own
// memory-mapped I/O table is a host map of device handles, not a device itself. Keying
// by the symbol's interned string (rather than its cell.Index, which moves on every
// collection) means only the macro-cell values, not the keys, need to be tracked as GC
// roots; values live in a slice so Roots can hand the collector stable pointers directly
// into table storage instead of copies that would need writing back afterwards. Macro
// values remain first-class cells, scanned by the collector like any other value (§4.6).
type Table struct {
	index  map[string]int // name -> position in values
	values []cell.Index
}

// New creates an empty macro table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// Get returns the macro bound to name and true, or false if name is not a macro.
func (t *Table) Get(name string) (cell.Index, bool) {
	i, ok := t.index[name]
	if !ok {
		return cell.Nil, false
	}

	return t.values[i], true
}

// Set inserts or overwrites the macro bound to name.
func (t *Table) Set(name string, value cell.Index) {
	if i, ok := t.index[name]; ok {
		t.values[i] = value
		return
	}

	t.index[name] = len(t.values)
	t.values = append(t.values, value)
}

// Roots implements heap.Rooter: every macro cell referenced by the table must survive a
// collection. Pointers are into the table's own backing slice, so the collector's
// in-place overwrite is the final, durable update — no write-back step is needed.
func (t *Table) Roots() []*cell.Index {
	roots := make([]*cell.Index, len(t.values))
	for i := range t.values {
		roots[i] = &t.values[i]
	}

	return roots
}
