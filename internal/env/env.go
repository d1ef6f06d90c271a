// Package env implements environment and module lookup (C5): name resolution over a
// lexical association list layered on a single global module, variable-cell mutation
// targets for set!, and the unbound-variable check the evaluator calls before a read
// completes.
package env

import (
	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
)

// Module holds a namespace's bindings as (symbol . value) pairs — the module is,
// itself, "a list of associations" per the glossary, but we index it by
// name for O(1) lookup the same way the teacher's MMIO indexes devices by address,
// while keeping the actual binding as an ordinary heap pair so set! can mutate it with
// plain set-cdr!.
type Module struct {
	index    map[string]int
	bindings []cell.Index // (symbol . value) pairs, in the heap
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{index: make(map[string]int)}
}

// Define binds name to value, creating the binding pair if it doesn't exist yet or
// mutating the existing one's cdr if it does (matching top-level (define ...)
// redefinition semantics).
func (m *Module) Define(h *heap.Heap, symbol cell.Index, name string, value cell.Index) cell.Index {
	if i, ok := m.index[name]; ok {
		pair := m.bindings[i]
		h.SetCdr(pair, value)

		return pair
	}

	pair := h.Cons(symbol, value)
	m.index[name] = len(m.bindings)
	m.bindings = append(m.bindings, pair)

	return pair
}

// Variable returns the (symbol . value) binding pair for name, so the caller may
// mutate it directly with set-cdr! (this is exactly what set! does when the name was
// not already rewritten to a variable indirection — §4.5).
func (m *Module) Variable(name string) (cell.Index, bool) {
	i, ok := m.index[name]
	if !ok {
		return cell.Nil, false
	}

	return m.bindings[i], true
}

// Ref returns the current value bound to name.
func (m *Module) Ref(h *heap.Heap, name string) (cell.Index, bool) {
	pair, ok := m.Variable(name)
	if !ok {
		return cell.Nil, false
	}

	return h.Cdr(pair), true
}

// Roots implements heap.Rooter.
func (m *Module) Roots() []*cell.Index {
	roots := make([]*cell.Index, len(m.bindings))
	for i := range m.bindings {
		roots[i] = &m.bindings[i]
	}

	return roots
}

// Lookup resolves name against the lexical environment env (an alist of (symbol .
// value) pairs, searched by eq? on the symbol cell) and falls back to the module when
// the alist is exhausted — "an association list terminated by the initial module
// reference" (§4.7), re-expressed here as an explicit fallback rather than a literal
// sentinel cell, since the module is otherwise a plain Go value the evaluator already
// holds a reference to. Lookup returns the binding pair (for set! targeting) and
// whether name was found at all.
func Lookup(h *heap.Heap, mod *Module, envAlist cell.Index, symbol cell.Index, name string) (cell.Index, bool) {
	for cur := envAlist; cur != h.Empty && h.IsPair(cur); cur = h.Cdr(cur) {
		pair := h.Car(cur)
		if !h.IsPair(pair) {
			continue
		}

		if h.Car(pair) == symbol {
			return pair, true
		}
	}

	return mod.Variable(name)
}

// AssertDefined raises an unbound-variable condition (via the returned bool) if value is
// the undefined singleton.
func AssertDefined(h *heap.Heap, value cell.Index) bool {
	return value != h.Undefined
}
