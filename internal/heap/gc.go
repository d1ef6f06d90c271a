package heap

// gc.go implements a classic Cheney two-space copying collector over cell.Index, per
// spec.md §4.2. There is no generational or incremental structure: every collection is a
// full collection.

import (
	"github.com/kettlelang/mes/internal/cell"
)

// CheckSafety runs a collection if fewer than GCSafety cells remain in the arena. The
// evaluator calls this before any logical step that may allocate (a "safe point"); it is
// the caller's responsibility to call it, exactly as spec.md describes gc_check.
func (h *Heap) CheckSafety(extraRoots ...*cell.Index) {
	if int(h.free)+h.cfg.GCSafety <= h.cfg.ArenaSize {
		return
	}

	h.Collect(extraRoots...)
}

// Collect runs a full collection. extraRoots are additional pointers to preserve beyond
// the heap's own registered Rooters (typically the evaluator's own r0..r3 registers,
// passed explicitly by the caller rather than via AddRoot so the evaluator need not
// implement Rooter itself for a single call site).
func (h *Heap) Collect(extraRoots ...*cell.Index) {
	h.collections++
	h.log.Debug("gc start", "free", h.free, "arena", h.cfg.ArenaSize, "collection", h.collections)

	h.scratch = make([]cell.Cell, len(h.cells))
	newFree := cell.Index(1) // index 0 stays reserved in new space too.

	copyRoot := func(p *cell.Index) {
		*p = h.copyInto(&newFree, *p)
	}

	// Roots, in order: every interned symbol in the symbol table, the named port
	// cells, registered rooters (macro table, initial module, ...), the explicit
	// caller-supplied registers, the heap's singletons, then every live stack slot.
	for name, idx := range h.symbols {
		h.symbols[name] = h.copyInto(&newFree, idx)
	}

	for name, idx := range h.ports {
		h.ports[name] = h.copyInto(&newFree, idx)
	}

	for _, r := range h.rooters {
		for _, p := range r.Roots() {
			copyRoot(p)
		}
	}

	for _, p := range extraRoots {
		copyRoot(p)
	}

	// The heap's own well-known singletons are plain struct fields, not part of any
	// map or registered Rooter, so they need their own explicit forwarding pass.
	for _, p := range []*cell.Index{
		&h.Empty, &h.True, &h.False, &h.Unspecified, &h.Undefined,
		&h.ClosureTag, &h.CircularMark, &h.BeginTag,
	} {
		copyRoot(p)
	}

	for i := h.sp; i < len(h.stack); i++ {
		h.stack[i] = h.copyInto(&newFree, h.stack[i])
	}

	// Scan loop: advance through scratch space, forwarding subfields that are live
	// references for each cell's tag. Cells allocated by copyInto above but not yet
	// scanned will be picked up as scan catches up to newFree.
	for scan := cell.Index(1); scan < newFree; scan++ {
		h.scanCell(&newFree, scan)
	}

	live := newFree
	h.cells, h.scratch = h.scratch, nil
	h.free = newFree

	h.log.Debug("gc done", "live", live, "collection", h.collections)

	h.maybeGrow(live)
}

// copyInto is the forwarding primitive (spec.md's `copy`). It allocates the object's new
// location in scratch space (tracked by newFree), bulk-copies header-plus-payload runs
// atomically, and leaves a broken-heart in the old cell so later references to the same
// object resolve to the same new location.
func (h *Heap) copyInto(newFree *cell.Index, old cell.Index) cell.Index {
	if old == cell.Nil {
		return cell.Nil
	}

	oc := h.cells[old]

	if oc.Tag == cell.TagBrokenHeart {
		return oc.A
	}

	switch oc.Tag {
	case cell.TagVector, cell.TagStruct:
		return h.copyRun(newFree, old, oc, oc.Length())
	case cell.TagBytes:
		return h.copyRun(newFree, old, oc, cell.BytesCells(oc.Length()))
	default:
		new := *newFree
		*newFree++
		h.scratch[new] = oc
		h.cells[old] = cell.Cell{Tag: cell.TagBrokenHeart, A: new}

		return new
	}
}

// copyRun relocates a header cell together with its n-cell payload run as a single
// atomic operation, preserving the header-immediately-followed-by-payload contiguity
// invariant from the data model. The new header's vector field is recomputed rather than
// forwarded, since contiguity guarantees it is always new+1.
func (h *Heap) copyRun(newFree *cell.Index, old cell.Index, oc cell.Cell, n int) cell.Index {
	new := *newFree
	*newFree += cell.Index(1 + n)

	h.scratch[new] = cell.Cell{Tag: oc.Tag, A: oc.A, B: new + 1}

	start := oc.Vector()
	for i := 0; i < n; i++ {
		h.scratch[new+1+cell.Index(i)] = h.cells[start+cell.Index(i)]
	}

	h.cells[old] = cell.Cell{Tag: cell.TagBrokenHeart, A: new}

	return new
}

// scanCell forwards the live reference subfields of the cell at idx in scratch space,
// per the bucket rules of spec.md §4.2. Encountering a broken-heart while scanning
// scratch space would mean the collector's own invariant was violated; that is a
// programming error and is reported as a system error by the caller (see vm package).
func (h *Heap) scanCell(newFree *cell.Index, idx cell.Index) {
	c := h.scratch[idx]

	switch c.Tag {
	case cell.TagPair, cell.TagRef, cell.TagVariable, cell.TagMacro:
		c.A = h.copyInto(newFree, c.A)
		c.B = h.copyInto(newFree, c.B)
	case cell.TagClosure, cell.TagContinuation, cell.TagKeyword, cell.TagPort,
		cell.TagSpecial, cell.TagString, cell.TagSymbol, cell.TagValues:
		if c.B != cell.Nil {
			c.B = h.copyInto(newFree, c.B)
		}
	default:
		// TagVector, TagStruct, TagBytes headers: their own A/B words are not
		// live references (length is raw, vector was recomputed by copyRun).
		// TagNumber, TagChar, TagFunction, TagFree: no references to forward.
		return
	}

	h.scratch[idx] = c
}

// maybeGrow doubles the arena, jam region, and safety margin (up to MaxArenaSize) when
// the collection leaves too little headroom — interpreted, per SPEC_FULL.md's Open
// Question decision, as: growth is considered whenever the arena is below its maximum
// and the collection actually copied a non-trivial live set.
func (h *Heap) maybeGrow(live cell.Index) {
	if h.cfg.ArenaSize >= h.cfg.MaxArenaSize || live <= 1 {
		return
	}

	grow := func(n, max int) int {
		n *= 2
		if n > max {
			n = max
		}

		return n
	}

	h.cfg.ArenaSize = grow(h.cfg.ArenaSize, h.cfg.MaxArenaSize)
	h.cfg.JamSize = grow(h.cfg.JamSize, h.cfg.MaxArenaSize)
	h.cfg.GCSafety = grow(h.cfg.GCSafety, h.cfg.MaxArenaSize)

	if int(live)+h.cfg.JamSize > h.cfg.ArenaSize {
		h.cfg.JamSize = int(float64(live) * 1.5)
	}

	grown := make([]cell.Cell, h.cfg.ArenaSize+h.cfg.JamSize)
	copy(grown, h.cells[:live])
	h.cells = grown

	h.log.Debug("arena grown", "arena", h.cfg.ArenaSize, "jam", h.cfg.JamSize, "safety", h.cfg.GCSafety)
}
