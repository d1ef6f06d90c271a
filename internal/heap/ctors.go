package heap

// ctors.go implements the typed builders of spec.md §4.3 (C3) atop the raw alloc/make_cell
// primitives of heap.go, plus the accessors the evaluator and builtin layer need to take
// values apart again.

import (
	"github.com/kettlelang/mes/internal/cell"
)

// Cons allocates a new pair.
func (h *Heap) Cons(car, cdr cell.Index) cell.Index {
	return h.makeCell(cell.TagPair, car, cdr)
}

// Car returns the first element of a pair (or any cell using the car/cdr convention:
// ref, variable, macro).
func (h *Heap) Car(idx cell.Index) cell.Index { return h.Cell(idx).Car() }

// Cdr returns the second element.
func (h *Heap) Cdr(idx cell.Index) cell.Index { return h.Cell(idx).Cdr() }

// SetCar mutates a pair's first element in place.
func (h *Heap) SetCar(idx, val cell.Index) {
	c := h.Cell(idx)
	c.A = val
	h.setCell(idx, c)
}

// SetCdr mutates a pair's second element in place. set! targets a variable cell's cdr
// through this same primitive (§4.5).
func (h *Heap) SetCdr(idx, val cell.Index) {
	c := h.Cell(idx)
	c.B = val
	h.setCell(idx, c)
}

// IsPair reports whether idx holds a pair.
func (h *Heap) IsPair(idx cell.Index) bool { return h.Cell(idx).Tag == cell.TagPair }

// Tag returns the tag of the cell at idx.
func (h *Heap) Tag(idx cell.Index) cell.Tag { return h.Cell(idx).Tag }

// MakeNumber allocates a fixnum cell.
func (h *Heap) MakeNumber(n int32) cell.Index {
	return h.makeCell(cell.TagNumber, 0, cell.Index(n))
}

// NumberValue returns the integer payload of a number cell.
func (h *Heap) NumberValue(idx cell.Index) int32 { return int32(h.Cell(idx).B) }

// MakeChar allocates a character cell.
func (h *Heap) MakeChar(r rune) cell.Index {
	return h.makeCell(cell.TagChar, 0, cell.Index(r))
}

// CharValue returns the rune payload of a char cell.
func (h *Heap) CharValue(idx cell.Index) rune { return rune(h.Cell(idx).B) }

// MakeString allocates a byte-string payload (a bytes header plus its packed payload
// run) and a lightweight string cell whose cdr points at it, per the data model: "string"
// cells forward only their cdr: the length is a descriptor word, not a reference.
func (h *Heap) MakeString(s string) cell.Index {
	bytesIdx := h.makeBytes(s)
	return h.makeCell(cell.TagString, cell.Index(len(s)), bytesIdx)
}

// makeBytes packs a Go string into a bytes header plus BytesCells(len(s)) payload cells,
// two bytes per cell (word), per the cell footprint formula in the data model.
func (h *Heap) makeBytes(s string) cell.Index {
	n := cell.BytesCells(len(s))
	header := h.alloc(1 + n)
	h.setCell(header, cell.Cell{Tag: cell.TagBytes, A: cell.Index(len(s)), B: header + 1})

	for i := 0; i < n; i++ {
		lo, hi := byte(0), byte(0)
		if j := i * 2; j < len(s) {
			lo = s[j]
		}

		if j := i*2 + 1; j < len(s) {
			hi = s[j]
		}

		h.setCell(header+1+cell.Index(i), cell.Cell{Tag: cell.TagBytes, A: cell.Index(lo), B: cell.Index(hi)})
	}

	return header
}

// StringValue decodes a string cell (or a bare bytes header) back into a Go string.
func (h *Heap) StringValue(idx cell.Index) string {
	c := h.Cell(idx)

	header := idx
	length := c.Length() // length is a descriptor word on both string and bytes cells

	if c.Tag == cell.TagString {
		header = c.Cdr()
	}

	hc := h.Cell(header)
	start := hc.Vector()
	n := cell.BytesCells(length)

	buf := make([]byte, 0, length)

	for i := 0; i < n; i++ {
		pc := h.Cell(start + cell.Index(i))
		buf = append(buf, byte(pc.A))

		if len(buf) < length {
			buf = append(buf, byte(pc.B))
		}
	}

	return string(buf[:length])
}

// MakeVector allocates a vector header plus n payload slots, each initialized to the
// unspecified singleton, per make_vector's documented behavior.
func (h *Heap) MakeVector(n int, unspecified cell.Index) cell.Index {
	header := h.alloc(1 + n)
	h.setCell(header, cell.Cell{Tag: cell.TagVector, A: cell.Index(n), B: header + 1})

	for i := 0; i < n; i++ {
		h.setCell(header+1+cell.Index(i), cell.Cell{Tag: cell.TagRef, A: cell.Nil, B: unspecified})
	}

	return header
}

// VectorLen returns a vector's element count.
func (h *Heap) VectorLen(idx cell.Index) int { return h.Cell(idx).Length() }

// VectorRef returns the i-th element of a vector.
func (h *Heap) VectorRef(idx cell.Index, i int) cell.Index {
	c := h.Cell(idx)
	slot := h.Cell(c.Vector() + cell.Index(i))

	return slot.B
}

// VectorSet mutates the i-th element of a vector in place.
func (h *Heap) VectorSet(idx cell.Index, i int, val cell.Index) {
	c := h.Cell(idx)
	slotIdx := c.Vector() + cell.Index(i)
	h.setCell(slotIdx, cell.Cell{Tag: cell.TagRef, A: cell.Nil, B: val})
}

// MakeStruct allocates a struct header laid out as (type printer f0 f1 ...), per §4.3.
func (h *Heap) MakeStruct(typ, printer cell.Index, fields []cell.Index) cell.Index {
	n := 2 + len(fields)
	header := h.alloc(1 + n)
	h.setCell(header, cell.Cell{Tag: cell.TagStruct, A: cell.Index(n), B: header + 1})
	h.setCell(header+1, cell.Cell{Tag: cell.TagRef, A: cell.Nil, B: typ})
	h.setCell(header+2, cell.Cell{Tag: cell.TagRef, A: cell.Nil, B: printer})

	for i, f := range fields {
		h.setCell(header+3+cell.Index(i), cell.Cell{Tag: cell.TagRef, A: cell.Nil, B: f})
	}

	return header
}

// StructType returns a struct's type descriptor (slot 0).
func (h *Heap) StructType(idx cell.Index) cell.Index { return h.VectorRef(idx, 0) }

// StructPrinter returns a struct's printer (slot 1).
func (h *Heap) StructPrinter(idx cell.Index) cell.Index { return h.VectorRef(idx, 1) }

// StructField returns field i (0-based, after type and printer).
func (h *Heap) StructField(idx cell.Index, i int) cell.Index { return h.VectorRef(idx, 2+i) }

// StructFieldCount returns the number of fields, excluding type and printer.
func (h *Heap) StructFieldCount(idx cell.Index) int { return h.Cell(idx).Length() - 2 }

// MakeClosure allocates a closure pairing a lambda's formals and body with its defining
// environment. The closure's car holds the closure marker descriptor (not itself a
// reference needing relocation beyond the marker singleton, which is already rooted);
// its cdr chains to (formals . (body . env)), ordinary pairs the collector relocates for
// free via the pair bucket.
func (h *Heap) MakeClosure(marker, formals, body, env cell.Index) cell.Index {
	inner := h.Cons(body, env)
	outer := h.Cons(formals, inner)

	return h.makeCell(cell.TagClosure, marker, outer)
}

// ClosureFormals returns a closure's formal parameter list.
func (h *Heap) ClosureFormals(idx cell.Index) cell.Index {
	return h.Car(h.Cdr(idx))
}

// ClosureBody returns a closure's body.
func (h *Heap) ClosureBody(idx cell.Index) cell.Index {
	return h.Car(h.Cdr(h.Cdr(idx)))
}

// ClosureEnv returns a closure's defining environment.
func (h *Heap) ClosureEnv(idx cell.Index) cell.Index {
	return h.Cdr(h.Cdr(h.Cdr(idx)))
}

// MakeVariable wraps a cell reference (typically a module binding pair) as a variable
// indirection, the device expansion uses so that later reads are O(1) and set! always
// targets the right cell (§4.7).
func (h *Heap) MakeVariable(ref cell.Index) cell.Index {
	return h.makeCell(cell.TagVariable, ref, cell.Nil)
}

// VariableRef returns the cell a variable indirection points at.
func (h *Heap) VariableRef(idx cell.Index) cell.Index { return h.Cell(idx).A }

// MakeContinuation reifies the current stack as a first-class value: a vector snapshot
// of every live stack word from depth to the top, referenced from the continuation's
// cdr (the car holds the raw depth as a plain descriptor, not a reference).
func (h *Heap) MakeContinuation(depth int, unspecified cell.Index) cell.Index {
	words := h.StackSlice(depth)
	vec := h.MakeVector(len(words), unspecified)

	for i, w := range words {
		h.VectorSet(vec, i, w)
	}

	return h.makeCell(cell.TagContinuation, cell.Index(depth), vec)
}

// ContinuationDepth returns the stack depth a continuation was captured at.
func (h *Heap) ContinuationDepth(idx cell.Index) int { return int(h.Cell(idx).A) }

// ContinuationWords returns the captured stack words of a continuation.
func (h *Heap) ContinuationWords(idx cell.Index) []cell.Index {
	vec := h.Cell(idx).Cdr()
	n := h.VectorLen(vec)
	out := make([]cell.Index, n)

	for i := range out {
		out[i] = h.VectorRef(vec, i)
	}

	return out
}

// MakeValues wraps a first value and a list of the rest as a first-class multiple-value
// compound: an ordinary pair whose tag is switched to "values" (§4.7). Per the scan-loop
// bucket rules (§4.2), only the cdr is forwarded by the collector; see gc.go's scanCell.
func (h *Heap) MakeValues(first, rest cell.Index) cell.Index {
	return h.makeCell(cell.TagValues, first, rest)
}

// IsValues reports whether idx holds a multiple-value compound.
func (h *Heap) IsValues(idx cell.Index) bool { return h.Cell(idx).Tag == cell.TagValues }

// ValuesFirst returns the first value of a multiple-value compound.
func (h *Heap) ValuesFirst(idx cell.Index) cell.Index { return h.Cell(idx).A }

// ValuesRest returns the list of remaining values.
func (h *Heap) ValuesRest(idx cell.Index) cell.Index { return h.Cell(idx).B }

// MakeMacro allocates a macro transformer cell (a closure-shaped value held by the
// macro table; see internal/macro).
func (h *Heap) MakeMacro(body cell.Index) cell.Index {
	return h.makeCell(cell.TagMacro, body, cell.Nil)
}

// MacroBody returns a macro cell's transformer body.
func (h *Heap) MacroBody(idx cell.Index) cell.Index { return h.Cell(idx).A }

// MakePort wraps a host-side port handle (an opaque integer key into a side table the
// evaluator's I/O layer owns) as a port cell.
func (h *Heap) MakePort(handle int32) cell.Index {
	return h.makeCell(cell.TagPort, cell.Index(handle), cell.Nil)
}

// PortHandle returns a port cell's host-side handle.
func (h *Heap) PortHandle(idx cell.Index) int32 { return int32(h.Cell(idx).A) }
