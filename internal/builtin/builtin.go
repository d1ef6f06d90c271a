// Package builtin implements the uniform application contract for host-implemented
// primitives (C4): a struct value carrying a name, declared arity, and an opaque
// function-index the host resolves against its own registry, plus the one-level
// automatic flattening of first-class multiple values at call sites.
package builtin

import (
	"errors"
	"fmt"

	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
)

// ErrWrongNumberOfArgs is returned by Apply when the supplied argument count does not
// match a builtin's declared arity. The vm package wraps it with the applying form to
// build the evaluator's own EvalError (§4.4: "the evaluator's job ... via check_formals").
var ErrWrongNumberOfArgs = errors.New("builtin: wrong number of arguments")

// Arity is the declared argument count a builtin accepts. Variadic builtins use
// Variadic, matching the function-index-and-arity struct layout of §4.4.
type Arity int32

const Variadic Arity = -1

// Func is the host-side implementation of a primitive: it receives the heap so it can
// allocate (which may trigger a collection — callers must not cache indices obtained
// before calling into a builtin across a safe point, per §6) and the raw argument
// indices already unpacked according to arity.
type Func func(h *heap.Heap, args []cell.Index) (cell.Index, error)

// Registry resolves an opaque function-index to its host implementation, mirroring the
// teacher's MMIO table (internal/vm/devices.go): a native Go slice indexed by a small
// integer key, holding host-side handlers, looked up at apply time rather than stored as a Go
// function value inside the cell store (cells only ever hold cell.Index and raw
// numbers, never host pointers).
type Registry struct {
	funcs []Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds fn and returns the function-index builtins should store to reach it.
func (r *Registry) Register(fn Func) int32 {
	r.funcs = append(r.funcs, fn)
	return int32(len(r.funcs) - 1)
}

// Lookup resolves a function-index to its host implementation.
func (r *Registry) Lookup(idx int32) (Func, bool) {
	if idx < 0 || int(idx) >= len(r.funcs) {
		return nil, false
	}

	return r.funcs[idx], true
}

// Make allocates a builtin struct value: (tag=<builtin>, name, arity, function-index),
// per §4.4. typeTag is the Scheme-level type descriptor distinguishing builtins from
// other struct values (see heap.MakeStruct's (type printer f0 f1 ...) layout).
func Make(h *heap.Heap, typeTag cell.Index, name cell.Index, arity Arity, fnIndex int32) cell.Index {
	return h.MakeStruct(typeTag, h.Unspecified, []cell.Index{
		name,
		h.MakeNumber(int32(arity)),
		h.MakeNumber(fnIndex),
	})
}

// Arity returns a builtin struct's declared arity.
func Arity_(h *heap.Heap, b cell.Index) Arity {
	return Arity(h.NumberValue(h.StructField(b, 1)))
}

// FuncIndex returns a builtin struct's function-index.
func FuncIndex(h *heap.Heap, b cell.Index) int32 {
	return h.NumberValue(h.StructField(b, 2))
}

// Name returns a builtin struct's registered name symbol.
func Name(h *heap.Heap, b cell.Index) cell.Index {
	return h.StructField(b, 0)
}

// Apply dispatches a builtin struct value against an argument list, implementing the
// arity-based unpacking and the one-level values-splicing rule of §4.4: a values
// compound passed as the first argument (when arity >= 1 or variadic) or the second
// (when arity >= 2 or variadic) is unwrapped to its first value before dispatch. Per
// SPEC_FULL.md's Open Question decision, only call-with-values ever sees the full
// splice; every other consumer, including a builtin of arity 1 legitimately passed a
// values object, sees only the first value.
func Apply(h *heap.Heap, reg *Registry, b cell.Index, argList cell.Index) (cell.Index, error) {
	arity := Arity_(h, b)

	args, err := toSlice(h, argList)
	if err != nil {
		return cell.Nil, err
	}

	if arity != Variadic && int(arity) != len(args) {
		return cell.Nil, ErrWrongNumberOfArgs
	}

	flattenAt := func(i int) {
		if i >= len(args) {
			return
		}

		if h.IsValues(args[i]) {
			args[i] = h.ValuesFirst(args[i])
		}
	}

	if arity >= 1 || arity == Variadic {
		flattenAt(0)
	}

	if arity >= 2 || arity == Variadic {
		flattenAt(1)
	}

	fn, ok := reg.Lookup(FuncIndex(h, b))
	if !ok {
		return cell.Nil, fmt.Errorf("builtin: unregistered function index %d", FuncIndex(h, b))
	}

	switch arity {
	case 0:
		return fn(h, nil)
	case 1:
		return fn(h, args[:min(1, len(args))])
	case 2:
		return fn(h, args[:min(2, len(args))])
	case 3:
		return fn(h, args[:min(3, len(args))])
	case Variadic:
		return fn(h, args)
	default:
		return cell.Nil, fmt.Errorf("builtin: invalid arity %d", arity)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}

	return b
}

// toSlice flattens a Scheme list of arguments into a Go slice of indices.
func toSlice(h *heap.Heap, list cell.Index) ([]cell.Index, error) {
	var out []cell.Index

	for cur := list; cur != h.Empty; {
		if !h.IsPair(cur) {
			return nil, fmt.Errorf("builtin: improper argument list")
		}

		out = append(out, h.Car(cur))
		cur = h.Cdr(cur)
	}

	return out, nil
}
