// Package primitive registers the host-implemented procedures (arithmetic, pairs,
// predicates, equality, and multiple-value construction) that bootstrap code needs
// before anything can be expressed in Scheme itself, grounded in the same shape as the
// reference implementation's mes_builtins.c/mes_lib.c primitives.
package primitive

import (
	"fmt"

	"github.com/kettlelang/mes/internal/builtin"
	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
	"github.com/kettlelang/mes/internal/vm"
)

// Install registers every primitive procedure into m's builtin registry and binds each
// one under its Scheme name in m's top-level module.
func Install(m *vm.Machine) {
	h := m.Heap()
	reg := m.Builtins()
	mod := m.Module()
	ports := m.Ports()

	define := func(name string, arity builtin.Arity, fn builtin.Func) {
		idx := reg.Register(fn)
		sym := h.Intern(name)
		b := builtin.Make(h, h.Unspecified, sym, arity, idx)
		mod.Define(h, sym, name, b)
	}

	define("cons", 2, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		return h.Cons(a[0], a[1]), nil
	})
	define("car", 1, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		if !h.IsPair(a[0]) {
			return cell.Nil, &vm.EvalError{Kind: vm.ErrNotAPair, Form: a[0], Detail: "car"}
		}

		return h.Car(a[0]), nil
	})
	define("cdr", 1, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		if !h.IsPair(a[0]) {
			return cell.Nil, &vm.EvalError{Kind: vm.ErrNotAPair, Form: a[0], Detail: "cdr"}
		}

		return h.Cdr(a[0]), nil
	})
	define("set-car!", 2, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		h.SetCar(a[0], a[1])
		return h.Unspecified, nil
	})
	define("set-cdr!", 2, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		h.SetCdr(a[0], a[1])
		return h.Unspecified, nil
	})
	define("pair?", 1, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		return boolean(h, h.IsPair(a[0])), nil
	})
	define("null?", 1, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		return boolean(h, a[0] == h.Empty), nil
	})
	define("eq?", 2, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		return boolean(h, a[0] == a[1]), nil
	})
	define("not", 1, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		return boolean(h, a[0] == h.False), nil
	})

	define("+", builtin.Variadic, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		var sum int32
		for _, x := range a {
			sum += h.NumberValue(x)
		}

		return h.MakeNumber(sum), nil
	})
	define("*", builtin.Variadic, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		product := int32(1)
		for _, x := range a {
			product *= h.NumberValue(x)
		}

		return h.MakeNumber(product), nil
	})
	define("-", builtin.Variadic, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		if len(a) == 0 {
			return cell.Nil, wrongNumberOfArgs("-")
		}

		if len(a) == 1 {
			return h.MakeNumber(-h.NumberValue(a[0])), nil
		}

		diff := h.NumberValue(a[0])
		for _, x := range a[1:] {
			diff -= h.NumberValue(x)
		}

		return h.MakeNumber(diff), nil
	})
	define("=", builtin.Variadic, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		for i := 1; i < len(a); i++ {
			if h.NumberValue(a[i-1]) != h.NumberValue(a[i]) {
				return h.False, nil
			}
		}

		return h.True, nil
	})
	define("<", 2, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		return boolean(h, h.NumberValue(a[0]) < h.NumberValue(a[1])), nil
	})
	define(">", 2, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		return boolean(h, h.NumberValue(a[0]) > h.NumberValue(a[1])), nil
	})

	define("list", builtin.Variadic, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		out := h.Empty
		for i := len(a) - 1; i >= 0; i-- {
			out = h.Cons(a[i], out)
		}

		return out, nil
	})

	define("values", builtin.Variadic, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		switch len(a) {
		case 0:
			return h.MakeValues(h.Unspecified, h.Empty), nil
		case 1:
			return a[0], nil
		default:
			rest := h.Empty
			for i := len(a) - 1; i >= 1; i-- {
				rest = h.Cons(a[i], rest)
			}

			return h.MakeValues(a[0], rest), nil
		}
	})

	outputPort := func(h *heap.Heap, a []cell.Index, pos int) (int32, error) {
		if len(a) > pos {
			return h.PortHandle(a[pos]), nil
		}

		p, ok := h.Port("stdout")
		if !ok {
			return 0, fmt.Errorf("primitive: no stdout port registered")
		}

		return h.PortHandle(p), nil
	}

	define("write-char", builtin.Variadic, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		if len(a) == 0 {
			return cell.Nil, wrongNumberOfArgs("write-char")
		}

		handle, err := outputPort(h, a, 1)
		if err != nil {
			return cell.Nil, err
		}

		port, ok := ports.Get(handle)
		if !ok || port.Writer == nil {
			return cell.Nil, fmt.Errorf("primitive: write-char: port not open for output")
		}

		if _, err := fmt.Fprintf(port.Writer, "%c", h.CharValue(a[0])); err != nil {
			return cell.Nil, err
		}

		return h.Unspecified, nil
	})

	define("display", builtin.Variadic, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		if len(a) == 0 {
			return cell.Nil, wrongNumberOfArgs("display")
		}

		handle, err := outputPort(h, a, 1)
		if err != nil {
			return cell.Nil, err
		}

		port, ok := ports.Get(handle)
		if !ok || port.Writer == nil {
			return cell.Nil, fmt.Errorf("primitive: display: port not open for output")
		}

		if _, err := fmt.Fprint(port.Writer, WriteString(h, a[0])); err != nil {
			return cell.Nil, err
		}

		return h.Unspecified, nil
	})

	define("newline", builtin.Variadic, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		handle, err := outputPort(h, a, 0)
		if err != nil {
			return cell.Nil, err
		}

		port, ok := ports.Get(handle)
		if !ok || port.Writer == nil {
			return cell.Nil, fmt.Errorf("primitive: newline: port not open for output")
		}

		if _, err := fmt.Fprintln(port.Writer); err != nil {
			return cell.Nil, err
		}

		return h.Unspecified, nil
	})

	define("read-char", builtin.Variadic, func(h *heap.Heap, a []cell.Index) (cell.Index, error) {
		handle := int32(0)

		if len(a) > 0 {
			handle = h.PortHandle(a[0])
		} else if p, ok := h.Port("stdin"); ok {
			handle = h.PortHandle(p)
		}

		port, ok := ports.Get(handle)
		if !ok || port.Reader == nil {
			return cell.Nil, fmt.Errorf("primitive: read-char: port not open for input")
		}

		var buf [1]byte
		if _, err := port.Reader.Read(buf[:]); err != nil {
			return h.MakeChar(rune(-1)), nil // eof-object, per the minimal char-based eof convention
		}

		return h.MakeChar(rune(buf[0])), nil
	})
}

// WriteString renders v the way display would: strings without quotes, everything else
// deferring to a minimal atom printer. This subset only needs to stringify symbols,
// numbers, characters, and strings well enough to drive the REPL.
func WriteString(h *heap.Heap, v cell.Index) string {
	switch {
	case h.IsPair(v), v == h.Empty:
		return writeList(h, v)
	case v == h.True:
		return "#t"
	case v == h.False:
		return "#f"
	default:
		return writeAtom(h, v)
	}
}

func writeAtom(h *heap.Heap, v cell.Index) string {
	switch h.Tag(v) {
	case cell.TagSymbol:
		return h.SymbolName(v)
	case cell.TagNumber:
		return fmt.Sprintf("%d", h.NumberValue(v))
	case cell.TagChar:
		return string(h.CharValue(v))
	case cell.TagString:
		return h.StringValue(v)
	case cell.TagSpecial:
		if v == h.Unspecified {
			return ""
		}

		return fmt.Sprintf("#<%s>", h.Tag(v))
	default:
		return fmt.Sprintf("#<%s>", h.Tag(v))
	}
}

func writeList(h *heap.Heap, v cell.Index) string {
	if v == h.Empty {
		return "()"
	}

	out := "("
	first := true

	for h.IsPair(v) {
		if !first {
			out += " "
		}

		first = false
		out += WriteString(h, h.Car(v))
		v = h.Cdr(v)
	}

	if v != h.Empty {
		out += " . " + WriteString(h, v)
	}

	return out + ")"
}

func boolean(h *heap.Heap, b bool) cell.Index {
	if b {
		return h.True
	}

	return h.False
}
