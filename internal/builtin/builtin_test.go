package builtin_test

import (
	"errors"
	"testing"

	"github.com/kettlelang/mes/internal/builtin"
	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
)

func argList(h *heap.Heap, args ...cell.Index) cell.Index {
	out := h.Empty

	for i := len(args) - 1; i >= 0; i-- {
		out = h.Cons(args[i], out)
	}

	return out
}

func TestApplyArity2(t *testing.T) {
	h := heap.New()
	reg := builtin.NewRegistry()

	fnIdx := reg.Register(func(h *heap.Heap, args []cell.Index) (cell.Index, error) {
		return h.MakeNumber(h.NumberValue(args[0]) + h.NumberValue(args[1])), nil
	})

	name := h.Intern("add")
	b := builtin.Make(h, h.Unspecified, name, 2, fnIdx)

	result, err := builtin.Apply(h, reg, b, argList(h, h.MakeNumber(3), h.MakeNumber(4)))
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if h.NumberValue(result) != 7 {
		t.Errorf("Apply(add, 3, 4) = %d, want 7", h.NumberValue(result))
	}
}

func TestApplyArity0(t *testing.T) {
	h := heap.New()
	reg := builtin.NewRegistry()

	fnIdx := reg.Register(func(h *heap.Heap, args []cell.Index) (cell.Index, error) {
		return h.MakeNumber(42), nil
	})

	b := builtin.Make(h, h.Unspecified, h.Intern("answer"), 0, fnIdx)

	result, err := builtin.Apply(h, reg, b, h.Empty)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if h.NumberValue(result) != 42 {
		t.Errorf("Apply(answer) = %d, want 42", h.NumberValue(result))
	}
}

func TestApplyVariadic(t *testing.T) {
	h := heap.New()
	reg := builtin.NewRegistry()

	fnIdx := reg.Register(func(h *heap.Heap, args []cell.Index) (cell.Index, error) {
		sum := int32(0)
		for _, a := range args {
			sum += h.NumberValue(a)
		}

		return h.MakeNumber(sum), nil
	})

	b := builtin.Make(h, h.Unspecified, h.Intern("sum"), builtin.Variadic, fnIdx)

	result, err := builtin.Apply(h, reg, b, argList(h, h.MakeNumber(1), h.MakeNumber(2), h.MakeNumber(3)))
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if h.NumberValue(result) != 6 {
		t.Errorf("Apply(sum, 1, 2, 3) = %d, want 6", h.NumberValue(result))
	}
}

func TestApplyFlattensValuesAtArityOne(t *testing.T) {
	h := heap.New()
	reg := builtin.NewRegistry()

	fnIdx := reg.Register(func(h *heap.Heap, args []cell.Index) (cell.Index, error) {
		return args[0], nil
	})

	b := builtin.Make(h, h.Unspecified, h.Intern("identity"), 1, fnIdx)

	vals := h.MakeValues(h.MakeNumber(9), h.Cons(h.MakeNumber(10), h.Empty))

	result, err := builtin.Apply(h, reg, b, argList(h, vals))
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if h.NumberValue(result) != 9 {
		t.Errorf("Apply(identity, values(9,10)) = %d, want 9 (first value only)", h.NumberValue(result))
	}
}

func TestApplyArityMismatch(t *testing.T) {
	h := heap.New()
	reg := builtin.NewRegistry()

	fnIdx := reg.Register(func(h *heap.Heap, args []cell.Index) (cell.Index, error) {
		return h.Car(args[0]), nil
	})

	b := builtin.Make(h, h.Unspecified, h.Intern("car"), 1, fnIdx)

	if _, err := builtin.Apply(h, reg, b, h.Empty); !errors.Is(err, builtin.ErrWrongNumberOfArgs) {
		t.Errorf("Apply(car) with 0 args = %v, want %v", err, builtin.ErrWrongNumberOfArgs)
	}

	twoArgs := argList(h, h.MakeNumber(1), h.MakeNumber(2))
	if _, err := builtin.Apply(h, reg, b, twoArgs); !errors.Is(err, builtin.ErrWrongNumberOfArgs) {
		t.Errorf("Apply(car, 1, 2) = %v, want %v", err, builtin.ErrWrongNumberOfArgs)
	}
}

func TestApplyUnknownFunctionIndex(t *testing.T) {
	h := heap.New()
	reg := builtin.NewRegistry()

	b := builtin.Make(h, h.Unspecified, h.Intern("ghost"), 0, 99)

	if _, err := builtin.Apply(h, reg, b, h.Empty); err == nil {
		t.Errorf("Apply with unregistered function index should fail")
	}
}
