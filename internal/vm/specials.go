package vm

import (
	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
)

// specials interns the reserved head symbols the evaluator recognizes directly, so
// dispatch compares cell.Index values rather than re-hashing a symbol's name string on
// every step.
type specials struct {
	Quote          cell.Index
	If             cell.Index
	Lambda         cell.Index
	Define         cell.Index
	SetX           cell.Index
	Begin          cell.Index
	DefineMacro    cell.Index
	CallCC         cell.Index
	CallCCLong     cell.Index
	CallWithValues cell.Index
	PrimitiveLoad  cell.Index
	BootModule     cell.Index
	CurrentModule  cell.Index
}

func newSpecials(h *heap.Heap) specials {
	return specials{
		Quote:          h.Intern("quote"),
		If:             h.Intern("if"),
		Lambda:         h.Intern("lambda"),
		Define:         h.Intern("define"),
		SetX:           h.Intern("set!"),
		Begin:          h.Intern("begin"),
		DefineMacro:    h.Intern("define-macro"),
		CallCC:         h.Intern("call/cc"),
		CallCCLong:     h.Intern("call-with-current-continuation"),
		CallWithValues: h.Intern("call-with-values"),
		PrimitiveLoad:  h.Intern("primitive-load"),
		BootModule:     h.Intern("boot-module"),
		CurrentModule:  h.Intern("current-module"),
	}
}
