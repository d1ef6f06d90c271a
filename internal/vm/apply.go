package vm

// apply.go implements vm_apply: dispatching a (procedure . arguments) pair to a closure,
// a host builtin, or a reified continuation.

import (
	"errors"

	"github.com/kettlelang/mes/internal/builtin"
	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
)

// doApply is vm_apply: r1 is the (procedure . arguments) pair. A closure application is
// a tail call — it replaces the current body in place rather than pushing a frame. A
// macro or special value in operator position is a programming error, not a value a
// well-formed expansion should ever produce, so it is reported the same way a wrong-type
// argument is.
func (m *Machine) doApply() error {
	h := m.h
	pair := m.r1
	proc := h.Car(pair)
	args := h.Cdr(pair)

	switch h.Tag(proc) {
	case cell.TagClosure:
		newEnv, err := bindFormals(h, h.ClosureFormals(proc), args, h.ClosureEnv(proc))
		if err != nil {
			return err
		}

		m.r1 = h.ClosureBody(proc)
		m.r2 = newEnv
		m.r3 = m.tags.Begin

		return nil
	case cell.TagStruct:
		value, err := builtin.Apply(h, m.builtins, proc, args)
		if errors.Is(err, builtin.ErrWrongNumberOfArgs) {
			return wrongNumberOfArgs(pair)
		} else if err != nil {
			return err
		}

		m.r0, m.r3 = value, m.tags.Return

		return nil
	case cell.TagContinuation:
		depth := h.ContinuationDepth(proc)
		h.RestoreStack(depth, h.ContinuationWords(proc))

		if args == h.Empty {
			m.r0 = h.Unspecified
		} else {
			m.r0 = h.Car(args)
		}

		m.r3 = m.tags.Return

		return nil
	default:
		return wrongTypeArg(pair, "not applicable")
	}
}

// bindFormals conses one (name . value) pair per formal parameter onto baseEnv. formals
// may be a proper list (fixed arity), a bare symbol (full rest-arg binding), or a dotted
// list (fixed args plus a rest-arg), matching ordinary Scheme lambda-list shapes.
func bindFormals(h *heap.Heap, formals, args, baseEnv cell.Index) (cell.Index, error) {
	env := baseEnv
	f, a := formals, args

	for h.Tag(f) == cell.TagPair {
		if !h.IsPair(a) {
			return cell.Nil, wrongNumberOfArgs(formals)
		}

		env = h.Cons(h.Cons(h.Car(f), h.Car(a)), env)
		f, a = h.Cdr(f), h.Cdr(a)
	}

	if f != h.Empty {
		env = h.Cons(h.Cons(f, a), env)
	} else if a != h.Empty {
		return cell.Nil, wrongNumberOfArgs(formals)
	}

	return env, nil
}

// doCallCC2 resumes after call/cc's receiver procedure has been evaluated (r0): capture
// the current stack as a first-class continuation and apply the receiver to it. Because
// the heap's stack is a flat slice, capture is a single StackSlice copy (see
// heap.MakeContinuation) rather than anything resembling a host-stack walk.
func (m *Machine) doCallCC2() error {
	h := m.h
	receiver := m.r0

	k := h.MakeContinuation(h.StackDepth(), h.Unspecified)
	m.r1 = h.Cons(receiver, h.Cons(k, h.Empty))
	m.r3 = m.tags.Apply

	return nil
}

// doCallWithValues2 resumes after both the producer and consumer expressions have been
// evaluated (r0 is the two-element list (producer consumer)): apply the producer with no
// arguments next.
func (m *Machine) doCallWithValues2() error {
	h := m.h
	producer := h.Car(m.r0)
	consumer := h.Car(h.Cdr(m.r0))

	if err := m.pushCC(m.tags.CallWithValues3, consumer, h.Empty); err != nil {
		return err
	}

	m.r1 = h.Cons(producer, h.Empty)
	m.r3 = m.tags.Apply

	return nil
}

// doCallWithValues3 resumes after the producer has run (r0 is its result, possibly a
// multiple-value compound): apply the consumer to the full spread of values, in tail
// position.
func (m *Machine) doCallWithValues3() error {
	h := m.h
	consumer := m.r1

	var args cell.Index
	if h.IsValues(m.r0) {
		args = h.Cons(h.ValuesFirst(m.r0), h.ValuesRest(m.r0))
	} else {
		args = h.Cons(m.r0, h.Empty)
	}

	m.r1 = h.Cons(consumer, args)
	m.r3 = m.tags.Apply

	return nil
}
