// Package vm implements the evaluator core (C7): a register-threaded state machine that
// dispatches on an explicit continuation tag until it reaches vm_return, using the
// heap's explicit frame stack in place of the host call stack. This is what makes tail
// calls free and call/cc a plain slice copy (see internal/heap's PushFrame/PopFrame and
// MakeContinuation), the same way the machine this package is adapted from
// (internal/vm/exec.go) replaces recursive instruction dispatch with an explicit
// fetch/decode/execute cycle over named registers.
package vm

import (
	"errors"
	"fmt"

	"github.com/kettlelang/mes/internal/builtin"
	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/env"
	"github.com/kettlelang/mes/internal/heap"
	"github.com/kettlelang/mes/internal/ioport"
	"github.com/kettlelang/mes/internal/log"
	"github.com/kettlelang/mes/internal/macro"
)

// Machine holds the evaluator's four registers, the heap they operate over, and the
// host-side collaborators (builtin registry, macro table, top-level module) the
// evaluator consults during a step.
type Machine struct {
	h        *heap.Heap
	log      *log.Logger
	builtins *builtin.Registry
	macros   *macro.Table
	module   *env.Module
	ports    *ioport.Table

	tags     Tags
	specials specials

	// r0 is the value register (the running result).
	// r1 and r2 are general-purpose: an expression and its environment, a pair of
	// saved values, or an argument list, depending on the tag in r3.
	// r3 is the continuation tag that selects the next step.
	r0, r1, r2, r3 cell.Index

	steps int
}

// Option configures a Machine during New.
type Option func(*Machine)

// WithLogger overrides the machine's logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// New creates a Machine bound to h, with its own builtin registry, macro table, and
// top-level module. The caller is expected to register primitives into Builtins() and
// top-level bindings into Module() before the first Eval.
func New(h *heap.Heap, opts ...Option) *Machine {
	m := &Machine{
		h:        h,
		log:      log.DefaultLogger(),
		builtins: builtin.NewRegistry(),
		macros:   macro.New(),
		module:   env.NewModule(),
		ports:    ioport.NewTable(),
		tags:     newTags(h),
		specials: newSpecials(h),
	}

	for _, opt := range opts {
		opt(m)
	}

	h.AddRoot(m.macros)
	h.AddRoot(m.module)

	return m
}

// Heap returns the heap the machine operates over, so a primitive-registration package
// can allocate builtin structs and intern names without the machine needing to expose
// allocation methods of its own.
func (m *Machine) Heap() *heap.Heap { return m.h }

// Builtins returns the machine's builtin function registry, for primitive registration.
func (m *Machine) Builtins() *builtin.Registry { return m.builtins }

// Macros returns the machine's macro table.
func (m *Machine) Macros() *macro.Table { return m.macros }

// Module returns the machine's top-level module.
func (m *Machine) Module() *env.Module { return m.module }

// Ports returns the machine's host-side I/O port table, the side table port cell
// handles index into.
func (m *Machine) Ports() *ioport.Table { return m.ports }

// Eval evaluates expr in the lexical environment envAlist (an association list, or
// h.Empty for none beyond the module) and runs the state machine to completion.
func (m *Machine) Eval(expr, envAlist cell.Index) (cell.Index, error) {
	m.r1, m.r2, m.r3 = expr, envAlist, m.tags.Eval
	return m.run()
}

// Expand runs the expand pass (§4.7) over a list of top-level forms and returns the
// rewritten list, giving source loaded outside the evaluator (the boot loader's own
// files, as opposed to ones reached through primitive-load) the same variable-cell
// treatment.
func (m *Machine) Expand(forms cell.Index) (cell.Index, error) {
	m.r1, m.r2, m.r3 = forms, m.h.Empty, m.tags.BeginExpand
	return m.run()
}

// run drives the state machine from whatever is currently in r1..r3 to completion.
func (m *Machine) run() (cell.Index, error) {
	baseDepth := m.h.StackDepth()

	for {
		m.h.CheckSafety(&m.r0, &m.r1, &m.r2)

		if m.r3 == m.tags.Return {
			proc, savedR1, savedR2, _, _, ok := m.h.PopFrame()
			if !ok {
				return m.r0, nil
			}

			m.r1, m.r2, m.r3 = savedR1, savedR2, proc

			continue
		}

		if err := m.step(); err != nil {
			if m.dispatchThrow(err, baseDepth) {
				continue
			}

			return cell.Nil, err
		}

		m.steps++
	}
}

// dispatchThrow implements the evaluator's failure semantics (§7, §4.7): it locates
// throw in the current module and, if bound, tail-calls it with (key . args) in place
// of unwinding, re-entering user code to decide the failure's disposition. It reports
// whether it found a handler; when it didn't, the caller returns the original error.
func (m *Machine) dispatchThrow(origErr error, depth int) bool {
	var ee *EvalError
	if !errors.As(origErr, &ee) {
		return false
	}

	h := m.h

	throwProc, ok := m.module.Ref(h, "throw")
	if !ok {
		return false
	}

	h.RestoreStack(depth, nil)

	var args cell.Index
	if ee.Detail != "" {
		args = h.Cons(ee.Form, h.Cons(h.MakeString(ee.Detail), h.Empty))
	} else {
		args = h.Cons(ee.Form, h.Empty)
	}

	key := h.Intern(ee.Key())

	m.r1 = h.Cons(throwProc, h.Cons(key, args))
	m.r2 = h.Empty
	m.r3 = m.tags.Apply

	return true
}

// pushCC saves the two words of context the resume tag will need and schedules resumeTag
// to run once the current sub-computation (left running in r1/r2/r3) reaches vm_return.
// This is push_cc: "capture continuation and switch", per §4.7.
func (m *Machine) pushCC(resumeTag, saved1, saved2 cell.Index) error {
	if !m.h.PushFrame(resumeTag, saved1, saved2, m.h.Unspecified, m.h.Unspecified) {
		return systemError(m.r1, "stack overflow")
	}

	return nil
}

// step executes exactly one state transition: it inspects r3 and dispatches to the
// handler for that tag, which is responsible for setting r0..r3 for the next iteration
// (and, for non-tail operations, pushing a frame recording where to resume).
func (m *Machine) step() error {
	t := m.tags

	switch m.r3 {
	case t.Eval:
		return m.doEval()
	case t.Eval2:
		return m.doEval2()
	case t.Begin:
		return m.doBegin()
	case t.BeginEval:
		return m.doBeginEval()
	case t.If:
		return m.doIf()
	case t.IfExpr:
		return m.doIfExpr()
	case t.EvalDefine:
		return m.doEvalDefine()
	case t.EvalSetX:
		return m.doEvalSetX()
	case t.Evlis:
		return m.doEvlis()
	case t.Evlis2:
		return m.doEvlis2()
	case t.Evlis3:
		return m.doEvlis3()
	case t.Apply:
		return m.doApply()
	case t.Apply2:
		return m.doApply2()
	case t.MacroExpand:
		return m.doMacroExpand()
	case t.CallWithCurrentContinuation2:
		return m.doCallCC2()
	case t.CallWithValues2:
		return m.doCallWithValues2()
	case t.CallWithValues3:
		return m.doCallWithValues3()
	case t.EvalMacroExpandEval:
		return m.doEvalDefineMacro()
	case t.EvalMacroExpandExpand:
		return m.doEvalMacroExpandExpand()
	case t.MacroExpandLambda:
		return m.doMacroExpandLambda()
	case t.MacroExpandDefine:
		return m.doMacroExpandDefine()
	case t.MacroExpandDefineMacro:
		return m.doMacroExpandDefineMacro()
	case t.MacroExpandSetX:
		return m.doMacroExpandSetX()
	case t.MacroExpandCar:
		return m.doMacroExpandCar()
	case t.MacroExpandCdr:
		return m.doMacroExpandCdr()
	case t.BeginExpand:
		return m.doBeginExpand()
	case t.BeginExpandEval:
		return m.doBeginExpandEval()
	case t.BeginExpandMacro:
		return m.doBeginExpandMacro()
	case t.EvalPmatchCar:
		return m.doEvalPmatchCar()
	case t.EvalPmatchCdr:
		return m.doEvalPmatchCdr()
	case t.BeginReadInputFile:
		return m.doBeginReadInputFile()
	case t.BeginExpandPrimitiveLoad:
		return m.doBeginExpandPrimitiveLoad()
	case t.BeginPrimitiveLoad:
		return m.doBeginPrimitiveLoad()
	case t.EvalCheckFunc:
		return m.doEvalCheckFunc()
	default:
		return systemError(m.r1, fmt.Sprintf("unknown continuation tag %s", m.r3))
	}
}
