package vm

// eval.go implements the eval/begin/if/define/set! transitions. Every handler here is one
// "instruction" of the state machine: it reads r1..r3, does at most one piece of real
// work, and leaves r0..r3 set for the next step. Tail positions are transitions that set
// r3 without pushing a frame; everything else pushes a resume frame first via pushCC.

import (
	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/env"
)

// doEval is vm_eval: r1 holds the expression, r2 the lexical environment.
func (m *Machine) doEval() error {
	h := m.h
	expr := m.r1

	switch h.Tag(expr) {
	case cell.TagSymbol:
		name := h.SymbolName(expr)

		pair, ok := env.Lookup(h, m.module, m.r2, expr, name)
		if !ok || !env.AssertDefined(h, h.Cdr(pair)) {
			return unboundVariable(expr, name)
		}

		m.r0, m.r3 = h.Cdr(pair), m.tags.Return

		return nil
	case cell.TagVariable:
		// An indirection left by the expand pass: read the binding pair it names.
		binding := h.VariableRef(expr)
		if !env.AssertDefined(h, h.Cdr(binding)) {
			return unboundVariable(expr, h.SymbolName(h.Car(binding)))
		}

		m.r0, m.r3 = h.Cdr(binding), m.tags.Return

		return nil
	case cell.TagPair:
		return m.doEvalPair()
	default:
		// Numbers, characters, strings, booleans, closures, builtins: self-evaluating.
		m.r0, m.r3 = expr, m.tags.Return

		return nil
	}
}

// doEvalPair dispatches a compound form: a reserved special form, a macro invocation, or
// an application.
func (m *Machine) doEvalPair() error {
	h := m.h
	expr := m.r1
	lexEnv := m.r2
	head := h.Car(expr)
	s := m.specials

	if h.Tag(head) == cell.TagSymbol {
		switch head {
		case s.Quote:
			m.r0, m.r3 = h.Car(h.Cdr(expr)), m.tags.Return
			return nil
		case s.Lambda:
			formals := h.Car(h.Cdr(expr))
			body := h.Cdr(h.Cdr(expr))
			m.r0 = h.MakeClosure(h.ClosureTag, formals, body, lexEnv)
			m.r3 = m.tags.Return

			return nil
		case s.If:
			m.r1 = h.Cdr(expr)
			m.r3 = m.tags.If

			return nil
		case s.Begin:
			m.r1 = h.Cdr(expr)
			m.r3 = m.tags.Begin

			return nil
		case s.Define:
			return m.startDefine(expr, lexEnv)
		case s.SetX:
			return m.startSetX(expr, lexEnv)
		case s.DefineMacro:
			return m.startDefineMacro(expr, lexEnv)
		case s.PrimitiveLoad:
			return m.startPrimitiveLoad(expr, lexEnv)
		case s.CallCC, s.CallCCLong:
			if err := m.pushCC(m.tags.CallWithCurrentContinuation2, cell.Nil, lexEnv); err != nil {
				return err
			}

			m.r1 = h.Car(h.Cdr(expr))
			m.r3 = m.tags.Eval

			return nil
		case s.CallWithValues:
			if err := m.pushCC(m.tags.CallWithValues2, cell.Nil, lexEnv); err != nil {
				return err
			}

			m.r1 = h.Cdr(expr)
			m.r2 = lexEnv
			m.r3 = m.tags.Evlis

			return nil
		}

		if mc, ok := m.macros.Get(h.SymbolName(head)); ok {
			if err := m.pushCC(m.tags.MacroExpand, cell.Nil, lexEnv); err != nil {
				return err
			}

			m.r1 = h.Cons(h.MacroBody(mc), h.Cdr(expr))
			m.r3 = m.tags.Apply

			return nil
		}
	}

	// Application: evaluate the operator, then the operands, then apply.
	if err := m.pushCC(m.tags.Eval2, h.Cdr(expr), lexEnv); err != nil {
		return err
	}

	m.r1 = head
	m.r3 = m.tags.Eval

	return nil
}

// doEval2 resumes after the operator expression has been evaluated (r0): evaluate the
// operand expressions next.
func (m *Machine) doEval2() error {
	operatorValue := m.r0
	argExprs := m.r1
	e := m.r2

	if err := m.pushCC(m.tags.Apply2, operatorValue, e); err != nil {
		return err
	}

	m.r1 = argExprs
	m.r2 = e
	m.r3 = m.tags.Evlis

	return nil
}

// doApply2 resumes after the operands have been evaluated into a list (r0): build the
// (operator . operands) pair and enter application dispatch.
func (m *Machine) doApply2() error {
	operatorValue := m.r1 // restored by the frame push in doEval2
	args := m.r0

	m.r1 = m.h.Cons(operatorValue, args)
	m.r3 = m.tags.EvalCheckFunc

	return nil
}

// doBegin is vm_begin: r1 is the remaining body forms, r2 the environment. The last form
// is evaluated in tail position.
func (m *Machine) doBegin() error {
	h := m.h
	body := m.r1

	if body == h.Empty {
		m.r0, m.r3 = h.Unspecified, m.tags.Return
		return nil
	}

	rest := h.Cdr(body)
	if rest == h.Empty {
		m.r1 = h.Car(body)
		m.r3 = m.tags.Eval

		return nil
	}

	if err := m.pushCC(m.tags.BeginEval, rest, m.r2); err != nil {
		return err
	}

	m.r1 = h.Car(body)
	m.r3 = m.tags.Eval

	return nil
}

// doBeginEval discards the value of a non-tail body form and continues with the rest.
func (m *Machine) doBeginEval() error {
	m.r3 = m.tags.Begin
	return nil
}

// doIf is vm_if: r1 is (test then . else-or-nil).
func (m *Machine) doIf() error {
	h := m.h
	rest := m.r1

	if err := m.pushCC(m.tags.IfExpr, h.Cdr(rest), m.r2); err != nil {
		return err
	}

	m.r1 = h.Car(rest)
	m.r3 = m.tags.Eval

	return nil
}

// doIfExpr resumes after the test has been evaluated (r0), choosing the branch.
func (m *Machine) doIfExpr() error {
	h := m.h
	thenElse := m.r1

	if m.r0 != h.False {
		m.r1 = h.Car(thenElse)
	} else if rest := h.Cdr(thenElse); rest != h.Empty {
		m.r1 = h.Car(rest)
	} else {
		m.r0, m.r3 = h.Unspecified, m.tags.Return
		return nil
	}

	m.r3 = m.tags.Eval

	return nil
}

// startDefine handles both (define name value) and (define (name . formals) body...).
func (m *Machine) startDefine(expr, e cell.Index) error {
	h := m.h
	rest := h.Cdr(expr)
	target := h.Car(rest)

	var name, valueExpr cell.Index

	if h.Tag(target) == cell.TagPair {
		name = h.Car(target)
		formals := h.Cdr(target)
		body := h.Cdr(rest)
		valueExpr = h.Cons(m.specials.Lambda, h.Cons(formals, body))
	} else {
		name = target

		if vrest := h.Cdr(rest); vrest != h.Empty {
			valueExpr = h.Car(vrest)
		} else {
			valueExpr = h.Unspecified
		}
	}

	if err := m.pushCC(m.tags.EvalDefine, name, e); err != nil {
		return err
	}

	m.r1 = valueExpr
	m.r2 = e
	m.r3 = m.tags.Eval

	return nil
}

// doEvalDefine resumes after the value expression is evaluated, binding it at top level.
func (m *Machine) doEvalDefine() error {
	h := m.h
	name := m.r1

	m.module.Define(h, name, h.SymbolName(name), m.r0)
	m.r0, m.r3 = h.Unspecified, m.tags.Return

	return nil
}

func (m *Machine) startSetX(expr, e cell.Index) error {
	h := m.h
	rest := h.Cdr(expr)
	name := h.Car(rest)
	valueExpr := h.Car(h.Cdr(rest))

	if err := m.pushCC(m.tags.EvalSetX, name, e); err != nil {
		return err
	}

	m.r1 = valueExpr
	m.r2 = e
	m.r3 = m.tags.Eval

	return nil
}

// doEvalSetX resumes after the new value is evaluated and mutates the binding's cell.
// Per §4.5: a "variable" indirection is mutated directly, otherwise the binding pair is
// looked up (lexical environment first, then the module) and its cdr is set.
func (m *Machine) doEvalSetX() error {
	h := m.h
	name := m.r1

	if h.Tag(name) == cell.TagVariable {
		h.SetCdr(h.VariableRef(name), m.r0)
	} else {
		pair, ok := env.Lookup(h, m.module, m.r2, name, h.SymbolName(name))
		if !ok {
			return unboundVariable(name, h.SymbolName(name))
		}

		h.SetCdr(pair, m.r0)
	}

	m.r0, m.r3 = h.Unspecified, m.tags.Return

	return nil
}

// startDefineMacro evaluates the transformer expression (ordinarily a lambda) and, on
// return, registers it in the macro table. Like startDefine, it accepts both
// (define-macro name transformer) and the procedure-shorthand (define-macro (name
// . formals) body...), desugaring the latter into (define-macro name (lambda formals
// body...)) before evaluating the transformer.
func (m *Machine) startDefineMacro(expr, e cell.Index) error {
	h := m.h
	rest := h.Cdr(expr)
	target := h.Car(rest)

	var name, transformerExpr cell.Index

	if h.Tag(target) == cell.TagPair {
		name = h.Car(target)
		formals := h.Cdr(target)
		body := h.Cdr(rest)
		transformerExpr = h.Cons(m.specials.Lambda, h.Cons(formals, body))
	} else {
		name = target
		transformerExpr = h.Car(h.Cdr(rest))
	}

	if err := m.pushCC(m.tags.EvalMacroExpandEval, name, e); err != nil {
		return err
	}

	m.r1 = transformerExpr
	m.r2 = e
	m.r3 = m.tags.Eval

	return nil
}

// doEvalDefineMacro resumes after the transformer closure is evaluated.
func (m *Machine) doEvalDefineMacro() error {
	h := m.h
	name := m.r1

	m.macros.Set(h.SymbolName(name), h.MakeMacro(m.r0))
	m.r0, m.r3 = h.Unspecified, m.tags.Return

	return nil
}

// doMacroExpand resumes after a macro transformer has been applied to the unevaluated
// operand forms (r0 is the expansion): re-enter eval on the expansion.
func (m *Machine) doMacroExpand() error {
	m.r1 = m.r0
	m.r3 = m.tags.Eval

	return nil
}
