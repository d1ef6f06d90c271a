package vm

// expand.go implements the expand pass of §4.7: a walk over a form, run once before it
// is evaluated, that resolves every identifier which is neither a bound formal nor one
// of the handful of reserved names (boot-module, current-module, primitive-load) against
// the current module and, where it resolves, rewrites the occurrence to a "variable"
// indirection (heap.MakeVariable). A later read through that occurrence is then a
// single indirection rather than an alist walk, and set! mutates the cell the
// indirection names regardless of how many lexical frames sit between the occurrence
// and the binding (doEvalSetX's cell.TagVariable branch).
//
// The walk is register-threaded the same way eval is: every stage reads r1/r2, does one
// piece of work, and either returns (r3 = Return, r0 = result) or sets up the next
// stage. ctx (r2, where used) is a plain list of the symbols currently bound by an
// enclosing lambda's formals — not cons'd as (symbol . anything), just the bare symbol
// cells, since expand never needs a value for them, only membership.

import (
	"os"

	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/reader"
)

// extendContext adds every name in formals (a formals list: proper, dotted, or a bare
// rest-arg symbol) to ctx.
func extendContext(m *Machine, ctx, formals cell.Index) cell.Index {
	h := m.h
	f := formals

	for h.Tag(f) == cell.TagPair {
		ctx = h.Cons(h.Car(f), ctx)
		f = h.Cdr(f)
	}

	if f != h.Empty {
		ctx = h.Cons(f, ctx)
	}

	return ctx
}

func inContext(m *Machine, ctx, name cell.Index) bool {
	h := m.h

	for cur := ctx; cur != h.Empty && h.IsPair(cur); cur = h.Cdr(cur) {
		if h.Car(cur) == name {
			return true
		}
	}

	return false
}

// expandIdentifier resolves a single symbol against ctx and the module, returning a
// variable indirection in place of a symbol that resolves to a module binding, or name
// unchanged otherwise (bound formal, reserved name, or genuinely unbound — the latter is
// left for doEval's ordinary lookup to raise unbound-variable at the point of use).
func (m *Machine) expandIdentifier(name, ctx cell.Index) cell.Index {
	h := m.h

	if h.Tag(name) != cell.TagSymbol {
		return name
	}

	if inContext(m, ctx, name) {
		return name
	}

	switch name {
	case m.specials.PrimitiveLoad, m.specials.BootModule, m.specials.CurrentModule:
		return name
	}

	pair, ok := m.module.Variable(h.SymbolName(name))
	if !ok {
		return name
	}

	return h.MakeVariable(pair)
}

// doEvalMacroExpandExpand is the core per-form expand step: r1 is the form, r2 the
// bound-formals context.
func (m *Machine) doEvalMacroExpandExpand() error {
	h := m.h
	expr := m.r1
	ctx := m.r2
	s := m.specials

	switch h.Tag(expr) {
	case cell.TagSymbol:
		m.r0, m.r3 = m.expandIdentifier(expr, ctx), m.tags.Return
		return nil
	case cell.TagVariable:
		// Already rewritten by an earlier pass: an opaque leaf, per §9's note that
		// expansion should not re-visit a replaced occurrence.
		m.r0, m.r3 = expr, m.tags.Return
		return nil
	case cell.TagPair:
		head := h.Car(expr)

		if h.Tag(head) == cell.TagSymbol {
			switch head {
			case s.Quote:
				m.r0, m.r3 = expr, m.tags.Return
				return nil
			case s.Lambda:
				return m.doEvalMacroExpandLambda(expr, ctx)
			case s.Define:
				return m.doEvalMacroExpandDefine(expr, ctx)
			case s.DefineMacro:
				m.r3 = m.tags.MacroExpandDefineMacro
				return nil
			case s.SetX:
				return m.doEvalMacroExpandSetX(expr, ctx)
			}

			if mc, ok := m.macros.Get(h.SymbolName(head)); ok {
				if err := m.pushCC(m.tags.BeginExpandMacro, cell.Nil, ctx); err != nil {
					return err
				}

				m.r1 = h.Cons(h.MacroBody(mc), h.Cdr(expr))
				m.r3 = m.tags.Apply

				return nil
			}
		}

		// An ordinary application: expand the operator, then the operand list.
		if err := m.pushCC(m.tags.MacroExpandCar, h.Cdr(expr), ctx); err != nil {
			return err
		}

		m.r1 = head
		m.r2 = ctx
		m.r3 = m.tags.EvalMacroExpandExpand

		return nil
	default:
		// Numbers, characters, strings, booleans: self-representing syntax.
		m.r0, m.r3 = expr, m.tags.Return
		return nil
	}
}

// doMacroExpandDefineMacro leaves a (define-macro ...) form untouched: the transformer
// is compile-time machinery the expand pass does not rewrite.
func (m *Machine) doMacroExpandDefineMacro() error {
	m.r0, m.r3 = m.r1, m.tags.Return
	return nil
}

// doBeginExpandMacro resumes after a macro transformer has produced its expansion (r0)
// during the expand pass: the expansion itself still needs expanding.
func (m *Machine) doBeginExpandMacro() error {
	m.r1 = m.r0
	m.r3 = m.tags.EvalMacroExpandExpand

	return nil
}

// doMacroExpandCar resumes after an application's operator has been expanded (r0):
// expand the operand list next.
func (m *Machine) doMacroExpandCar() error {
	argExprs := m.r1 // restored: the unexpanded operand list
	ctx := m.r2      // restored

	if err := m.pushCC(m.tags.MacroExpandCdr, m.r0, ctx); err != nil {
		return err
	}

	m.r1 = argExprs
	m.r2 = ctx
	m.r3 = m.tags.BeginExpand

	return nil
}

// doMacroExpandCdr resumes after the operand list has been expanded (r0): recombine.
func (m *Machine) doMacroExpandCdr() error {
	operator := m.r1 // restored: the expanded operator

	m.r0 = m.h.Cons(operator, m.r0)
	m.r3 = m.tags.Return

	return nil
}

// doEvalMacroExpandLambda handles (lambda formals body...): the body is expanded with
// formals added to the context, then the formals list is reattached unrewritten
// (binding occurrences are never targets of the variable-indirection rewrite).
func (m *Machine) doEvalMacroExpandLambda(expr, ctx cell.Index) error {
	h := m.h
	formals := h.Car(h.Cdr(expr))
	body := h.Cdr(h.Cdr(expr))
	newCtx := extendContext(m, ctx, formals)

	if err := m.pushCC(m.tags.MacroExpandLambda, formals, ctx); err != nil {
		return err
	}

	m.r1 = body
	m.r2 = newCtx
	m.r3 = m.tags.BeginExpand

	return nil
}

func (m *Machine) doMacroExpandLambda() error {
	h := m.h
	formals := m.r1 // restored

	m.r0 = h.Cons(m.specials.Lambda, h.Cons(formals, m.r0))
	m.r3 = m.tags.Return

	return nil
}

// doEvalMacroExpandDefine handles both (define name value) and the procedure shorthand
// (define (name . formals) body...), extending the context with formals only for the
// latter. name itself is never rewritten: it is a binding occurrence, not a reference.
func (m *Machine) doEvalMacroExpandDefine(expr, ctx cell.Index) error {
	h := m.h
	rest := h.Cdr(expr)
	target := h.Car(rest)

	if h.Tag(target) == cell.TagPair {
		formals := h.Cdr(target)
		body := h.Cdr(rest)
		newCtx := extendContext(m, ctx, formals)

		if err := m.pushCC(m.tags.MacroExpandDefine, target, ctx); err != nil {
			return err
		}

		m.r1 = body
		m.r2 = newCtx
		m.r3 = m.tags.BeginExpand

		return nil
	}

	if vrest := h.Cdr(rest); vrest != h.Empty {
		if err := m.pushCC(m.tags.MacroExpandDefine, target, ctx); err != nil {
			return err
		}

		m.r1 = h.Car(vrest)
		m.r2 = ctx
		m.r3 = m.tags.EvalMacroExpandExpand

		return nil
	}

	m.r0, m.r3 = expr, m.tags.Return

	return nil
}

func (m *Machine) doMacroExpandDefine() error {
	h := m.h
	target := m.r1 // restored

	if h.Tag(target) == cell.TagPair {
		m.r0 = h.Cons(m.specials.Define, h.Cons(target, m.r0))
	} else {
		m.r0 = h.Cons(m.specials.Define, h.Cons(target, h.Cons(m.r0, h.Empty)))
	}

	m.r3 = m.tags.Return

	return nil
}

// doEvalMacroExpandSetX handles (set! name value): name is resolved the same way a
// reference would be, so a later doEvalSetX sees a variable indirection and mutates it
// directly (§4.5), rather than re-walking the environment at set! time.
func (m *Machine) doEvalMacroExpandSetX(expr, ctx cell.Index) error {
	h := m.h
	rest := h.Cdr(expr)
	name := h.Car(rest)
	valueExpr := h.Car(h.Cdr(rest))

	target := m.expandIdentifier(name, ctx)

	if err := m.pushCC(m.tags.MacroExpandSetX, target, ctx); err != nil {
		return err
	}

	m.r1 = valueExpr
	m.r2 = ctx
	m.r3 = m.tags.EvalMacroExpandExpand

	return nil
}

func (m *Machine) doMacroExpandSetX() error {
	h := m.h
	target := m.r1 // restored, possibly already a variable indirection

	m.r0 = h.Cons(m.specials.SetX, h.Cons(target, h.Cons(m.r0, h.Empty)))
	m.r3 = m.tags.Return

	return nil
}

// doBeginExpand walks a list of forms (a body, an operand list, or a top-level program),
// expanding each element in turn and rebuilding the list in order. r1 is the remaining
// list, r2 the context.
func (m *Machine) doBeginExpand() error {
	h := m.h
	forms := m.r1
	ctx := m.r2

	if forms == h.Empty {
		m.r0, m.r3 = h.Empty, m.tags.Return
		return nil
	}

	if err := m.pushCC(m.tags.BeginExpandEval, h.Cdr(forms), ctx); err != nil {
		return err
	}

	m.r1 = h.Car(forms)
	m.r2 = ctx
	m.r3 = m.tags.EvalMacroExpandExpand

	return nil
}

// doBeginExpandEval resumes after the first element is expanded (r0): expand the rest.
func (m *Machine) doBeginExpandEval() error {
	rest := m.r1 // restored: remaining forms
	ctx := m.r2  // restored

	if err := m.pushCC(m.tags.EvalPmatchCdr, m.r0, ctx); err != nil {
		return err
	}

	m.r1 = rest
	m.r2 = ctx
	m.r3 = m.tags.BeginExpand

	return nil
}

// doEvalPmatchCdr resumes after the rest of the list is expanded (r0): cons the
// already-expanded first element back onto it. Named for the original source's pmatch
// helper, whose role here is the analogous "done with the cdr, recombine" step of a
// recursive list walk.
func (m *Machine) doEvalPmatchCdr() error {
	first := m.r1 // restored: the expanded first element

	m.r0 = m.h.Cons(first, m.r0)
	m.r3 = m.tags.Return

	return nil
}

// startPrimitiveLoad begins (primitive-load path-expr): the path expression is
// evaluated first, since it need not be a literal.
func (m *Machine) startPrimitiveLoad(expr, e cell.Index) error {
	h := m.h
	pathExpr := h.Car(h.Cdr(expr))

	if err := m.pushCC(m.tags.EvalPmatchCar, cell.Nil, e); err != nil {
		return err
	}

	m.r1 = pathExpr
	m.r2 = e
	m.r3 = m.tags.Eval

	return nil
}

// doEvalPmatchCar resumes after the path expression is evaluated (r0): check_formals'
// counterpart for primitive-load's own single argument, verifying it is a string before
// touching the filesystem.
func (m *Machine) doEvalPmatchCar() error {
	h := m.h

	if h.Tag(m.r0) != cell.TagString {
		return wrongTypeArg(m.r0, "primitive-load: not a string")
	}

	m.r3 = m.tags.BeginReadInputFile

	return nil
}

// doBeginReadInputFile reads and parses the file named by r0 into a list of top-level
// forms, then proceeds to expand them.
func (m *Machine) doBeginReadInputFile() error {
	h := m.h
	path := h.StringValue(m.r0)

	src, err := os.ReadFile(path)
	if err != nil {
		return systemError(m.r0, err.Error())
	}

	forms, err := reader.New(h, string(src)).ReadAll()
	if err != nil {
		return systemError(m.r0, err.Error())
	}

	formsList := h.Empty
	for i := len(forms) - 1; i >= 0; i-- {
		formsList = h.Cons(forms[i], formsList)
	}

	m.r1 = formsList
	m.r2 = h.Empty
	m.r3 = m.tags.BeginExpandPrimitiveLoad

	return nil
}

// doBeginExpandPrimitiveLoad expands every form read from the file before any of them
// run, exactly as it would for forms reached any other way.
func (m *Machine) doBeginExpandPrimitiveLoad() error {
	if err := m.pushCC(m.tags.BeginPrimitiveLoad, cell.Nil, cell.Nil); err != nil {
		return err
	}

	m.r3 = m.tags.BeginExpand

	return nil
}

// doBeginPrimitiveLoad resumes after every form is expanded (r0): evaluate them in
// sequence at top level, exactly as vm_begin evaluates a body.
func (m *Machine) doBeginPrimitiveLoad() error {
	m.r1 = m.r0
	m.r2 = m.h.Empty
	m.r3 = m.tags.Begin

	return nil
}

// doEvalCheckFunc is check_apply's own state: after an application's operator and
// operands are both evaluated, confirm the operator is something apply can dispatch
// before doApply ever sees it, so a bad operator position is reported the same way any
// other wrong-type-arg condition is.
func (m *Machine) doEvalCheckFunc() error {
	h := m.h
	pair := m.r1
	proc := h.Car(pair)

	switch h.Tag(proc) {
	case cell.TagClosure, cell.TagStruct, cell.TagContinuation:
		m.r3 = m.tags.Apply
		return nil
	default:
		return wrongTypeArg(pair, "not applicable")
	}
}
