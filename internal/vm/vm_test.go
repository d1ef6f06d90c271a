package vm_test

import (
	"testing"

	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
	"github.com/kettlelang/mes/internal/primitive"
	"github.com/kettlelang/mes/internal/reader"
	"github.com/kettlelang/mes/internal/vm"
)

func newMachine(t *testing.T) (*vm.Machine, *heap.Heap) {
	t.Helper()

	h := heap.New()
	m := vm.New(h)
	primitive.Install(m)

	return m, h
}

func evalString(t *testing.T, m *vm.Machine, h *heap.Heap, src string) cell.Index {
	t.Helper()

	forms, err := reader.New(h, src).ReadAll()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}

	var result cell.Index

	for _, form := range forms {
		v, err := m.Eval(form, h.Empty)
		if err != nil {
			t.Fatalf("eval %q: %v", src, err)
		}

		result = v
	}

	return result
}

func TestSelfEvaluating(t *testing.T) {
	m, h := newMachine(t)

	got := evalString(t, m, h, "42")
	if h.NumberValue(got) != 42 {
		t.Errorf("eval(42) = %d, want 42", h.NumberValue(got))
	}
}

func TestArithmetic(t *testing.T) {
	m, h := newMachine(t)

	got := evalString(t, m, h, "(+ 1 2 3)")
	if h.NumberValue(got) != 6 {
		t.Errorf("(+ 1 2 3) = %d, want 6", h.NumberValue(got))
	}
}

func TestIf(t *testing.T) {
	m, h := newMachine(t)

	got := evalString(t, m, h, "(if (< 1 2) 'yes 'no)")
	if h.SymbolName(got) != "yes" {
		t.Errorf("if = %s, want yes", h.SymbolName(got))
	}
}

func TestLambdaApply(t *testing.T) {
	m, h := newMachine(t)

	got := evalString(t, m, h, "((lambda (x y) (+ x y)) 3 4)")
	if h.NumberValue(got) != 7 {
		t.Errorf("lambda apply = %d, want 7", h.NumberValue(got))
	}
}

func TestDefineAndSet(t *testing.T) {
	m, h := newMachine(t)

	evalString(t, m, h, "(define x 10)")
	evalString(t, m, h, "(set! x (+ x 5))")
	got := evalString(t, m, h, "x")

	if h.NumberValue(got) != 15 {
		t.Errorf("x = %d, want 15", h.NumberValue(got))
	}
}

func TestDefineProcedureShorthand(t *testing.T) {
	m, h := newMachine(t)

	evalString(t, m, h, "(define (square x) (* x x))")
	got := evalString(t, m, h, "(square 9)")

	if h.NumberValue(got) != 81 {
		t.Errorf("(square 9) = %d, want 81", h.NumberValue(got))
	}
}

func TestTailRecursionDoesNotOverflow(t *testing.T) {
	m, h := newMachine(t)

	evalString(t, m, h, `
		(define (count n acc)
		  (if (< n 1) acc (count (- n 1) (+ acc 1))))
	`)

	got := evalString(t, m, h, "(count 5000 0)")
	if h.NumberValue(got) != 5000 {
		t.Errorf("count = %d, want 5000", h.NumberValue(got))
	}
}

func TestCallCC(t *testing.T) {
	m, h := newMachine(t)

	got := evalString(t, m, h, `
		(+ 1 (call/cc (lambda (k) (+ 2 (k 10)))))
	`)

	if h.NumberValue(got) != 11 {
		t.Errorf("call/cc escape = %d, want 11", h.NumberValue(got))
	}
}

func TestValuesAndCallWithValues(t *testing.T) {
	m, h := newMachine(t)

	got := evalString(t, m, h, `
		(call-with-values (lambda () (values 1 2 3)) (lambda (a b c) (+ a b c)))
	`)

	if h.NumberValue(got) != 6 {
		t.Errorf("call-with-values = %d, want 6", h.NumberValue(got))
	}
}

func TestDefineMacro(t *testing.T) {
	m, h := newMachine(t)

	// A macro transformer runs over the unevaluated operand forms, not their values:
	// binding x directly to the literal operand 21 and building (* 2 21) as the
	// expansion, which is then evaluated in place of the original call.
	evalString(t, m, h, `(define-macro double (lambda (x) (list '* 2 x)))`)

	got := evalString(t, m, h, "(double 21)")
	if h.NumberValue(got) != 42 {
		t.Errorf("macro-expanded (double 21) = %d, want 42", h.NumberValue(got))
	}
}

func TestDefineMacroProcedureShorthand(t *testing.T) {
	m, h := newMachine(t)

	// spec scenario: (define-macro (name . formals) body...) must desugar exactly like
	// (define (name . formals) body...) — c binds to the literal operand #t and b to
	// the literal rest of the operands, not their evaluated values.
	evalString(t, m, h, `
		(define-macro (when c . b) (cons 'if (cons c (cons (cons 'begin b) '(#f)))))
	`)

	got := evalString(t, m, h, "(when #t 1 2 3)")
	if h.NumberValue(got) != 3 {
		t.Errorf("(when #t 1 2 3) = %d, want 3", h.NumberValue(got))
	}
}

func TestBuiltinArityMismatchRaisesInsteadOfPanicking(t *testing.T) {
	m, h := newMachine(t)

	forms, err := reader.New(h, "(car)").ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if _, err := m.Eval(forms[0], h.Empty); err == nil {
		t.Errorf("(car) with 0 args: expected wrong-number-of-args error, got none")
	}
}

func TestThrowHandlerInterceptsFailure(t *testing.T) {
	m, h := newMachine(t)

	evalString(t, m, h, "(define caught '())")
	evalString(t, m, h, "(define (throw key . args) (set! caught (cons key args)) 'handled)")

	got := evalString(t, m, h, "(car '())")
	if h.SymbolName(got) != "handled" {
		t.Errorf("(car '()) with throw bound = %v, want the handler's return value", got)
	}

	caught := evalString(t, m, h, "caught")
	if !h.IsPair(caught) || h.SymbolName(h.Car(caught)) != "not-a-pair" {
		t.Errorf("throw was not called with a not-a-pair key: caught = %s", primitive.WriteString(h, caught))
	}
}

func expandAndEval(t *testing.T, m *vm.Machine, h *heap.Heap, src string) cell.Index {
	t.Helper()

	forms, err := reader.New(h, src).ReadAll()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}

	formsList := h.Empty
	for i := len(forms) - 1; i >= 0; i-- {
		formsList = h.Cons(forms[i], formsList)
	}

	expanded, err := m.Expand(formsList)
	if err != nil {
		t.Fatalf("expand %q: %v", src, err)
	}

	var result cell.Index
	for cur := expanded; cur != h.Empty; cur = h.Cdr(cur) {
		v, err := m.Eval(h.Car(cur), h.Empty)
		if err != nil {
			t.Fatalf("eval expanded %q: %v", src, err)
		}

		result = v
	}

	return result
}

func TestExpandRewritesModuleReferencesAndSetXTarget(t *testing.T) {
	m, h := newMachine(t)

	evalString(t, m, h, "(define x 10)")

	got := expandAndEval(t, m, h, "(set! x (+ x 5)) x")
	if h.NumberValue(got) != 15 {
		t.Errorf("x after expanded (set! x (+ x 5)) = %d, want 15", h.NumberValue(got))
	}
}

func TestExpandRespectsLambdaFormalShadowing(t *testing.T) {
	m, h := newMachine(t)

	evalString(t, m, h, "(define x 100)")

	got := expandAndEval(t, m, h, "((lambda (x) (+ x 1)) 5)")
	if h.NumberValue(got) != 6 {
		t.Errorf("((lambda (x) (+ x 1)) 5) after expand = %d, want 6 (formal must shadow module x)", h.NumberValue(got))
	}

	// The module-level x must be untouched by the shadowed reference above.
	stillHundred := evalString(t, m, h, "x")
	if h.NumberValue(stillHundred) != 100 {
		t.Errorf("module x after shadowed expand = %d, want 100", h.NumberValue(stillHundred))
	}
}

func TestUnboundVariable(t *testing.T) {
	m, h := newMachine(t)

	forms, err := reader.New(h, "never-defined").ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if _, err := m.Eval(forms[0], h.Empty); err == nil {
		t.Errorf("expected unbound variable error")
	}
}

func TestGarbageCollectionDuringEval(t *testing.T) {
	h := heap.New(heap.WithConfig(heap.Config{
		ArenaSize: 500, MaxArenaSize: 50_000, JamSize: 100, GCSafety: 50, StackSize: 500, MaxString: 4096,
	}))
	m := vm.New(h)
	primitive.Install(m)

	got := evalString(t, m, h, `
		(define (build n)
		  (if (< n 1) '() (cons n (build (- n 1)))))
		(car (build 200))
	`)

	if h.NumberValue(got) != 200 {
		t.Errorf("car(build(200)) = %d, want 200 (survived collection)", h.NumberValue(got))
	}
}
