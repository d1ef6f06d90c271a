package vm

// evlis.go implements vm_evlis/vm_evlis2/vm_evlis3: evaluating a list of expressions
// left to right into a list of values, threading the accumulation through the explicit
// stack instead of a Go-level recursive helper.

// doEvlis is vm_evlis: r1 is the remaining expression list, r2 the environment.
func (m *Machine) doEvlis() error {
	h := m.h
	exprs := m.r1

	if exprs == h.Empty {
		m.r0, m.r3 = h.Empty, m.tags.Return
		return nil
	}

	e := m.r2

	if err := m.pushCC(m.tags.Evlis2, h.Cdr(exprs), e); err != nil {
		return err
	}

	m.r1 = h.Car(exprs)
	m.r3 = m.tags.Eval

	return nil
}

// doEvlis2 resumes after the first expression is evaluated (r0): evaluate the rest.
func (m *Machine) doEvlis2() error {
	rest := m.r1 // restored: remaining expressions
	e := m.r2    // restored: environment

	if err := m.pushCC(m.tags.Evlis3, m.r0, e); err != nil {
		return err
	}

	m.r1 = rest
	m.r2 = e
	m.r3 = m.tags.Evlis

	return nil
}

// doEvlis3 resumes after the rest of the list is evaluated (r0): cons the first value
// back onto it.
func (m *Machine) doEvlis3() error {
	first := m.r1 // restored: the first value, saved across the nested evlis call

	m.r0 = m.h.Cons(first, m.r0)
	m.r3 = m.tags.Return

	return nil
}
