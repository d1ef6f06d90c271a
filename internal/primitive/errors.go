package primitive

import (
	"errors"
	"fmt"

	"github.com/kettlelang/mes/internal/cell"
)

// ErrWrongType and ErrArity mirror the evaluator's own error taxonomy (see
// internal/vm/errors.go) for the host-implemented procedures in this package, which run
// outside the evaluator's own EvalError-wrapping path.
var (
	ErrWrongType = errors.New("wrong type argument")
	ErrArity     = errors.New("wrong number of arguments")
)

func wrongType(name string, got cell.Index) error {
	return fmt.Errorf("%w: %s: %s", ErrWrongType, name, got)
}

func wrongNumberOfArgs(name string) error {
	return fmt.Errorf("%w: %s", ErrArity, name)
}
