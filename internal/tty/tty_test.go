// Package tty_test tries to test ttys.
//
// The test is skipped when stdin is not a terminal (ErrNoTTY). Notably, this includes when run with
// "go test" because it redirects tests' standard input/output streams. You can test it by building
// a test binary and running it directly:
//
//	$ go test -c && ./tty.test
package tty_test

import (
	"errors"
	"os"
	"testing"

	"github.com/kettlelang/mes/internal/boot"
	"github.com/kettlelang/mes/internal/tty"
)

func TestConsoleBindsStandardPorts(t *testing.T) {
	console, err := tty.NewConsole(os.Stdin, os.Stdout, os.Stderr)
	if errors.Is(err, tty.ErrNoTTY) {
		t.Skipf("error: %s", err)
	} else if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}

	defer console.Restore()

	m := boot.Machine()

	console.BindPorts(m.Heap(), m.Ports())

	if _, err := console.Write([]byte("\n")); err != nil {
		t.Errorf("write: %v", err)
	}
}
