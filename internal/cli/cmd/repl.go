package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kettlelang/mes/internal/boot"
	"github.com/kettlelang/mes/internal/cli"
	"github.com/kettlelang/mes/internal/log"
	"github.com/kettlelang/mes/internal/primitive"
	"github.com/kettlelang/mes/internal/reader"
	"github.com/kettlelang/mes/internal/tty"
	"github.com/kettlelang/mes/internal/vm"
)

// Repl creates the interactive read-eval-print-loop command.
func Repl() cli.Command {
	return &repl{}
}

type repl struct {
	bootFile string
}

func (repl) Description() string {
	return "start an interactive read-eval-print loop"
}

func (repl) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `repl [-boot file]

Starts an interactive Scheme session. Standard input is read expression by
expression; each result is printed to standard output.`)

	return err
}

func (r *repl) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	fs.StringVar(&r.bootFile, "boot", "", "boot file to load before starting (defaults to MES_BOOT or boot-0.scm)")

	return fs
}

// lineReader is satisfied by both a raw-mode console and a plain buffered stdin
// scanner, so Run can fall back gracefully when standard input isn't a terminal.
type lineReader interface {
	readLine() (string, bool)
}

type scannerReader struct{ s *bufio.Scanner }

func (r scannerReader) readLine() (string, bool) {
	if !r.s.Scan() {
		return "", false
	}

	return r.s.Text(), true
}

type consoleReader struct{ c *tty.Console }

func (r consoleReader) readLine() (string, bool) {
	line, err := r.c.ReadLine()
	return line, err == nil
}

// Run loads the boot environment, then reads and evaluates one form at a time from
// standard input until it hits end of file, printing every result to out.
func (r *repl) Run(_ context.Context, _ []string, out io.Writer, logger *log.Logger) int {
	m := boot.Machine(vm.WithLogger(logger))

	if _, err := boot.Run(m, r.bootFile); err != nil {
		logger.Warn("boot: continuing without bootstrap file", "err", err)
	}

	h := m.Heap()

	var input lineReader

	console, err := tty.NewConsole(os.Stdin, os.Stdout, os.Stderr)

	switch {
	case err == nil:
		defer console.Restore()

		console.BindPorts(h, m.Ports())
		console.SetPrompt("mes> ")
		input = consoleReader{console}
		out = console
	case errors.Is(err, tty.ErrNoTTY):
		input = scannerReader{bufio.NewScanner(os.Stdin)}
	default:
		logger.Error("console", "err", err)
		input = scannerReader{bufio.NewScanner(os.Stdin)}
	}

	if _, ok := input.(scannerReader); ok {
		fmt.Fprint(out, "mes> ")
	}

	for {
		line, ok := input.readLine()
		if !ok {
			break
		}

		forms, err := reader.New(h, line).ReadAll()
		if err != nil {
			fmt.Fprintf(out, "read error: %s\n", err)
		} else {
			for _, form := range forms {
				value, err := m.Eval(form, h.Empty)
				if err != nil {
					fmt.Fprintf(out, "error: %s\n", err)
					continue
				}

				fmt.Fprintln(out, primitive.WriteString(h, value))
			}
		}

		if _, ok := input.(scannerReader); ok {
			fmt.Fprint(out, "mes> ")
		}
	}

	fmt.Fprintln(out)

	return 0
}
