package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/kettlelang/mes/internal/boot"
	"github.com/kettlelang/mes/internal/cli"
	"github.com/kettlelang/mes/internal/log"
	"github.com/kettlelang/mes/internal/primitive"
	"github.com/kettlelang/mes/internal/vm"
)

// Run creates the command that evaluates a single Scheme source file to completion.
func Run() cli.Command {
	return &runner{}
}

type runner struct {
	bootFile string
}

func (runner) Description() string {
	return "evaluate a Scheme source file"
}

func (runner) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run [-boot file] program.scm

Loads the boot environment, then evaluates every top-level form in
program.scm in sequence, printing the value of the last one.`)

	return err
}

func (r *runner) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.StringVar(&r.bootFile, "boot", "", "boot file to load before running (defaults to MES_BOOT or boot-0.scm)")

	return fs
}

func (r *runner) Run(_ context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) == 0 {
		logger.Error("run: missing program argument")
		return 1
	}

	m := boot.Machine(vm.WithLogger(logger))

	if _, err := boot.Run(m, r.bootFile); err != nil {
		logger.Warn("boot: continuing without bootstrap file", "err", err)
	}

	value, err := boot.Run(m, args[0])
	if err != nil {
		logger.Error("run", "file", args[0], "err", err)
		return 1
	}

	fmt.Fprintln(out, primitive.WriteString(m.Heap(), value))

	return 0
}
