package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/kettlelang/mes/internal/cli"
	"github.com/kettlelang/mes/internal/log"
)

// Version is the interpreter's released version string, set at build time via
// -ldflags "-X ...cmd.Version=...". It defaults to "dev" for local builds.
var Version = "dev"

// VersionCmd creates the command that prints the interpreter's version.
func VersionCmd() cli.Command {
	return &versionCmd{}
}

type versionCmd struct{}

func (versionCmd) Description() string {
	return "print the interpreter version"
}

func (versionCmd) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, "version\n\nPrints the interpreter version.")
	return err
}

func (versionCmd) FlagSet() *cli.FlagSet {
	return flag.NewFlagSet("version", flag.ExitOnError)
}

func (versionCmd) Run(_ context.Context, _ []string, out io.Writer, _ *log.Logger) int {
	fmt.Fprintln(out, Version)
	return 0
}
