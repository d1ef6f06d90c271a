// mes is a small, bootstrappable Scheme interpreter.
package main

import (
	"context"
	"os"

	"github.com/kettlelang/mes/internal/cli"
	"github.com/kettlelang/mes/internal/cli/cmd"
)

func main() {
	commands := []cli.Command{
		cmd.Run(),
		cmd.Repl(),
		cmd.VersionCmd(),
	}

	app := cli.New(context.Background()).
		WithCommands(commands).
		WithHelp(cmd.Help(commands)).
		WithLogger(os.Stderr)

	os.Exit(app.Execute(os.Args[1:]))
}
