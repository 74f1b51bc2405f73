// Command sitegen builds a static site from Markdown and AsciiDoc pages,
// layouts and assets, and serves it with live reload during development.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitegen/cmd/sitegen/commands"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

func main() {
	cli := &commands.CLI{}
	globals := &commands.Global{}
	parser := kong.Parse(cli,
		kong.Name("sitegen"),
		kong.Description("Static site generator with live-reloading dev server"),
		kong.UsageOnError(),
	)

	err := parser.Run(globals, cli)
	os.Exit(ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(err))
}
