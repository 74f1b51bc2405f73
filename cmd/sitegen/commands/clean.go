package commands

import (
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/build"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	if err := build.Clean(cfg); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", cfg.Out)
	return nil
}
