// Package site holds the build-time aggregate shared by every pipeline stage:
// the immutable configuration and the mutable State.
package site

import (
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

// Site pairs a configuration with the state of the build operating on it.
type Site struct {
	cfg   config.Config
	state *State
}

// New creates a Site with fresh state.
func New(cfg config.Config) *Site {
	return &Site{cfg: cfg, state: NewState()}
}

// Config returns a copy of the site configuration.
func (s *Site) Config() config.Config {
	return s.cfg
}

// State returns the shared build state.
func (s *Site) State() *State {
	return s.state
}

// Style resolves a logical stylesheet name to the URL it is served from. Until
// the style stage has recorded an emitted file the unhashed "/name" is returned.
func (s *Site) Style(name string) string {
	if file, ok := s.state.StyleFile(name); ok && file != "" {
		return "/" + strings.TrimPrefix(file, "/")
	}
	return "/" + name
}

// AddPage registers a rendered page.
func (s *Site) AddPage(page ContentData) {
	s.state.PutPage(page)
}

// Pages returns all registered pages sorted by path.
func (s *Site) Pages() []ContentData {
	return s.state.Pages()
}
