package site

import (
	"log/slog"
	"sort"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// State is the mutable part of a build: resolved stylesheet names and the
// registry of rendered pages. It is safe for concurrent use.
type State struct {
	mu     sync.RWMutex
	styles map[string]string
	pages  map[string]ContentData
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		styles: make(map[string]string),
		pages:  make(map[string]ContentData),
	}
}

// SetStyle records that the logical stylesheet name was emitted as file
// (relative to the output root).
func (s *State) SetStyle(name, file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles[name] = file
}

// StyleFile returns the emitted file for a logical stylesheet name.
func (s *State) StyleFile(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, ok := s.styles[name]
	return file, ok
}

// PutPage registers a page under its URL path. The last registration wins. A
// path already registered from a different source is logged as a duplicate.
func (s *State) PutPage(page ContentData) {
	page.Body = ""

	s.mu.Lock()
	prev, exists := s.pages[page.Metadata.Path]
	s.pages[page.Metadata.Path] = page
	s.mu.Unlock()

	if exists && prev.Source != page.Source {
		slog.Warn("Duplicate page path, last registration wins",
			logfields.Page(page.Metadata.Path),
			slog.String("previous", prev.Source),
			logfields.Source(page.Source))
	}
}

// Page returns the registration for a URL path.
func (s *State) Page(path string) (ContentData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[path]
	return page, ok
}

// Pages returns all registrations sorted by path.
func (s *State) Pages() []ContentData {
	s.mu.RLock()
	out := make([]ContentData, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Metadata.Path < out[j].Metadata.Path })
	return out
}

// ResetPages drops every page registration. Style resolutions are kept.
func (s *State) ResetPages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = make(map[string]ContentData)
}

// PruneSources removes document pages whose Source is not in keep. Synthesized
// pages (empty Source) are never pruned. It returns the removed paths.
func (s *State) PruneSources(keep map[string]struct{}) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for path, page := range s.pages {
		if page.Source == "" {
			continue
		}
		if _, ok := keep[page.Source]; ok {
			continue
		}
		delete(s.pages, path)
		removed = append(removed, path)
	}
	sort.Strings(removed)
	return removed
}
