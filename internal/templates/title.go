package templates

import "git.home.luguber.info/inful/sitegen/internal/config"

// CreateTitle builds the document <title>: "title | site title", or the site
// title alone when the two are the same or title is empty.
func CreateTitle(s config.SiteConfig, title string) string {
	if title == "" || title == s.Title {
		return s.Title
	}
	if s.Title == "" {
		return title
	}
	return title + " | " + s.Title
}
