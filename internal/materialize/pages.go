// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package materialize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/deep-research/pkg/types"
)

// splitPages divides converted Markdown into pages at <!-- page N -->
// markers. Content before the first marker belongs to page 1; a document
// without markers becomes a single page.
func splitPages(content string) []types.Page {
	lines := strings.Split(content, "\n")

	currentPage := 1
	var pages []types.Page
	var bodyLines []string

	flush := func() {
		body := strings.TrimSpace(strings.Join(bodyLines, "\n"))
		if body != "" {
			pages = append(pages, types.Page{Number: currentPage, Text: body})
		}
		bodyLines = nil
	}

	for _, line := range lines {
		if page, ok := parsePageMarker(strings.TrimSpace(line)); ok {
			flush()
			currentPage = page
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	flush()

	return pages
}

// parsePageMarker extracts the page number from an HTML comment like
// <!-- page 3 -->.
func parsePageMarker(line string) (int, bool) {
	if !strings.HasPrefix(line, "<!-- page ") || !strings.HasSuffix(line, " -->") {
		return 0, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "<!-- page "), " -->")
	var page int
	if _, err := fmt.Sscanf(inner, "%d", &page); err != nil {
		return 0, false
	}
	return page, true
}

// deriveTitle guesses a title from converted Markdown: the first heading,
// or failing that the first non-empty line.
func deriveTitle(content string) string {
	var fallback string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if _, ok := parsePageMarker(trimmed); ok {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
		if fallback == "" {
			fallback = trimmed
		}
	}
	return fallback
}

// bibEntryRe matches numbered bibliography entries like:
// [1] Authors. Title. Venue, Year.
var bibEntryRe = regexp.MustCompile(`(?m)^\[([^\]\s]+)\]\s+(.+)$`)

// yearRe matches a 4-digit year.
var yearRe = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

// parseBibliography extracts reference entries from the text under a
// "References" or "Bibliography" heading. Entries keep their raw text; a
// title and year are pulled out best-effort.
func parseBibliography(content string) []types.BibliographyEntry {
	section := findReferencesSection(content)
	if section == "" {
		return nil
	}

	var entries []types.BibliographyEntry
	for _, m := range bibEntryRe.FindAllStringSubmatch(section, -1) {
		raw := strings.TrimSpace(m[2])
		entries = append(entries, types.BibliographyEntry{
			Key:   m[1],
			Raw:   raw,
			Title: guessBibTitle(raw),
			Year:  extractYear(raw),
		})
	}
	return entries
}

// findReferencesSection returns the text after a heading containing
// "references" or "bibliography", up to the next heading.
func findReferencesSection(content string) string {
	var collecting bool
	var sectionLines []string

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "### ") {
			heading := strings.ToLower(strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
			if strings.Contains(heading, "references") || strings.Contains(heading, "bibliography") {
				collecting = true
				continue
			}
			if collecting {
				break
			}
		}

		if collecting {
			sectionLines = append(sectionLines, line)
		}
	}
	return strings.Join(sectionLines, "\n")
}

// guessBibTitle takes the segment after the author block as the title:
// the text between the first and second ". " boundaries, falling back to
// the first segment.
func guessBibTitle(raw string) string {
	parts := strings.SplitN(raw, ". ", 3)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return strings.TrimRight(strings.TrimSpace(parts[0]), ".")
	default:
		return strings.TrimRight(strings.TrimSpace(parts[1]), ".")
	}
}

// extractYear finds the first 4-digit year (19xx or 20xx) in the text.
func extractYear(text string) string {
	if m := yearRe.FindStringSubmatch(text); len(m) >= 2 {
		return m[1]
	}
	return ""
}
