// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"

	"github.com/pdiddy/deep-research/pkg/types"
)

var (
	// numericCiteRe matches numeric citations like [1], [2], [12].
	numericCiteRe = regexp.MustCompile(`\[(\d+)\]`)

	// authorYearCiteRe matches author-year citations like
	// [Smith et al., 2020] or [Smith and Jones, 2019].
	authorYearCiteRe = regexp.MustCompile(`\[([A-Z][a-z]+(?:\s+(?:et\s+al\.|and\s+[A-Z][a-z]+))?(?:,\s*\d{4}))\]`)

	// bareKeyCiteRe matches bracketed bibliography keys like [Smith2020].
	bareKeyCiteRe = regexp.MustCompile(`\[([A-Za-z][A-Za-z0-9:_-]*\d{4}[a-z]?)\]`)
)

// ParseCitations scans quoted text for inline citation markers and returns
// unlinked Citations (BibIndex -1, empty Reference). Numeric [N], author-year
// [Author, Year], and bare-key [Smith2020] forms are recognized; duplicate
// markers collapse to one Citation.
func ParseCitations(text string) []types.Citation {
	seen := make(map[string]bool)
	var citations []types.Citation

	collect := func(re *regexp.Regexp) {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			key := m[1]
			if seen[key] {
				continue
			}
			seen[key] = true
			citations = append(citations, types.Citation{Key: key, BibIndex: -1})
		}
	}

	collect(numericCiteRe)
	collect(authorYearCiteRe)
	collect(bareKeyCiteRe)
	return citations
}

// LinkCitations resolves citation keys against the document bibliography,
// filling BibIndex and the full Reference string where a key matches.
// Unmatched citations keep BibIndex -1.
func LinkCitations(citations []types.Citation, bibliography []types.BibliographyEntry) []types.Citation {
	if len(citations) == 0 || len(bibliography) == 0 {
		return citations
	}

	keyIndex := make(map[string]int, len(bibliography))
	for i, entry := range bibliography {
		keyIndex[entry.Key] = i
	}

	linked := make([]types.Citation, len(citations))
	copy(linked, citations)
	for i := range linked {
		if idx, ok := keyIndex[linked[i].Key]; ok {
			linked[i].BibIndex = idx
			linked[i].Reference = bibliography[idx].Raw
		}
	}
	return linked
}
