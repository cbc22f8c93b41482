package ui

import (
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
)

// filterContexts returns the contexts fuzzy-matching query, best match
// first. Matching runs over both the context name and its display name,
// case- and diacritic-insensitive.
func filterContexts(ccs []fleet.ClusterContext, query string) []fleet.ClusterContext {
	haystack := make([]string, len(ccs))
	for i, cc := range ccs {
		haystack[i] = foldString(cc.Name + " " + cc.DisplayName)
	}

	matches := fuzzy.Find(foldString(query), haystack)

	out := make([]fleet.ClusterContext, 0, len(matches))
	for _, match := range matches {
		out = append(out, ccs[match.Index])
	}

	return out
}

// foldString lower-cases s and strips combining diacritics, so "Zürich"
// is found by typing "zurich".
func foldString(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}

	return strings.ToLower(folded)
}
