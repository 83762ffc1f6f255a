// Package textnorm holds the text folding shared by the voice pipeline and
// the catalog adapters.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Lower lowercases s using the casing rules of tag. Casers are stateful, so
// one is built per call.
func Lower(tag language.Tag, s string) string {
	return cases.Lower(tag).String(s)
}

// Fold lowercases s and strips diacritics ("Café Molído" -> "cafe molido").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// ContainsFold reports whether substr occurs in s ignoring case and accents.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// Squash collapses runs of whitespace and trims the result.
func Squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
