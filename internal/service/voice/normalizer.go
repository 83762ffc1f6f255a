package voice

import (
	"regexp"
	"strings"

	"github.com/seu-repo/vitrina-voz/pkg/textnorm"
)

func regexpMust(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}

var (
	stopPhrasePattern   = wordPattern(stopPhrases...)
	multiplierToken     = multiplierPattern
	connectorQuantity   = regexpMust(`(?:^|\s)(?:por|con|cantidad|de)\s+(?:\d{1,2}|` + alternation(keys(numberWords)) + `)(?:\s|$)`)
	twoDigitNumberToken = regexpMust(`^\d{1,2}$`)
)

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// CleanQuery strips command words and quantity tokens from text, leaving the
// product reference. It returns "" when nothing is left.
//
// Verbs go first: stripping numbers before verbs can cut into a product name
// that itself contains a stop word.
func CleanQuery(text string) string {
	t := prepare(text)
	t = replaceUntilStable(stopPhrasePattern, t)
	t = replaceUntilStable(multiplierToken, t)
	t = replaceUntilStable(connectorQuantity, t)
	return textnorm.Squash(trimLeadingQuantity(t))
}

// replaceUntilStable re-applies re because adjacent matches share the
// whitespace boundary and a single pass skips every second one.
func replaceUntilStable(re *regexp.Regexp, s string) string {
	for {
		next := re.ReplaceAllString(s, " ")
		if next == s {
			return s
		}
		s = next
	}
}

// trimLeadingQuantity drops numbers, number words and articles that open the
// residual ("2 coca cola", "una leche", "la leche").
func trimLeadingQuantity(s string) string {
	fields := strings.Fields(s)
	for len(fields) > 0 {
		head := fields[0]
		_, isWord := numberWords[head]
		if !isWord && !articles[head] && !twoDigitNumberToken.MatchString(head) {
			break
		}
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}
