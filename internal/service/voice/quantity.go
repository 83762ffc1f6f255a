package voice

import (
	"strconv"
	"strings"
)

var (
	multiplierPattern = regexpMust(`(?:^|\s)x(\d{1,2})(?:\s|$)`)
	connectorNumber   = regexpMust(`(?:^|(?:^|\s)(?:` + alternation(quantityConnectors) + `)\s+)(\d{1,2})(?:\s|$)`)
)

// ExtractQuantity returns the quantity mentioned in text, or 1 when there is
// none. The result is always at least 1.
func ExtractQuantity(text string) int {
	t := prepare(text)

	for _, m := range multiplierPattern.FindAllStringSubmatch(t, -1) {
		if n := positive(m[1]); n > 0 {
			return n
		}
	}

	for _, m := range connectorNumber.FindAllStringSubmatch(t, -1) {
		if n := positive(m[1]); n > 0 {
			return n
		}
	}

	for _, tok := range strings.Fields(t) {
		if n, ok := numberWords[tok]; ok {
			return n
		}
	}

	return 1
}

func positive(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0
	}
	return n
}
