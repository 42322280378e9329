// Package narrative renders structured stage judgments into the human-readable
// analysis, recommendation and reasoning text carried by decisions. Stages
// compute enums and metrics; only this package knows the wording.
package narrative

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money formats an amount with thousands separators, e.g. $350,000.00
func Money(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// Percent formats a ratio as a percentage with two decimals, e.g. 0.175 -> 17.50%
func Percent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 2, 64) + "%"
}

// WholePercent formats a ratio as a whole percentage, e.g. 0.8 -> 80%
func WholePercent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 0, 64) + "%"
}

// Years renders tenure without trailing zeros
func Years(y float64) string {
	return strconv.FormatFloat(y, 'f', -1, 64)
}

// Numbered renders items as "\n  1. item" lines
func Numbered(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, item)
	}
	return b.String()
}

// sentences joins parts with ". " and terminates with a period
func sentences(parts []string) string {
	return strings.Join(parts, ". ") + "."
}
