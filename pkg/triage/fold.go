package triage

import (
	"strings"

	"golang.org/x/text/width"
)

// foldWidth narrows full-width digits and the full-width percent sign so
// the digit-run and percentage patterns match input typed on a CJK keyboard.
// Other runes pass through untouched to keep full-width punctuation intact.
func foldWidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '０' && r <= '９') || r == '％' {
			b.WriteString(width.Fold.String(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
