package infobox

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var (
	referenceMarker = regexp.MustCompile(`\[\d+\]`)
	squareBracket   = regexp.MustCompile(`[\[\]]`)
	whitespaceRun   = regexp.MustCompile(`[\s\p{Zs}]+`)
	trailingColon   = regexp.MustCompile(`[:：]$`)
)

// CleanText normalises cell text: full-width forms are folded to their
// ASCII equivalents, footnote markers such as "[3]" and stray square
// brackets are dropped, and whitespace runs collapse to one space.
// CleanText is idempotent.
func CleanText(s string) string {
	s = width.Fold.String(s)
	s = referenceMarker.ReplaceAllString(s, "")
	s = squareBracket.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanFieldName cleans a label cell and drops a trailing colon.
func CleanFieldName(s string) string {
	s = CleanText(s)
	s = trailingColon.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
