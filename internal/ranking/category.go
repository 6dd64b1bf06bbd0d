package ranking

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeCategory folds a category key to its canonical form: NFKC, lower
// case, single spaces, trimmed. Writes store keys in this form and scoring
// compares deal categories in this form.
func NormalizeCategory(category string) string {
	normalized := norm.NFKC.String(category)
	normalized = cases.Lower(language.Und).String(normalized)
	normalized = whitespaceRegex.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}
