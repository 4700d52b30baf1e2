// ABOUTME: Token-set name similarity on a 0-100 scale
// ABOUTME: Robust to token reordering and subset containment, backed by strutil Levenshtein
package names

import (
	"sort"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Similarity compares two names and returns a score in [0,100].
type Similarity func(a, b string) float64

var levenshtein = metrics.NewLevenshtein()

// Tokenize folds diacritics, lowercases, strips punctuation and splits on whitespace.
func Tokenize(s string) []string {
	folded := foldDiacritics(s)
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// Key is the exact-match lookup key for a name: folded tokens joined by spaces.
func Key(name string) string {
	return strings.Join(Tokenize(name), " ")
}

// TokenSetRatio compares the shared tokens of two strings against each side's
// shared-plus-remainder form and returns the best ratio. When one side's tokens
// are a subset of the other's the result is 100.
func TokenSetRatio(a, b string) float64 {
	setA := tokenSet(Tokenize(a))
	setB := tokenSet(Tokenize(b))
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for tok := range setA {
		if setB[tok] {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if !setA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	if len(common) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	sect := strings.Join(common, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := levenshteinRatio(combinedA, combinedB)
	if sect != "" {
		best = max(best, levenshteinRatio(sect, combinedA), levenshteinRatio(sect, combinedB))
	}
	return best
}

func levenshteinRatio(a, b string) float64 {
	return strutil.Similarity(a, b, levenshtein) * 100
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	return set
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
