// ABOUTME: Structured name parsing for people observations
// ABOUTME: Strips honorifics and credential suffixes, then splits into first, middle and last
package names

import (
	"strings"
	"unicode"
)

var honorifics = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "miss": true, "mx": true,
	"prof": true, "rev": true, "sir": true, "dame": true, "hon": true,
	"capt": true, "sgt": true, "fr": true,
}

var suffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
	"md": true, "phd": true, "dds": true, "dvm": true, "esq": true, "cpa": true,
	"rn": true, "mba": true, "jd": true, "lcsw": true, "lmft": true,
	"clc": true, "csc": true, "pmp": true, "cfa": true, "facs": true,
	"mph": true, "msw": true,
}

// ambiguousSuffixes are credentials that are also surnames (Do, Pa, Pe, V).
// They only count after a comma or when written with periods, as in "D.O.".
var ambiguousSuffixes = map[string]bool{
	"v": true, "do": true, "pe": true, "np": true, "pa": true,
}

// ParsedName is a raw display name split into its parts. Last is empty when
// the name has a single token.
type ParsedName struct {
	First  string
	Middle []string
	Last   string
	Raw    string
}

func (p ParsedName) HasLast() bool {
	return p.Last != ""
}

// IsEmpty reports whether nothing survived parsing.
func (p ParsedName) IsEmpty() bool {
	return p.First == ""
}

// Full joins first, middle and last with single spaces.
func (p ParsedName) Full() string {
	parts := make([]string, 0, 2+len(p.Middle))
	if p.First != "" {
		parts = append(parts, p.First)
	}
	parts = append(parts, p.Middle...)
	if p.Last != "" {
		parts = append(parts, p.Last)
	}
	return strings.Join(parts, " ")
}

// ParseName never fails. Empty or whitespace-only input yields an empty ParsedName.
func ParseName(raw string) ParsedName {
	parsed := ParsedName{Raw: raw}
	tokens := strings.Fields(raw)

	if len(tokens) > 1 && honorifics[bareToken(tokens[0])] {
		tokens = tokens[1:]
	}

	tokens = dropCredentialList(tokens)
	// A trailing suffix never takes the last name with it.
	for len(tokens) > 2 && isTrailingSuffix(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}

	for i := range tokens {
		tokens[i] = strings.TrimRight(tokens[i], ",")
	}
	tokens = nonEmpty(tokens)

	switch len(tokens) {
	case 0:
	case 1:
		parsed.First = tokens[0]
	default:
		parsed.First = tokens[0]
		parsed.Last = tokens[len(tokens)-1]
		if len(tokens) > 2 {
			parsed.Middle = append([]string(nil), tokens[1:len(tokens)-1]...)
		}
	}
	return parsed
}

// CleanName returns the parsed full name, or the trimmed input when parsing
// leaves nothing.
func CleanName(raw string) string {
	if full := ParseName(raw).Full(); full != "" {
		return full
	}
	return strings.TrimSpace(raw)
}

// IsSingleToken reports whether the name is a bare token with no internal whitespace.
func IsSingleToken(name string) bool {
	return len(strings.Fields(name)) == 1
}

// dropCredentialList removes ", CLC, CSC" style tails: a comma followed only
// by short uppercase-like tokens.
func dropCredentialList(tokens []string) []string {
	for i := 0; i < len(tokens)-1; i++ {
		if !strings.HasSuffix(tokens[i], ",") {
			continue
		}
		tail := tokens[i+1:]
		allCredentials := true
		for _, tok := range tail {
			if !looksLikeCredential(tok) {
				allCredentials = false
				break
			}
		}
		if allCredentials {
			return tokens[:i+1]
		}
	}
	return tokens
}

func looksLikeCredential(tok string) bool {
	bare := strings.Trim(tok, ".,;")
	if bare == "" {
		return false
	}
	key := strings.ToLower(strings.ReplaceAll(bare, ".", ""))
	if suffixes[key] || ambiguousSuffixes[key] {
		return true
	}
	letters := 0
	for _, r := range bare {
		if r == '.' {
			continue
		}
		if !unicode.IsLetter(r) || !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters > 0 && letters <= 4
}

func isTrailingSuffix(tok string) bool {
	bare := bareToken(tok)
	if suffixes[bare] {
		return true
	}
	return ambiguousSuffixes[bare] && isDottedUpper(tok)
}

// isDottedUpper matches initialisms like "D.O." and "P.A.".
func isDottedUpper(tok string) bool {
	if !strings.Contains(tok, ".") {
		return false
	}
	letters := 0
	for _, r := range strings.TrimRight(tok, ",") {
		switch {
		case r == '.':
		case unicode.IsUpper(r):
			letters++
		default:
			return false
		}
	}
	return letters > 1
}

// bareToken lowercases and strips punctuation for list membership checks.
func bareToken(tok string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(tok) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nonEmpty(tokens []string) []string {
	out := tokens[:0]
	for _, tok := range tokens {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
