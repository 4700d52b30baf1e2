// ABOUTME: Normalization for anchor keys and context paths
// ABOUTME: Emails are case-folded, phones become E.164, vault paths use forward slashes
package names

import (
	"path"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultRegion is used for phone numbers written without a country code.
const DefaultRegion = "US"

// NormalizeEmail lowercases and trims an address. Anything without a single
// '@' separating a local part and a domain yields "".
func NormalizeEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	email = strings.TrimPrefix(email, "mailto:")
	email = strings.Trim(email, "<>")
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") || strings.ContainsAny(email, " \t") {
		return ""
	}
	return email
}

// EmailDomain returns the domain part of an address, or "".
func EmailDomain(email string) string {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return ""
	}
	_, domain, _ := strings.Cut(normalized, "@")
	return domain
}

// NormalizePhone converts a phone number to E.164, or "" when it cannot be parsed.
func NormalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = DefaultRegion
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// NormalizeContextPath converts separators to '/', cleans the path and adds a
// trailing slash so prefix checks never match partial segments.
func NormalizeContextPath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" {
		return ""
	}
	cleaned := strings.Trim(path.Clean("/"+p), "/")
	if cleaned == "" || cleaned == "." {
		return ""
	}
	return cleaned + "/"
}

// ContextPrefix returns the first depth directory segments of a context path.
// A trailing file name (a segment containing '.') is not treated as a directory.
func ContextPrefix(p string, depth int) string {
	normalized := NormalizeContextPath(p)
	if normalized == "" {
		return ""
	}
	segments := strings.Split(strings.TrimSuffix(normalized, "/"), "/")
	if len(segments) > 1 && strings.Contains(segments[len(segments)-1], ".") {
		segments = segments[:len(segments)-1]
	}
	if depth > 0 && len(segments) > depth {
		segments = segments[:depth]
	}
	return strings.Join(segments, "/") + "/"
}

// NameFromEmail derives a display name from an address's local part.
// "john.doe@example.com" becomes "John Doe".
func NameFromEmail(email string) string {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return ""
	}
	local, _, _ := strings.Cut(normalized, "@")
	local, _, _ = strings.Cut(local, "+")

	pieces := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	caser := cases.Title(language.Und)
	parts := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if strings.Trim(piece, "0123456789") == "" {
			continue
		}
		parts = append(parts, caser.String(piece))
	}
	return strings.Join(parts, " ")
}
