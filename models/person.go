// ABOUTME: Explicit merge operations on CanonicalPerson
// ABOUTME: Each mutation reports whether it changed the record and honors user-confirmed fields
package models

import (
	"slices"
	"strings"
	"time"

	"github.com/harperreed/kin/names"
)

// Scalar field names accepted by FillField and OverwriteField.
const (
	FieldCompany     = "company"
	FieldPosition    = "position"
	FieldLinkedInURL = "linkedin_url"
	FieldDisplayName = "display_name"
	FieldCategory    = "category"
)

// AddEmail normalizes the address and appends it when absent.
func (p *CanonicalPerson) AddEmail(raw string) bool {
	email := names.NormalizeEmail(raw)
	if email == "" || slices.Contains(p.Emails, email) {
		return false
	}
	p.Emails = append(p.Emails, email)
	return true
}

// AddPhone appends an E.164 number and promotes it to primary when none is set.
func (p *CanonicalPerson) AddPhone(e164 string) bool {
	e164 = strings.TrimSpace(e164)
	if e164 == "" || slices.Contains(p.Phones, e164) {
		return false
	}
	p.Phones = append(p.Phones, e164)
	if p.PrimaryPhone == "" {
		p.PrimaryPhone = e164
	}
	return true
}

// AddAlias records an alternate name unless it duplicates an existing one.
func (p *CanonicalPerson) AddAlias(alias string) bool {
	alias = strings.TrimSpace(alias)
	if alias == "" || strings.EqualFold(alias, p.CanonicalName) {
		return false
	}
	for _, existing := range p.Aliases {
		if strings.EqualFold(existing, alias) {
			return false
		}
	}
	p.Aliases = append(p.Aliases, alias)
	return true
}

// AddVaultContext appends a normalized path prefix when absent.
func (p *CanonicalPerson) AddVaultContext(prefix string) bool {
	ctx := names.NormalizeContextPath(prefix)
	if ctx == "" || slices.Contains(p.VaultContexts, ctx) {
		return false
	}
	p.VaultContexts = append(p.VaultContexts, ctx)
	return true
}

func (p *CanonicalPerson) AddSource(sourceType string) bool {
	if sourceType == "" || slices.Contains(p.Sources, sourceType) {
		return false
	}
	p.Sources = append(p.Sources, sourceType)
	return true
}

// IsConfirmed reports whether a user has confirmed the named field.
func (p *CanonicalPerson) IsConfirmed(field string) bool {
	return slices.Contains(p.ConfirmedFields, field)
}

// FillField sets a scalar field only when it is empty and not user-confirmed.
func (p *CanonicalPerson) FillField(field, value string) bool {
	if value == "" || p.IsConfirmed(field) {
		return false
	}
	ptr := p.fieldPtr(field)
	if ptr == nil {
		return false
	}
	if *ptr != "" && !(field == FieldCategory && *ptr == CategoryUnknown) {
		return false
	}
	*ptr = value
	return true
}

// OverwriteField replaces a scalar field. A confirmed field can only be
// replaced by another confirmed value, and a confirmed write makes it sticky.
func (p *CanonicalPerson) OverwriteField(field, value string, confirmed bool) bool {
	ptr := p.fieldPtr(field)
	if ptr == nil {
		return false
	}
	if p.IsConfirmed(field) && !confirmed {
		return false
	}
	if confirmed && !p.IsConfirmed(field) {
		p.ConfirmedFields = append(p.ConfirmedFields, field)
	}
	if *ptr == value {
		return false
	}
	*ptr = value
	return true
}

// Touch advances LastSeen and initializes FirstSeen.
func (p *CanonicalPerson) Touch(t time.Time) bool {
	changed := false
	if p.FirstSeen.IsZero() || t.Before(p.FirstSeen) {
		p.FirstSeen = t
		changed = true
	}
	if t.After(p.LastSeen) {
		p.LastSeen = t
		changed = true
	}
	return changed
}

func (p *CanonicalPerson) fieldPtr(field string) *string {
	switch field {
	case FieldCompany:
		return &p.Company
	case FieldPosition:
		return &p.Position
	case FieldLinkedInURL:
		return &p.LinkedInURL
	case FieldDisplayName:
		return &p.DisplayName
	case FieldCategory:
		return &p.Category
	}
	return nil
}
