// ABOUTME: Tests for person merge operations and match type helpers
// ABOUTME: Covers normalization on add, sticky confirmed fields and reason mapping
package models

import (
	"testing"
	"time"
)

func TestAddEmailNormalizesAndDedupes(t *testing.T) {
	p := &CanonicalPerson{CanonicalName: "Sarah Chen"}

	if !p.AddEmail("  Sarah@Example.COM ") {
		t.Fatal("expected first add to change the record")
	}
	if p.AddEmail("sarah@example.com") {
		t.Error("expected duplicate email to be ignored")
	}
	if p.AddEmail("not-an-email") {
		t.Error("expected invalid email to be ignored")
	}
	if len(p.Emails) != 1 || p.Emails[0] != "sarah@example.com" {
		t.Errorf("unexpected emails: %v", p.Emails)
	}
}

func TestAddPhoneSetsPrimary(t *testing.T) {
	p := &CanonicalPerson{}

	p.AddPhone("+14155552671")
	p.AddPhone("+14155550100")

	if p.PrimaryPhone != "+14155552671" {
		t.Errorf("expected first phone to be primary, got %s", p.PrimaryPhone)
	}
	if len(p.Phones) != 2 {
		t.Errorf("expected 2 phones, got %d", len(p.Phones))
	}
}

func TestAddAliasSkipsCanonicalName(t *testing.T) {
	p := &CanonicalPerson{CanonicalName: "Benjamin Ford"}

	if p.AddAlias("benjamin ford") {
		t.Error("alias equal to canonical name should be ignored")
	}
	if !p.AddAlias("Ben Ford") {
		t.Error("expected new alias to be added")
	}
	if p.AddAlias("BEN FORD") {
		t.Error("case-insensitive duplicate alias should be ignored")
	}
}

func TestAddVaultContextNormalizes(t *testing.T) {
	p := &CanonicalPerson{}

	p.AddVaultContext(`Work\Acme`)
	p.AddVaultContext("Work/Acme/")

	if len(p.VaultContexts) != 1 || p.VaultContexts[0] != "Work/Acme/" {
		t.Errorf("unexpected vault contexts: %v", p.VaultContexts)
	}
}

func TestFillFieldOnlyWhenEmpty(t *testing.T) {
	p := &CanonicalPerson{Company: "Acme", Category: CategoryUnknown}

	if p.FillField(FieldCompany, "Globex") {
		t.Error("fill should not replace an existing company")
	}
	if !p.FillField(FieldPosition, "Engineer") {
		t.Error("fill should set an empty position")
	}
	if !p.FillField(FieldCategory, CategoryWork) {
		t.Error("fill should replace the unknown category")
	}
	if p.FillField("nonsense", "x") {
		t.Error("unknown field should be ignored")
	}
}

func TestOverwriteFieldStickyConfirmation(t *testing.T) {
	p := &CanonicalPerson{Company: "Acme"}

	if !p.OverwriteField(FieldCompany, "Globex", true) {
		t.Fatal("confirmed overwrite should apply")
	}
	if !p.IsConfirmed(FieldCompany) {
		t.Fatal("confirmed overwrite should mark the field confirmed")
	}
	if p.OverwriteField(FieldCompany, "Initech", false) {
		t.Error("unconfirmed overwrite must not replace a confirmed field")
	}
	if p.Company != "Globex" {
		t.Errorf("expected Globex, got %s", p.Company)
	}
	if p.FillField(FieldCompany, "Initech") {
		t.Error("fill must not touch a confirmed field")
	}
	if !p.OverwriteField(FieldCompany, "Initech", true) {
		t.Error("confirmed overwrite should replace a confirmed field")
	}
}

func TestTouchIsMonotonic(t *testing.T) {
	p := &CanonicalPerson{}
	t1 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	t0 := t1.AddDate(0, 0, -5)

	p.Touch(t1)
	p.Touch(t0)

	if !p.LastSeen.Equal(t1) {
		t.Errorf("LastSeen moved backwards: %v", p.LastSeen)
	}
	if !p.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen should track the earliest sighting, got %v", p.FirstSeen)
	}
}

func TestReasonForMatch(t *testing.T) {
	tests := []struct {
		match    MatchType
		expected string
	}{
		{MatchEmailExact, ReasonEmailMatch},
		{MatchPhoneExact, ReasonPhoneMatch},
		{MatchContext, ReasonContextMatch},
		{MatchNewEntity, ReasonNewEntity},
		{MatchDisambiguated, ReasonNewEntity},
		{MatchEmailNew, ReasonNewEntity},
		{MatchLinkedInNew, ReasonNewEntity},
		{MatchFuzzy, ReasonNameMatch},
		{MatchNameExact, ReasonNameMatch},
		{MatchFuzzyAmbiguous, ReasonNameMatch},
		{MatchLinkOverride, ReasonNameMatch},
	}

	for _, tt := range tests {
		if got := ReasonForMatch(tt.match); got != tt.expected {
			t.Errorf("ReasonForMatch(%s) = %s, want %s", tt.match, got, tt.expected)
		}
	}
}

func TestNameVariants(t *testing.T) {
	p := &CanonicalPerson{CanonicalName: "Michael Scott", Aliases: []string{"Mike Scott"}}

	variants := p.NameVariants()
	if len(variants) != 2 || variants[0] != "Michael Scott" {
		t.Errorf("unexpected variants: %v", variants)
	}
	if p.Name() != "Michael Scott" {
		t.Errorf("expected canonical name fallback, got %s", p.Name())
	}
}
