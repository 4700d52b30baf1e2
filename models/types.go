// ABOUTME: Data models for people, observations and link proposals
// ABOUTME: Defines CanonicalPerson, SourceEntity, PendingLink, LinkOverride and resolution results
package models

import (
	"time"
)

// Person categories.
const (
	CategoryWork     = "work"
	CategoryPersonal = "personal"
	CategoryFamily   = "family"
	CategoryUnknown  = "unknown"
)

// Source types for observations.
const (
	SourceLinkedIn       = "linkedin"
	SourcePhoneContacts  = "phone_contacts"
	SourceGoogleContacts = "google_contacts"
	SourceGmail          = "gmail"
	SourceCalendar       = "calendar"
	SourceChat           = "chat"
	SourceVault          = "vault"
	SourceManual         = "manual"
)

// MatchType tags how a resolution was decided.
type MatchType string

const (
	MatchEmailExact          MatchType = "email_exact"
	MatchPhoneExact          MatchType = "phone_exact"
	MatchNameExact           MatchType = "name_exact"
	MatchLinkOverride        MatchType = "link_override"
	MatchFuzzy               MatchType = "fuzzy"
	MatchContext             MatchType = "context_match"
	MatchFuzzyAmbiguous      MatchType = "fuzzy_ambiguous"
	MatchNewEntity           MatchType = "new_entity"
	MatchDisambiguated       MatchType = "disambiguated"
	MatchEmailNew            MatchType = "email_new"
	MatchLinkedInDomainMatch MatchType = "linkedin_domain_match"
	MatchLinkedInNew         MatchType = "linkedin_new"
)

// Creates reports whether the match type always produces a new person.
func (m MatchType) Creates() bool {
	switch m {
	case MatchNewEntity, MatchDisambiguated, MatchEmailNew, MatchLinkedInNew:
		return true
	}
	return false
}

// CanonicalPerson is the deduplicated identity record for one real individual.
type CanonicalPerson struct {
	ID                   string    `json:"id"`
	CanonicalName        string    `json:"canonical_name"`
	DisplayName          string    `json:"display_name"`
	Emails               []string  `json:"emails,omitempty"`
	Phones               []string  `json:"phones,omitempty"`
	PrimaryPhone         string    `json:"primary_phone,omitempty"`
	Aliases              []string  `json:"aliases,omitempty"`
	VaultContexts        []string  `json:"vault_contexts,omitempty"`
	Category             string    `json:"category"`
	Company              string    `json:"company,omitempty"`
	Position             string    `json:"position,omitempty"`
	LinkedInURL          string    `json:"linkedin_url,omitempty"`
	RelationshipStrength int       `json:"relationship_strength"`
	FirstSeen            time.Time `json:"first_seen"`
	LastSeen             time.Time `json:"last_seen"`
	Sources              []string  `json:"sources,omitempty"`
	ConfirmedFields      []string  `json:"confirmed_fields,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Name returns the display name, falling back to the canonical name.
func (p *CanonicalPerson) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.CanonicalName
}

// NameVariants returns the canonical name followed by every alias.
func (p *CanonicalPerson) NameVariants() []string {
	variants := make([]string, 0, 1+len(p.Aliases))
	if p.CanonicalName != "" {
		variants = append(variants, p.CanonicalName)
	}
	return append(variants, p.Aliases...)
}

// ResolutionCandidate is one scored match hypothesis.
type ResolutionCandidate struct {
	Person         *CanonicalPerson `json:"person"`
	Score          float64          `json:"score"`
	NameSimilarity float64          `json:"name_similarity"`
	MatchType      MatchType        `json:"match_type"`
	Confidence     float64          `json:"confidence"`
}

// ResolutionResult is the outcome of one resolution call.
type ResolutionResult struct {
	Person                *CanonicalPerson `json:"person"`
	IsNew                 bool             `json:"is_new"`
	Confidence            float64          `json:"confidence"`
	MatchType             MatchType        `json:"match_type"`
	DisambiguationApplied bool             `json:"disambiguation_applied"`
}

// Link reasons.
const (
	ReasonNewEntity    = "new_entity"
	ReasonEmailMatch   = "email_match"
	ReasonPhoneMatch   = "phone_match"
	ReasonNameMatch    = "name_match"
	ReasonContextMatch = "context_match"
)

// Link statuses.
const (
	LinkStatusPending   = "pending"
	LinkStatusConfirmed = "confirmed"
	LinkStatusRejected  = "rejected"
	LinkStatusUnlinked  = "unlinked"
)

// Resolvers of a pending link.
const (
	ResolvedByUser = "user"
	ResolvedByAuto = "auto"
)

// ReasonForMatch maps a resolution match type to the pending link reason.
func ReasonForMatch(m MatchType) string {
	switch {
	case m.Creates():
		return ReasonNewEntity
	case m == MatchEmailExact:
		return ReasonEmailMatch
	case m == MatchPhoneExact:
		return ReasonPhoneMatch
	case m == MatchContext:
		return ReasonContextMatch
	default:
		return ReasonNameMatch
	}
}

// PendingLink is a deferred merge proposal waiting for confirmation.
type PendingLink struct {
	ID                  string     `json:"id"`
	SourceEntityID      string     `json:"source_entity_id"`
	PreviousCanonicalID string     `json:"previous_canonical_id,omitempty"`
	ProposedCanonicalID string     `json:"proposed_canonical_id"`
	Reason              string     `json:"reason"`
	Confidence          float64    `json:"confidence"`
	Status              string     `json:"status"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy          string     `json:"resolved_by,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// IsPending reports whether the link still awaits a decision.
func (l *PendingLink) IsPending() bool {
	return l.Status == LinkStatusPending
}

// LinkStatistics is a point-in-time aggregate over all pending links.
type LinkStatistics struct {
	Total          int            `json:"total"`
	PendingCount   int            `json:"pending_count"`
	ConfirmedCount int            `json:"confirmed_count"`
	RejectedCount  int            `json:"rejected_count"`
	ByReason       map[string]int `json:"by_reason"`
}

// LinkOverride replays a human disambiguation decision for a name.
type LinkOverride struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	SourceType        string    `json:"source_type,omitempty"`
	ContextPrefix     string    `json:"context_prefix,omitempty"`
	PreferredPersonID string    `json:"preferred_person_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// SourceEntity is a single sighting of a person from one data source.
type SourceEntity struct {
	ID                string    `json:"id"`
	SourceType        string    `json:"source_type"`
	SourceID          string    `json:"source_id"`
	ObservedName      string    `json:"observed_name,omitempty"`
	ObservedEmail     string    `json:"observed_email,omitempty"`
	ObservedPhone     string    `json:"observed_phone,omitempty"`
	ContextPath       string    `json:"context_path,omitempty"`
	CanonicalPersonID string    `json:"canonical_person_id,omitempty"`
	LinkConfidence    float64   `json:"link_confidence"`
	LinkStatus        string    `json:"link_status"`
	ObservedAt        time.Time `json:"observed_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Sync status constants.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)

type SyncState struct {
	Service       string     `json:"service"`
	LastSyncTime  *time.Time `json:"last_sync_time,omitempty"`
	LastSyncToken string     `json:"last_sync_token,omitempty"`
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type SyncLog struct {
	ID             string    `json:"id"`
	SourceService  string    `json:"source_service"`
	SourceID       string    `json:"source_id"`
	SourceEntityID string    `json:"source_entity_id"`
	ImportedAt     time.Time `json:"imported_at"`
	Metadata       string    `json:"metadata,omitempty"`
}
