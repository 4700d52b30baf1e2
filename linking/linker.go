// ABOUTME: Drives observations through resolution into confirmed or pending links
// ABOUTME: Auto-accepts confident matches and turns human decisions into merges and overrides
package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
	"github.com/harperreed/kin/resolver"
)

// DefaultAutoAcceptThreshold is the resolution confidence at or above which a
// match to an existing person is linked without review.
const DefaultAutoAcceptThreshold = 0.9

// overridePrefixDepth is how much of an observation's context path scopes the
// override recorded when a name-based link is confirmed.
const overridePrefixDepth = 2

var ErrInvalidObservation = errors.New("observation needs a source type and source id")

// Observation is one sighting of a person as reported by an importer or caller.
type Observation struct {
	SourceType  string
	SourceID    string
	Name        string
	Email       string
	Phone       string
	ContextPath string
	ObservedAt  time.Time
}

// LinkOutcome reports what Link decided for an observation.
type LinkOutcome struct {
	SourceEntity *models.SourceEntity     `json:"source_entity"`
	Result       *models.ResolutionResult `json:"result,omitempty"`
	PendingLink  *models.PendingLink      `json:"pending_link,omitempty"`
	AutoAccepted bool                     `json:"auto_accepted"`
}

type PersonResolver interface {
	Resolve(ctx context.Context, q resolver.Query) (*models.ResolutionResult, error)
}

type LinkStore interface {
	Add(ctx context.Context, link *models.PendingLink) (*models.PendingLink, error)
	GetByID(ctx context.Context, id string) (*models.PendingLink, error)
	GetForSourceEntity(ctx context.Context, sourceEntityID string) ([]*models.PendingLink, error)
	GetPending(ctx context.Context, limit int) ([]*models.PendingLink, error)
	Confirm(ctx context.Context, id, resolvedBy string) (*models.PendingLink, error)
	Reject(ctx context.Context, id, resolvedBy string) (*models.PendingLink, error)
	DeletePendingForSourceEntity(ctx context.Context, sourceEntityID string) (int, error)
	GetStatistics(ctx context.Context) (*models.LinkStatistics, error)
}

type SourceStore interface {
	Upsert(ctx context.Context, entity *models.SourceEntity) (*models.SourceEntity, error)
	GetByID(ctx context.Context, id string) (*models.SourceEntity, error)
	UpdateLink(ctx context.Context, id, personID string, confidence float64, status string) error
}

type OverrideRecorder interface {
	Add(ctx context.Context, override *models.LinkOverride) (*models.LinkOverride, error)
}

type Linker struct {
	people    resolver.Directory
	resolver  PersonResolver
	links     LinkStore
	sources   SourceStore
	overrides OverrideRecorder

	autoAccept float64
	region     string
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Linker)

func WithAutoAcceptThreshold(threshold float64) Option {
	return func(l *Linker) { l.autoAccept = threshold }
}

func WithRegion(region string) Option { return func(l *Linker) { l.region = region } }

func WithLogger(logger *slog.Logger) Option { return func(l *Linker) { l.logger = logger } }

func WithClock(now func() time.Time) Option { return func(l *Linker) { l.now = now } }

// New builds a linker. overrides may be nil, in which case confirmations are
// not replayed.
func New(people resolver.Directory, res PersonResolver, links LinkStore, sources SourceStore, overrides OverrideRecorder, opts ...Option) *Linker {
	l := &Linker{
		people:     people,
		resolver:   res,
		links:      links,
		sources:    sources,
		overrides:  overrides,
		autoAccept: DefaultAutoAcceptThreshold,
		region:     names.DefaultRegion,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Link records the observation and links it to a person. Confident matches to
// existing people are merged immediately; everything else waits as a pending link.
func (l *Linker) Link(ctx context.Context, obs Observation) (*LinkOutcome, error) {
	if obs.SourceType == "" || obs.SourceID == "" {
		return nil, ErrInvalidObservation
	}
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = l.now().UTC()
	}

	entity, err := l.sources.Upsert(ctx, &models.SourceEntity{
		SourceType:    obs.SourceType,
		SourceID:      obs.SourceID,
		ObservedName:  obs.Name,
		ObservedEmail: obs.Email,
		ObservedPhone: obs.Phone,
		ContextPath:   obs.ContextPath,
		ObservedAt:    obs.ObservedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record observation: %w", err)
	}
	outcome := &LinkOutcome{SourceEntity: entity}

	// A confirmed link is a human decision and is not re-resolved.
	if entity.LinkStatus == models.LinkStatusConfirmed && entity.CanonicalPersonID != "" {
		person, err := l.people.GetByID(ctx, entity.CanonicalPersonID)
		if err != nil {
			return nil, fmt.Errorf("failed to load linked person: %w", err)
		}
		if person != nil {
			if err := l.merge(ctx, person, entity); err != nil {
				return nil, err
			}
			outcome.Result = &models.ResolutionResult{Person: person, Confidence: entity.LinkConfidence}
			return outcome, nil
		}
	}

	result, err := l.resolver.Resolve(ctx, resolver.Query{
		Name:            obs.Name,
		Email:           obs.Email,
		Phone:           obs.Phone,
		ContextPath:     obs.ContextPath,
		SourceType:      obs.SourceType,
		CreateIfMissing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observation: %w", err)
	}
	outcome.Result = result
	if result == nil {
		l.logger.Debug("observation left unlinked", "source_type", obs.SourceType, "source_id", obs.SourceID)
		return outcome, nil
	}

	// An open proposal for the same person stays open until someone decides it.
	open, err := l.openLink(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	if open != nil && open.ProposedCanonicalID == result.Person.ID {
		outcome.PendingLink = open
		l.logger.Debug("pending link unchanged",
			"link_id", open.ID,
			"source_entity_id", entity.ID,
			"person_id", result.Person.ID,
		)
		return outcome, nil
	}

	if _, err := l.links.DeletePendingForSourceEntity(ctx, entity.ID); err != nil {
		return nil, fmt.Errorf("failed to clear pending links: %w", err)
	}

	if !result.IsNew && result.Confidence >= l.autoAccept {
		if err := l.merge(ctx, result.Person, entity); err != nil {
			return nil, err
		}
		if err := l.sources.UpdateLink(ctx, entity.ID, result.Person.ID, result.Confidence, models.LinkStatusConfirmed); err != nil {
			return nil, err
		}
		entity.CanonicalPersonID = result.Person.ID
		entity.LinkConfidence = result.Confidence
		entity.LinkStatus = models.LinkStatusConfirmed
		outcome.AutoAccepted = true
		l.logger.Debug("auto-accepted link",
			"source_entity_id", entity.ID,
			"person_id", result.Person.ID,
			"match_type", string(result.MatchType),
			"confidence", result.Confidence,
		)
		return outcome, nil
	}

	// A proposal that was never accepted is not a previous link.
	previous := entity.CanonicalPersonID
	if entity.LinkStatus == models.LinkStatusPending {
		previous = ""
	}
	link, err := l.links.Add(ctx, &models.PendingLink{
		SourceEntityID:      entity.ID,
		PreviousCanonicalID: previous,
		ProposedCanonicalID: result.Person.ID,
		Reason:              models.ReasonForMatch(result.MatchType),
		Confidence:          result.Confidence,
	})
	if err != nil {
		return nil, err
	}
	if err := l.sources.UpdateLink(ctx, entity.ID, result.Person.ID, result.Confidence, models.LinkStatusPending); err != nil {
		return nil, err
	}
	entity.CanonicalPersonID = result.Person.ID
	entity.LinkConfidence = result.Confidence
	entity.LinkStatus = models.LinkStatusPending
	outcome.PendingLink = link

	l.logger.Info("pending link created",
		"link_id", link.ID,
		"source_entity_id", entity.ID,
		"person_id", result.Person.ID,
		"reason", link.Reason,
		"confidence", link.Confidence,
	)
	return outcome, nil
}

func (l *Linker) openLink(ctx context.Context, sourceEntityID string) (*models.PendingLink, error) {
	links, err := l.links.GetForSourceEntity(ctx, sourceEntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending links: %w", err)
	}
	for _, link := range links {
		if link.IsPending() {
			return link, nil
		}
	}
	return nil, nil
}

// Confirm accepts a pending link. The observation is merged into the proposed
// person and name-based decisions are recorded as overrides. A missing link
// yields nil; an already resolved link is returned unchanged.
func (l *Linker) Confirm(ctx context.Context, id, resolvedBy string) (*models.PendingLink, error) {
	link, err := l.links.GetByID(ctx, id)
	if err != nil || link == nil || !link.IsPending() {
		return link, err
	}

	confirmed, err := l.links.Confirm(ctx, id, resolvedBy)
	if err != nil || confirmed == nil {
		return confirmed, err
	}

	entity, err := l.sources.GetByID(ctx, link.SourceEntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source entity: %w", err)
	}
	person, err := l.people.GetByID(ctx, link.ProposedCanonicalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load proposed person: %w", err)
	}
	if entity == nil || person == nil {
		l.logger.Warn("confirmed link references missing records",
			"link_id", id,
			"source_entity_id", link.SourceEntityID,
			"person_id", link.ProposedCanonicalID,
		)
		return confirmed, nil
	}

	if err := l.merge(ctx, person, entity); err != nil {
		return nil, err
	}
	if err := l.sources.UpdateLink(ctx, entity.ID, person.ID, 1.0, models.LinkStatusConfirmed); err != nil {
		return nil, err
	}

	if l.overrides != nil && replaysByName(link.Reason) && entity.ObservedName != "" {
		_, err := l.overrides.Add(ctx, &models.LinkOverride{
			Name:              entity.ObservedName,
			SourceType:        entity.SourceType,
			ContextPrefix:     names.ContextPrefix(entity.ContextPath, overridePrefixDepth),
			PreferredPersonID: person.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record link override: %w", err)
		}
	}

	l.logger.Info("link confirmed", "link_id", id, "person_id", person.ID, "resolved_by", confirmed.ResolvedBy)
	return confirmed, nil
}

// Reject declines a pending link and points the observation back at the
// person it was linked to before, if any.
func (l *Linker) Reject(ctx context.Context, id, resolvedBy string) (*models.PendingLink, error) {
	link, err := l.links.GetByID(ctx, id)
	if err != nil || link == nil || !link.IsPending() {
		return link, err
	}

	rejected, err := l.links.Reject(ctx, id, resolvedBy)
	if err != nil || rejected == nil {
		return rejected, err
	}

	entity, err := l.sources.GetByID(ctx, link.SourceEntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source entity: %w", err)
	}
	if entity != nil {
		if err := l.sources.UpdateLink(ctx, entity.ID, link.PreviousCanonicalID, 0, models.LinkStatusRejected); err != nil {
			return nil, err
		}
	}

	l.logger.Info("link rejected", "link_id", id, "resolved_by", rejected.ResolvedBy)
	return rejected, nil
}

func (l *Linker) Pending(ctx context.Context, limit int) ([]*models.PendingLink, error) {
	return l.links.GetPending(ctx, limit)
}

func (l *Linker) Statistics(ctx context.Context) (*models.LinkStatistics, error) {
	return l.links.GetStatistics(ctx)
}

func replaysByName(reason string) bool {
	return reason == models.ReasonNameMatch || reason == models.ReasonContextMatch
}
