// ABOUTME: Multi-pass entity resolution engine
// ABOUTME: Email and phone anchors, then exact names, overrides, scoring, disambiguation and creation
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
)

// Query is one observation to resolve. Any of Name, Email and Phone may be empty.
type Query struct {
	Name            string
	Email           string
	Phone           string
	ContextPath     string
	SourceType      string
	CreateIfMissing bool
}

// Resolver decides which canonical person an observation refers to.
// Resolution and creation are serialized so concurrent callers cannot create
// the same new person twice.
type Resolver struct {
	dir        Directory
	overrides  OverrideFinder
	normalizer NameNormalizer
	mapper     ContextMapper
	scorer     *Scorer
	cfg        Config
	similarity names.Similarity
	logger     *slog.Logger
	now        func() time.Time
	mu         sync.Mutex
}

type Option func(*Resolver)

func WithOverrides(o OverrideFinder) Option { return func(r *Resolver) { r.overrides = o } }

func WithNormalizer(n NameNormalizer) Option { return func(r *Resolver) { r.normalizer = n } }

func WithMapper(m ContextMapper) Option { return func(r *Resolver) { r.mapper = m } }

func WithLogger(l *slog.Logger) Option { return func(r *Resolver) { r.logger = l } }

func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

func WithSimilarity(s names.Similarity) Option { return func(r *Resolver) { r.similarity = s } }

func New(dir Directory, cfg Config, opts ...Option) *Resolver {
	r := &Resolver{
		dir:        dir,
		cfg:        cfg,
		similarity: names.TokenSetRatio,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.scorer = NewScorer(cfg, r.similarity, r.now)
	return r
}

// seed carries anchor keys to attach to a person created during this call.
type seed struct {
	email string
	phone string
}

// Resolve runs the passes in order and returns the first decision, or nil when
// nothing matched and creation was not requested.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*models.ResolutionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(ctx, q)
}

func (r *Resolver) resolve(ctx context.Context, q Query) (*models.ResolutionResult, error) {
	email := names.NormalizeEmail(q.Email)
	phone := names.NormalizePhone(q.Phone, r.cfg.DefaultRegion)

	if email != "" {
		person, err := r.dir.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up email: %w", err)
		}
		if person != nil {
			return r.matched(person, confidenceExact, models.MatchEmailExact, false), nil
		}
	}

	if phone != "" {
		person, err := r.dir.GetByPhone(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("failed to look up phone: %w", err)
		}
		if person != nil {
			return r.matched(person, confidenceExact, models.MatchPhoneExact, false), nil
		}
	}

	if strings.TrimSpace(q.Name) != "" {
		result, err := r.resolveByName(ctx, q.Name, q.ContextPath, q.SourceType, q.CreateIfMissing, seed{email: email, phone: phone})
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}

	if email != "" && q.CreateIfMissing {
		return r.createFromEmail(ctx, email, phone, q.SourceType)
	}
	return nil, nil
}

// ResolveByEmail anchors on an email address, creating a person from it when asked.
func (r *Resolver) ResolveByEmail(ctx context.Context, email string, create bool) (*models.ResolutionResult, error) {
	if names.NormalizeEmail(email) == "" {
		return nil, nil
	}
	return r.Resolve(ctx, Query{Email: email, CreateIfMissing: create})
}

// ResolveByPhone anchors on a phone number. It never creates.
func (r *Resolver) ResolveByPhone(ctx context.Context, phone string) (*models.ResolutionResult, error) {
	if names.NormalizePhone(phone, r.cfg.DefaultRegion) == "" {
		return nil, nil
	}
	return r.Resolve(ctx, Query{Phone: phone})
}

// ResolveByName runs only the name passes.
func (r *Resolver) ResolveByName(ctx context.Context, name, contextPath, sourceType string, create bool) (*models.ResolutionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveByName(ctx, name, contextPath, sourceType, create, seed{})
}

func (r *Resolver) resolveByName(ctx context.Context, name, contextPath, sourceType string, create bool, s seed) (*models.ResolutionResult, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || names.CleanName(trimmed) == "" {
		return nil, nil
	}

	canonical := r.canonicalize(trimmed)
	cleaned := names.CleanName(canonical)

	for _, lookup := range uniqueStrings(canonical, cleaned, r.canonicalize(cleaned)) {
		hits, err := r.dir.FindByName(ctx, lookup)
		if err != nil {
			return nil, fmt.Errorf("failed to look up name: %w", err)
		}
		if len(hits) == 1 {
			return r.matched(hits[0], confidenceExact, models.MatchNameExact, false), nil
		}
		if len(hits) > 1 {
			// Namesakes: let context and scoring pick one.
			break
		}
	}

	if r.overrides != nil {
		for _, lookup := range uniqueStrings(canonical, cleaned) {
			override, err := r.overrides.FindMatching(ctx, lookup, sourceType, contextPath)
			if err != nil {
				return nil, fmt.Errorf("failed to look up link override: %w", err)
			}
			if override == nil {
				continue
			}
			person, err := r.dir.GetByID(ctx, override.PreferredPersonID)
			if err != nil {
				return nil, fmt.Errorf("failed to load override target: %w", err)
			}
			if person != nil {
				return r.matched(person, confidenceExact, models.MatchLinkOverride, false), nil
			}
			r.logger.Warn("link override points at missing person", "override_id", override.ID, "person_id", override.PreferredPersonID)
		}
	}

	people, err := r.dir.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}

	candidates := r.scorer.ScoreCandidates(cleaned, contextPath, people)
	if len(candidates) == 0 {
		return r.createOrNil(ctx, create, cleaned, contextPath, sourceType, s)
	}

	SortCandidates(candidates)
	top := candidates[0]
	if top.Score < r.cfg.MinMatchScore {
		return r.createOrNil(ctx, create, cleaned, contextPath, sourceType, s)
	}

	if len(candidates) >= 2 && top.Score-candidates[1].Score < r.cfg.DisambiguationGap {
		if create {
			return r.createDisambiguated(ctx, cleaned, contextPath, sourceType, s)
		}
		result := r.matched(top.Person, top.Confidence*ambiguousPenalty, models.MatchFuzzyAmbiguous, false)
		result.DisambiguationApplied = true
		r.logger.Debug("ambiguous name match",
			"name", cleaned,
			"top_score", top.Score,
			"runner_up_score", candidates[1].Score,
		)
		return result, nil
	}

	return r.matched(top.Person, top.Confidence, top.MatchType, false), nil
}

func (r *Resolver) createOrNil(ctx context.Context, create bool, name, contextPath, sourceType string, s seed) (*models.ResolutionResult, error) {
	if !create {
		return nil, nil
	}
	person := r.newPerson(name, contextPath, sourceType, s)
	if err := r.persist(ctx, person); err != nil {
		return nil, err
	}
	return r.matched(person, confidenceNewEntity, models.MatchNewEntity, true), nil
}

// createDisambiguated splits off a namesake whose display name carries a
// label for the context it was seen in, e.g. "Sarah (Movement)".
func (r *Resolver) createDisambiguated(ctx context.Context, name, contextPath, sourceType string, s seed) (*models.ResolutionResult, error) {
	person := r.newPerson(name, contextPath, sourceType, s)
	if label := r.labelFor(contextPath); label != "" {
		person.DisplayName = fmt.Sprintf("%s (%s)", name, label)
	}
	if err := r.persist(ctx, person); err != nil {
		return nil, err
	}
	result := r.matched(person, confidenceDisambiguated, models.MatchDisambiguated, true)
	result.DisambiguationApplied = true
	return result, nil
}

func (r *Resolver) createFromEmail(ctx context.Context, email, phone, sourceType string) (*models.ResolutionResult, error) {
	name := names.NameFromEmail(email)
	if name == "" {
		name = email
	}

	category := models.CategoryUnknown
	var contexts []string
	if r.mapper != nil {
		domain := r.mapper.NormalizeDomain(email)
		category = r.mapper.CategoryForDomain(domain)
		contexts = r.mapper.VaultContextsForDomain(domain)
	}

	person := &models.CanonicalPerson{
		CanonicalName: name,
		DisplayName:   name,
		Category:      category,
	}
	for _, vc := range contexts {
		person.AddVaultContext(vc)
	}
	person.AddEmail(email)
	person.AddPhone(phone)
	person.AddSource(sourceType)
	person.Touch(r.now().UTC())

	if err := r.persist(ctx, person); err != nil {
		return nil, err
	}
	return r.matched(person, confidenceEmailNew, models.MatchEmailNew, true), nil
}

// newPerson builds an unsaved person with category and vault context inferred from the path.
func (r *Resolver) newPerson(name, contextPath, sourceType string, s seed) *models.CanonicalPerson {
	category, prefix := models.CategoryUnknown, names.ContextPrefix(contextPath, 2)
	if r.mapper != nil {
		category, prefix = r.mapper.CategoryForPath(contextPath)
	}

	person := &models.CanonicalPerson{
		CanonicalName: name,
		DisplayName:   name,
		Category:      category,
	}
	person.AddVaultContext(prefix)
	person.AddEmail(s.email)
	person.AddPhone(s.phone)
	person.AddSource(sourceType)
	person.Touch(r.now().UTC())
	return person
}

func (r *Resolver) persist(ctx context.Context, person *models.CanonicalPerson) error {
	if _, err := r.dir.Add(ctx, person); err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	if err := r.dir.Save(ctx); err != nil {
		return fmt.Errorf("failed to save directory: %w", err)
	}
	r.logger.Info("created person",
		"person_id", person.ID,
		"name", person.Name(),
		"category", person.Category,
	)
	return nil
}

func (r *Resolver) matched(person *models.CanonicalPerson, confidence float64, matchType models.MatchType, isNew bool) *models.ResolutionResult {
	r.logger.Debug("resolved person",
		"person_id", person.ID,
		"match_type", string(matchType),
		"confidence", confidence,
		"is_new", isNew,
	)
	return &models.ResolutionResult{
		Person:     person,
		IsNew:      isNew,
		Confidence: confidence,
		MatchType:  matchType,
	}
}

func (r *Resolver) canonicalize(name string) string {
	if r.normalizer == nil {
		return name
	}
	if canonical := strings.TrimSpace(r.normalizer.ResolvePersonName(name)); canonical != "" {
		return canonical
	}
	return name
}

// labelFor picks the disambiguation label: the mapped label for the path, else
// the last directory of the path.
func (r *Resolver) labelFor(contextPath string) string {
	if r.mapper != nil {
		if label := r.mapper.LabelForPath(contextPath); label != "" {
			return label
		}
	}
	prefix := strings.TrimSuffix(names.ContextPrefix(contextPath, 0), "/")
	if prefix == "" {
		return ""
	}
	segments := strings.Split(prefix, "/")
	return segments[len(segments)-1]
}

func uniqueStrings(values ...string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := names.Key(v)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
