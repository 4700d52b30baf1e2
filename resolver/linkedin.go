// ABOUTME: Resolution of LinkedIn connection profiles
// ABOUTME: Email anchor, company domain scan, name-only match, then creation with backfilled profile fields
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
)

type LinkedInProfile struct {
	FirstName string
	LastName  string
	Email     string
	Company   string
	Position  string
	URL       string
}

func (p LinkedInProfile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// ResolveFromLinkedIn returns a person for every profile with a name or an
// email, and nil for one with neither. Whatever it matches gets the LinkedIn
// URL, company and position filled in where unset.
func (r *Resolver) ResolveFromLinkedIn(ctx context.Context, profile LinkedInProfile) (*models.ResolutionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fullName := profile.FullName()
	email := names.NormalizeEmail(profile.Email)
	if fullName == "" && email == "" {
		return nil, nil
	}

	if email != "" {
		person, err := r.dir.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up email: %w", err)
		}
		if person != nil {
			if err := r.backfillLinkedIn(ctx, person, profile); err != nil {
				return nil, err
			}
			return r.matched(person, confidenceExact, models.MatchEmailExact, false), nil
		}
	}

	if profile.Company != "" && fullName != "" && r.mapper != nil {
		person, err := r.findByCompanyDomain(ctx, fullName, r.mapper.DomainsForCompany(profile.Company))
		if err != nil {
			return nil, err
		}
		if person != nil {
			if err := r.backfillLinkedIn(ctx, person, profile); err != nil {
				return nil, err
			}
			return r.matched(person, confidenceLinkedInDomain, models.MatchLinkedInDomainMatch, false), nil
		}
	}

	if fullName != "" {
		result, err := r.resolveByName(ctx, fullName, "", models.SourceLinkedIn, false, seed{})
		if err != nil {
			return nil, err
		}
		if result != nil {
			if err := r.backfillLinkedIn(ctx, result.Person, profile); err != nil {
				return nil, err
			}
			return result, nil
		}
	}

	return r.createFromLinkedIn(ctx, fullName, email, profile)
}

// findByCompanyDomain scans for someone with an address at one of the
// company's domains whose name is close to the profile's.
func (r *Resolver) findByCompanyDomain(ctx context.Context, fullName string, domains []string) (*models.CanonicalPerson, error) {
	if len(domains) == 0 {
		return nil, nil
	}
	wanted := make(map[string]bool, len(domains))
	for _, d := range domains {
		wanted[strings.ToLower(d)] = true
	}

	people, err := r.dir.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}

	var best *models.CanonicalPerson
	bestScore := linkedInDomainNameThreshold
	for _, person := range people {
		if !hasEmailAtDomain(person, wanted) {
			continue
		}
		for _, variant := range person.NameVariants() {
			if score := r.similarity(fullName, variant); score > bestScore {
				best, bestScore = person, score
			}
		}
	}
	return best, nil
}

func hasEmailAtDomain(person *models.CanonicalPerson, domains map[string]bool) bool {
	for _, e := range person.Emails {
		if domains[names.EmailDomain(e)] {
			return true
		}
	}
	return false
}

func (r *Resolver) createFromLinkedIn(ctx context.Context, fullName, email string, profile LinkedInProfile) (*models.ResolutionResult, error) {
	name := fullName
	if name == "" {
		name = names.NameFromEmail(email)
	}

	category := models.CategoryUnknown
	if profile.Company != "" {
		category = models.CategoryWork
	}
	person := &models.CanonicalPerson{
		CanonicalName: name,
		DisplayName:   name,
		Category:      category,
		Company:       strings.TrimSpace(profile.Company),
		Position:      strings.TrimSpace(profile.Position),
		LinkedInURL:   strings.TrimSpace(profile.URL),
	}
	if r.mapper != nil && profile.Company != "" {
		for _, vc := range r.mapper.VaultContextsForCompany(profile.Company) {
			person.AddVaultContext(vc)
		}
	}
	person.AddEmail(email)
	person.AddSource(models.SourceLinkedIn)
	person.Touch(r.now().UTC())

	if err := r.persist(ctx, person); err != nil {
		return nil, err
	}
	return r.matched(person, confidenceLinkedInNew, models.MatchLinkedInNew, true), nil
}

func (r *Resolver) backfillLinkedIn(ctx context.Context, person *models.CanonicalPerson, profile LinkedInProfile) error {
	changed := person.FillField(models.FieldLinkedInURL, strings.TrimSpace(profile.URL))
	changed = person.FillField(models.FieldCompany, strings.TrimSpace(profile.Company)) || changed
	changed = person.FillField(models.FieldPosition, strings.TrimSpace(profile.Position)) || changed
	changed = person.AddSource(models.SourceLinkedIn) || changed
	if !changed {
		return nil
	}

	if err := r.dir.Update(ctx, person); err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	if err := r.dir.Save(ctx); err != nil {
		return fmt.Errorf("failed to save directory: %w", err)
	}
	return nil
}
