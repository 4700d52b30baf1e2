// ABOUTME: Collaborator contracts the resolver consumes
// ABOUTME: Person directory, override lookup, name dictionary and context mappings
package resolver

import (
	"context"

	"github.com/harperreed/kin/models"
)

// Directory is the indexed store of canonical people. Lookups return nil
// without an error when nothing matches.
type Directory interface {
	GetByID(ctx context.Context, id string) (*models.CanonicalPerson, error)
	GetByEmail(ctx context.Context, email string) (*models.CanonicalPerson, error)
	GetByPhone(ctx context.Context, phone string) (*models.CanonicalPerson, error)
	FindByName(ctx context.Context, name string) ([]*models.CanonicalPerson, error)
	GetAll(ctx context.Context) ([]*models.CanonicalPerson, error)
	Add(ctx context.Context, person *models.CanonicalPerson) (*models.CanonicalPerson, error)
	Update(ctx context.Context, person *models.CanonicalPerson) error
	Save(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// OverrideFinder returns a recorded disambiguation decision, or nil.
type OverrideFinder interface {
	FindMatching(ctx context.Context, name, sourceType, contextPath string) (*models.LinkOverride, error)
}

// NameNormalizer collapses alias spellings to one canonical form.
type NameNormalizer interface {
	ResolvePersonName(raw string) string
}

// ContextMapper infers categories and vault contexts from domains, companies and paths.
type ContextMapper interface {
	NormalizeDomain(email string) string
	VaultContextsForDomain(domain string) []string
	CategoryForDomain(domain string) string
	DomainsForCompany(company string) []string
	VaultContextsForCompany(company string) []string
	CategoryForPath(contextPath string) (string, string)
	LabelForPath(contextPath string) string
}
