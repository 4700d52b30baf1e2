// ABOUTME: Folds an observation into the person it was linked to
// ABOUTME: Only additive merges; scalar fields and confirmed facts are left alone
package linking

import (
	"context"
	"fmt"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
)

// merge adds the observation's anchors, name, context and source to the
// person and persists when anything changed.
func (l *Linker) merge(ctx context.Context, person *models.CanonicalPerson, entity *models.SourceEntity) error {
	changed := person.AddEmail(entity.ObservedEmail)
	changed = person.AddPhone(names.NormalizePhone(entity.ObservedPhone, l.region)) || changed
	if alias := names.CleanName(entity.ObservedName); alias != "" && names.Key(alias) != names.Key(person.CanonicalName) {
		changed = person.AddAlias(alias) || changed
	}
	// Unknown people keep no vault contexts beyond what creation inferred.
	if person.Category != models.CategoryUnknown {
		changed = person.AddVaultContext(names.ContextPrefix(entity.ContextPath, overridePrefixDepth)) || changed
	}
	changed = person.AddSource(entity.SourceType) || changed
	changed = person.Touch(entity.ObservedAt.UTC()) || changed
	if !changed {
		return nil
	}

	if err := l.people.Update(ctx, person); err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	if err := l.people.Save(ctx); err != nil {
		return fmt.Errorf("failed to save directory: %w", err)
	}
	return nil
}
