// ABOUTME: Persistence for link overrides that replay human disambiguation decisions
// ABOUTME: Matches by name with optional source type and context path prefix scoping
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
)

type OverrideStore struct {
	db *sql.DB
}

func NewOverrideStore(db *sql.DB) *OverrideStore {
	return &OverrideStore{db: db}
}

// Add records an override. A second override with the same name and scope
// replaces the preferred person of the first.
func (s *OverrideStore) Add(ctx context.Context, override *models.LinkOverride) (*models.LinkOverride, error) {
	if override == nil || names.Key(override.Name) == "" || override.PreferredPersonID == "" {
		return nil, fmt.Errorf("invalid link override: name and preferred person are required")
	}
	if override.ID == "" {
		override.ID = uuid.New().String()
	}
	if override.CreatedAt.IsZero() {
		override.CreatedAt = time.Now().UTC()
	}
	override.ContextPrefix = names.NormalizeContextPath(override.ContextPrefix)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO link_overrides (id, name, name_key, source_type, context_prefix, preferred_person_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name_key, source_type, context_prefix) DO UPDATE SET
			preferred_person_id = excluded.preferred_person_id,
			name = excluded.name
	`,
		override.ID,
		override.Name,
		names.Key(override.Name),
		override.SourceType,
		override.ContextPrefix,
		override.PreferredPersonID,
		override.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add link override: %w", err)
	}

	// On conflict the existing row keeps its ID and creation time.
	err = s.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM link_overrides
		WHERE name_key = ? AND source_type = ? AND context_prefix = ?
	`, names.Key(override.Name), override.SourceType, override.ContextPrefix).Scan(&override.ID, &override.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read back link override: %w", err)
	}
	return override, nil
}

func (s *OverrideStore) List(ctx context.Context) ([]*models.LinkOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source_type, context_prefix, preferred_person_id, created_at
		FROM link_overrides
		ORDER BY name_key, source_type, context_prefix
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list link overrides: %w", err)
	}
	defer rows.Close()
	return scanOverrides(rows)
}

func (s *OverrideStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM link_overrides WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete link override: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// FindMatching returns the most specific override for the name whose scope
// admits the source type and context path, or nil. A scoped source type beats
// an unscoped one, then the longest matching context prefix wins.
func (s *OverrideStore) FindMatching(ctx context.Context, name, sourceType, contextPath string) (*models.LinkOverride, error) {
	key := names.Key(name)
	if key == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source_type, context_prefix, preferred_person_id, created_at
		FROM link_overrides
		WHERE name_key = ?
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find link override: %w", err)
	}
	defer rows.Close()

	candidates, err := scanOverrides(rows)
	if err != nil {
		return nil, err
	}

	path := names.NormalizeContextPath(contextPath)
	var best *models.LinkOverride
	bestRank := -1
	for _, o := range candidates {
		if o.SourceType != "" && o.SourceType != sourceType {
			continue
		}
		if o.ContextPrefix != "" && !strings.HasPrefix(path, o.ContextPrefix) {
			continue
		}
		rank := len(o.ContextPrefix)
		if o.SourceType != "" {
			rank += 10000
		}
		if rank > bestRank {
			best, bestRank = o, rank
		}
	}
	return best, nil
}

func scanOverrides(rows *sql.Rows) ([]*models.LinkOverride, error) {
	var overrides []*models.LinkOverride
	for rows.Next() {
		var o models.LinkOverride
		if err := rows.Scan(&o.ID, &o.Name, &o.SourceType, &o.ContextPrefix, &o.PreferredPersonID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan link override: %w", err)
		}
		overrides = append(overrides, &o)
	}
	return overrides, rows.Err()
}
