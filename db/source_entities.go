// ABOUTME: Persistence for source entities, the raw observations of people from each source
// ABOUTME: Observations are unique per source type and source ID and carry their link state
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harperreed/kin/models"
)

const sourceEntityColumns = `id, source_type, source_id, observed_name, observed_email, observed_phone,
	context_path, canonical_person_id, link_confidence, link_status, observed_at, created_at, updated_at`

type SourceEntityStore struct {
	db *sql.DB
}

func NewSourceEntityStore(db *sql.DB) *SourceEntityStore {
	return &SourceEntityStore{db: db}
}

// Upsert stores an observation keyed by source type and source ID. A repeat
// sighting refreshes the observed fields and keeps the existing ID and link.
func (s *SourceEntityStore) Upsert(ctx context.Context, entity *models.SourceEntity) (*models.SourceEntity, error) {
	if entity == nil || entity.SourceType == "" || entity.SourceID == "" {
		return nil, fmt.Errorf("invalid source entity: source type and source id are required")
	}
	now := time.Now().UTC()
	if entity.ID == "" {
		entity.ID = ulid.Make().String()
	}
	if entity.ObservedAt.IsZero() {
		entity.ObservedAt = now
	}
	if entity.LinkStatus == "" {
		entity.LinkStatus = models.LinkStatusUnlinked
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_entities (`+sourceEntityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_type, source_id) DO UPDATE SET
			observed_name = excluded.observed_name,
			observed_email = excluded.observed_email,
			observed_phone = excluded.observed_phone,
			context_path = excluded.context_path,
			observed_at = excluded.observed_at,
			updated_at = excluded.updated_at
	`,
		entity.ID,
		entity.SourceType,
		entity.SourceID,
		entity.ObservedName,
		entity.ObservedEmail,
		entity.ObservedPhone,
		entity.ContextPath,
		nullString(entity.CanonicalPersonID),
		entity.LinkConfidence,
		entity.LinkStatus,
		entity.ObservedAt,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert source entity: %w", err)
	}
	return s.GetBySource(ctx, entity.SourceType, entity.SourceID)
}

func (s *SourceEntityStore) GetByID(ctx context.Context, id string) (*models.SourceEntity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceEntityColumns+` FROM source_entities WHERE id = ?`, id)
	entity, err := scanSourceEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source entity: %w", err)
	}
	return entity, nil
}

func (s *SourceEntityStore) GetBySource(ctx context.Context, sourceType, sourceID string) (*models.SourceEntity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sourceEntityColumns+` FROM source_entities
		WHERE source_type = ? AND source_id = ?
	`, sourceType, sourceID)
	entity, err := scanSourceEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source entity: %w", err)
	}
	return entity, nil
}

func (s *SourceEntityStore) ListForPerson(ctx context.Context, personID string) ([]*models.SourceEntity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sourceEntityColumns+` FROM source_entities
		WHERE canonical_person_id = ?
		ORDER BY observed_at DESC, id
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to list source entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.SourceEntity
	for rows.Next() {
		entity, err := scanSourceEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source entity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// UpdateLink points an observation at a person. An empty person ID unlinks it.
func (s *SourceEntityStore) UpdateLink(ctx context.Context, id, personID string, confidence float64, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE source_entities
		SET canonical_person_id = ?, link_confidence = ?, link_status = ?, updated_at = ?
		WHERE id = ?
	`, nullString(personID), confidence, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update source entity link: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("source entity %s not found", id)
	}
	return nil
}

func scanSourceEntity(row rowScanner) (*models.SourceEntity, error) {
	var e models.SourceEntity
	var personID sql.NullString
	err := row.Scan(
		&e.ID,
		&e.SourceType,
		&e.SourceID,
		&e.ObservedName,
		&e.ObservedEmail,
		&e.ObservedPhone,
		&e.ContextPath,
		&personID,
		&e.LinkConfidence,
		&e.LinkStatus,
		&e.ObservedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.CanonicalPersonID = personID.String
	return &e, nil
}
