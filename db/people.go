// ABOUTME: SQLite-backed person directory
// ABOUTME: Stores canonical people with email, phone and name index tables for exact lookups
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
)

var (
	ErrPersonNotFound = errors.New("person not found")
	ErrInvalidPerson  = errors.New("invalid person")
)

const personColumns = `
	p.id, p.canonical_name, p.display_name, p.emails, p.phones, p.primary_phone,
	p.aliases, p.vault_contexts, p.category, p.company, p.position, p.linkedin_url,
	p.relationship_strength, p.first_seen, p.last_seen, p.sources, p.confirmed_fields,
	p.created_at, p.updated_at`

// PersonStore is the person directory over SQLite. Each Add and Update is a
// single transaction, so Save has nothing left to flush.
type PersonStore struct {
	db *sql.DB
}

func NewPersonStore(db *sql.DB) *PersonStore {
	return &PersonStore{db: db}
}

// Add inserts a person, assigning an ID and timestamps when missing.
func (s *PersonStore) Add(ctx context.Context, person *models.CanonicalPerson) (*models.CanonicalPerson, error) {
	if person == nil || strings.TrimSpace(person.CanonicalName) == "" {
		return nil, ErrInvalidPerson
	}
	if person.ID == "" {
		person.ID = uuid.New().String()
	}
	if person.Category == "" {
		person.Category = models.CategoryUnknown
	}
	now := time.Now().UTC()
	if person.CreatedAt.IsZero() {
		person.CreatedAt = now
	}
	person.UpdatedAt = now

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cols, err := personValues(person)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO people (id, canonical_name, display_name, emails, phones, primary_phone,
				aliases, vault_contexts, category, company, position, linkedin_url,
				relationship_strength, first_seen, last_seen, sources, confirmed_fields,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, append([]any{person.ID}, append(cols, person.CreatedAt, person.UpdatedAt)...)...)
		if err != nil {
			return fmt.Errorf("failed to insert person: %w", err)
		}
		return writeIndexes(ctx, tx, person)
	})
	if err != nil {
		return nil, err
	}
	return person, nil
}

// Update persists every field of an existing person and rebuilds its indexes.
func (s *PersonStore) Update(ctx context.Context, person *models.CanonicalPerson) error {
	if person == nil || person.ID == "" || strings.TrimSpace(person.CanonicalName) == "" {
		return ErrInvalidPerson
	}
	person.UpdatedAt = time.Now().UTC()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		cols, err := personValues(person)
		if err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `
			UPDATE people
			SET canonical_name = ?, display_name = ?, emails = ?, phones = ?, primary_phone = ?,
				aliases = ?, vault_contexts = ?, category = ?, company = ?, position = ?,
				linkedin_url = ?, relationship_strength = ?, first_seen = ?, last_seen = ?,
				sources = ?, confirmed_fields = ?, updated_at = ?
			WHERE id = ?
		`, append(cols, person.UpdatedAt, person.ID)...)
		if err != nil {
			return fmt.Errorf("failed to update person: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrPersonNotFound
		}
		for _, table := range []string{"person_emails", "person_phones", "person_names"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE person_id = ?", person.ID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return writeIndexes(ctx, tx, person)
	})
}

// Save is a no-op because every write is committed when it returns.
func (s *PersonStore) Save(_ context.Context) error {
	return nil
}

// GetByID returns nil when no person has the ID.
func (s *PersonStore) GetByID(ctx context.Context, id string) (*models.CanonicalPerson, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people p WHERE p.id = ?`, id)
	person, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return person, nil
}

func (s *PersonStore) GetByEmail(ctx context.Context, email string) (*models.CanonicalPerson, error) {
	normalized := names.NormalizeEmail(email)
	if normalized == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+personColumns+`
		FROM people p JOIN person_emails e ON e.person_id = p.id
		WHERE e.email = ?
	`, normalized)
	person, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person by email: %w", err)
	}
	return person, nil
}

func (s *PersonStore) GetByPhone(ctx context.Context, phone string) (*models.CanonicalPerson, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+personColumns+`
		FROM people p JOIN person_phones ph ON ph.person_id = p.id
		WHERE ph.phone = ?
	`, strings.TrimSpace(phone))
	person, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person by phone: %w", err)
	}
	return person, nil
}

// FindByName returns every person whose canonical name or alias matches exactly,
// ignoring case, punctuation and diacritics.
func (s *PersonStore) FindByName(ctx context.Context, name string) ([]*models.CanonicalPerson, error) {
	key := names.Key(name)
	if key == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+personColumns+`
		FROM people p JOIN person_names n ON n.person_id = p.id
		WHERE n.name_key = ?
		ORDER BY p.created_at, p.id
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find people by name: %w", err)
	}
	defer rows.Close()
	return scanPeople(rows)
}

func (s *PersonStore) GetAll(ctx context.Context) ([]*models.CanonicalPerson, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personColumns+` FROM people p ORDER BY p.canonical_name, p.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()
	return scanPeople(rows)
}

func (s *PersonStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM people`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count people: %w", err)
	}
	return count, nil
}

func (s *PersonStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// writeIndexes records lookup rows. An email or phone already owned by another
// person keeps its first owner.
func writeIndexes(ctx context.Context, tx *sql.Tx, person *models.CanonicalPerson) error {
	for _, email := range person.Emails {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO person_emails (email, person_id) VALUES (?, ?)`, email, person.ID); err != nil {
			return fmt.Errorf("failed to index email: %w", err)
		}
	}
	for _, phone := range person.Phones {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO person_phones (phone, person_id) VALUES (?, ?)`, phone, person.ID); err != nil {
			return fmt.Errorf("failed to index phone: %w", err)
		}
	}
	for _, variant := range person.NameVariants() {
		key := names.Key(variant)
		if key == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO person_names (name_key, person_id) VALUES (?, ?)`, key, person.ID); err != nil {
			return fmt.Errorf("failed to index name: %w", err)
		}
	}
	return nil
}

// personValues returns the mutable columns in table order, starting at canonical_name.
func personValues(p *models.CanonicalPerson) ([]any, error) {
	lists := [][]string{p.Emails, p.Phones, p.Aliases, p.VaultContexts, p.Sources, p.ConfirmedFields}
	encoded := make([]string, len(lists))
	for i, list := range lists {
		s, err := encodeList(list)
		if err != nil {
			return nil, err
		}
		encoded[i] = s
	}
	return []any{
		p.CanonicalName, p.DisplayName, encoded[0], encoded[1], p.PrimaryPhone,
		encoded[2], encoded[3], p.Category, p.Company, p.Position, p.LinkedInURL,
		p.RelationshipStrength, nullTime(p.FirstSeen), nullTime(p.LastSeen), encoded[4], encoded[5],
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*models.CanonicalPerson, error) {
	var p models.CanonicalPerson
	var emails, phones, aliases, contexts, sources, confirmed string
	var firstSeen, lastSeen sql.NullTime

	err := row.Scan(
		&p.ID, &p.CanonicalName, &p.DisplayName, &emails, &phones, &p.PrimaryPhone,
		&aliases, &contexts, &p.Category, &p.Company, &p.Position, &p.LinkedInURL,
		&p.RelationshipStrength, &firstSeen, &lastSeen, &sources, &confirmed,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		raw string
		dst *[]string
	}{
		{emails, &p.Emails}, {phones, &p.Phones}, {aliases, &p.Aliases},
		{contexts, &p.VaultContexts}, {sources, &p.Sources}, {confirmed, &p.ConfirmedFields},
	} {
		if err := decodeList(pair.raw, pair.dst); err != nil {
			return nil, err
		}
	}
	if firstSeen.Valid {
		p.FirstSeen = firstSeen.Time
	}
	if lastSeen.Valid {
		p.LastSeen = lastSeen.Time
	}
	return &p, nil
}

func scanPeople(rows *sql.Rows) ([]*models.CanonicalPerson, error) {
	var people []*models.CanonicalPerson
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func encodeList(list []string) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string, dst *[]string) error {
	if raw == "" || raw == "[]" || raw == "null" {
		*dst = nil
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("failed to decode list: %w", err)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
