// ABOUTME: Persistence for pending link proposals awaiting human confirmation
// ABOUTME: Status moves from pending to confirmed or rejected exactly once
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harperreed/kin/models"
)

const pendingLinkColumns = `id, source_entity_id, previous_canonical_id, proposed_canonical_id,
	reason, confidence, status, resolved_at, resolved_by, created_at`

type PendingLinkStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPendingLinkStore(db *sql.DB) *PendingLinkStore {
	return &PendingLinkStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Add stores a new proposal. ID, status and creation time are filled in when empty.
func (s *PendingLinkStore) Add(ctx context.Context, link *models.PendingLink) (*models.PendingLink, error) {
	if link == nil || link.SourceEntityID == "" || link.ProposedCanonicalID == "" {
		return nil, fmt.Errorf("invalid pending link: source entity and proposed person are required")
	}
	if link.ID == "" {
		link.ID = ulid.Make().String()
	}
	if link.Status == "" {
		link.Status = models.LinkStatusPending
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_links (`+pendingLinkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		link.ID,
		link.SourceEntityID,
		nullString(link.PreviousCanonicalID),
		link.ProposedCanonicalID,
		link.Reason,
		link.Confidence,
		link.Status,
		link.ResolvedAt,
		nullString(link.ResolvedBy),
		link.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add pending link: %w", err)
	}
	return link, nil
}

// GetByID returns nil when the link does not exist.
func (s *PendingLinkStore) GetByID(ctx context.Context, id string) (*models.PendingLink, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pendingLinkColumns+` FROM pending_links WHERE id = ?`, id)
	link, err := scanPendingLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending link: %w", err)
	}
	return link, nil
}

func (s *PendingLinkStore) GetForSourceEntity(ctx context.Context, sourceEntityID string) ([]*models.PendingLink, error) {
	return s.query(ctx, `
		SELECT `+pendingLinkColumns+` FROM pending_links
		WHERE source_entity_id = ?
		ORDER BY created_at, id
	`, sourceEntityID)
}

// GetPending lists unresolved links oldest first. A limit of zero or less means no limit.
func (s *PendingLinkStore) GetPending(ctx context.Context, limit int) ([]*models.PendingLink, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx, `
		SELECT `+pendingLinkColumns+` FROM pending_links
		WHERE status = ?
		ORDER BY created_at, id
		LIMIT ?
	`, models.LinkStatusPending, limit)
}

func (s *PendingLinkStore) GetPendingForPerson(ctx context.Context, personID string) ([]*models.PendingLink, error) {
	return s.query(ctx, `
		SELECT `+pendingLinkColumns+` FROM pending_links
		WHERE status = ? AND proposed_canonical_id = ?
		ORDER BY created_at, id
	`, models.LinkStatusPending, personID)
}

// Confirm resolves a pending link as confirmed. A missing ID returns nil; an
// already resolved link is returned unchanged.
func (s *PendingLinkStore) Confirm(ctx context.Context, id, resolvedBy string) (*models.PendingLink, error) {
	return s.resolve(ctx, id, models.LinkStatusConfirmed, resolvedBy)
}

// Reject resolves a pending link as rejected, with the same rules as Confirm.
func (s *PendingLinkStore) Reject(ctx context.Context, id, resolvedBy string) (*models.PendingLink, error) {
	return s.resolve(ctx, id, models.LinkStatusRejected, resolvedBy)
}

func (s *PendingLinkStore) resolve(ctx context.Context, id, status, resolvedBy string) (*models.PendingLink, error) {
	if resolvedBy == "" {
		resolvedBy = models.ResolvedByUser
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_links
		SET status = ?, resolved_at = ?, resolved_by = ?
		WHERE id = ? AND status = ?
	`, status, s.now(), resolvedBy, id, models.LinkStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to %s pending link: %w", strings.TrimSuffix(status, "ed"), err)
	}
	return s.GetByID(ctx, id)
}

func (s *PendingLinkStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pending_links WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete pending link: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// DeleteForSourceEntity removes every link of an observation and returns how many went.
func (s *PendingLinkStore) DeleteForSourceEntity(ctx context.Context, sourceEntityID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pending_links WHERE source_entity_id = ?`, sourceEntityID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending links: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// DeletePendingForSourceEntity removes only the unresolved links of an observation.
func (s *PendingLinkStore) DeletePendingForSourceEntity(ctx context.Context, sourceEntityID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_links WHERE source_entity_id = ? AND status = ?
	`, sourceEntityID, models.LinkStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending links: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

func (s *PendingLinkStore) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_links WHERE status = ?`, models.LinkStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending links: %w", err)
	}
	return count, nil
}

// GetStatistics aggregates every link by status and reason at call time.
func (s *PendingLinkStore) GetStatistics(ctx context.Context) (*models.LinkStatistics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, reason, COUNT(*) FROM pending_links GROUP BY status, reason
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get link statistics: %w", err)
	}
	defer rows.Close()

	stats := &models.LinkStatistics{ByReason: make(map[string]int)}
	for rows.Next() {
		var status, reason string
		var count int
		if err := rows.Scan(&status, &reason, &count); err != nil {
			return nil, fmt.Errorf("failed to scan link statistics: %w", err)
		}
		stats.Total += count
		stats.ByReason[reason] += count
		switch status {
		case models.LinkStatusPending:
			stats.PendingCount += count
		case models.LinkStatusConfirmed:
			stats.ConfirmedCount += count
		case models.LinkStatusRejected:
			stats.RejectedCount += count
		}
	}
	return stats, rows.Err()
}

func (s *PendingLinkStore) query(ctx context.Context, query string, args ...any) ([]*models.PendingLink, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending links: %w", err)
	}
	defer rows.Close()

	var links []*models.PendingLink
	for rows.Next() {
		link, err := scanPendingLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func scanPendingLink(row rowScanner) (*models.PendingLink, error) {
	var link models.PendingLink
	var previous, resolvedBy sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&link.ID,
		&link.SourceEntityID,
		&previous,
		&link.ProposedCanonicalID,
		&link.Reason,
		&link.Confidence,
		&link.Status,
		&resolvedAt,
		&resolvedBy,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	link.PreviousCanonicalID = previous.String
	link.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		link.ResolvedAt = &t
	}
	return &link, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
