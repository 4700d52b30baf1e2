// ABOUTME: Database operations for sync_state and sync_log tables
// ABOUTME: Tracks importer status, tokens and which source items were already observed
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/harperreed/kin/models"
)

type SyncStore struct {
	db *sql.DB
}

func NewSyncStore(db *sql.DB) *SyncStore {
	return &SyncStore{db: db}
}

// GetSyncState returns nil when the service has never synced.
func (s *SyncStore) GetSyncState(ctx context.Context, service string) (*models.SyncState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT service, last_sync_time, last_sync_token, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE service = ?
	`, service)
	state, err := scanSyncState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	return state, nil
}

// UpdateSyncStatus sets the status of a service. An empty errorMsg clears the error.
func (s *SyncStore) UpdateSyncStatus(ctx context.Context, service, status, errorMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (service, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, service, status, nullString(errorMsg))
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

// UpdateSyncToken records a completed sync and its continuation token.
func (s *SyncStore) UpdateSyncToken(ctx context.Context, service, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (service, last_sync_time, last_sync_token, status, created_at, updated_at)
		VALUES (?, CURRENT_TIMESTAMP, ?, 'idle', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET
			last_sync_time = CURRENT_TIMESTAMP,
			last_sync_token = excluded.last_sync_token,
			status = 'idle',
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
	`, service, nullString(token))
	if err != nil {
		return fmt.Errorf("failed to update sync token: %w", err)
	}
	return nil
}

func (s *SyncStore) GetAllSyncStates(ctx context.Context) ([]*models.SyncState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service, last_sync_time, last_sync_token, status, error_message, created_at, updated_at
		FROM sync_state
		ORDER BY service
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []*models.SyncState
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync states: %w", err)
	}
	return states, nil
}

// CheckSyncLogExists reports whether a source item has already been imported.
func (s *SyncStore) CheckSyncLogExists(ctx context.Context, sourceService, sourceID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_log
		WHERE source_service = ? AND source_id = ?
	`, sourceService, sourceID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check sync log: %w", err)
	}
	return count > 0, nil
}

// CreateSyncLog records an imported source item. Re-importing the same item is a no-op.
func (s *SyncStore) CreateSyncLog(ctx context.Context, sourceService, sourceID, sourceEntityID, metadata string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sync_log (id, source_service, source_id, source_entity_id, imported_at, metadata)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, ?)
	`, uuid.New().String(), sourceService, sourceID, sourceEntityID, nullString(metadata))
	if err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}
	return nil
}

func scanSyncState(row rowScanner) (*models.SyncState, error) {
	var state models.SyncState
	var lastSyncTime sql.NullTime
	var lastSyncToken, errorMessage sql.NullString

	err := row.Scan(
		&state.Service,
		&lastSyncTime,
		&lastSyncToken,
		&state.Status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastSyncTime.Valid {
		t := lastSyncTime.Time
		state.LastSyncTime = &t
	}
	state.LastSyncToken = lastSyncToken.String
	state.ErrorMessage = errorMessage.String
	return &state, nil
}
