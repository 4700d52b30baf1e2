// ABOUTME: Database schema definitions and migrations
// ABOUTME: People with lookup index tables, observations, pending links, overrides and sync tracking
package db

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS people (
	id TEXT PRIMARY KEY,
	canonical_name TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	emails TEXT NOT NULL DEFAULT '[]',
	phones TEXT NOT NULL DEFAULT '[]',
	primary_phone TEXT NOT NULL DEFAULT '',
	aliases TEXT NOT NULL DEFAULT '[]',
	vault_contexts TEXT NOT NULL DEFAULT '[]',
	category TEXT NOT NULL DEFAULT 'unknown',
	company TEXT NOT NULL DEFAULT '',
	position TEXT NOT NULL DEFAULT '',
	linkedin_url TEXT NOT NULL DEFAULT '',
	relationship_strength INTEGER NOT NULL DEFAULT 0,
	first_seen DATETIME,
	last_seen DATETIME,
	sources TEXT NOT NULL DEFAULT '[]',
	confirmed_fields TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_people_canonical_name ON people(canonical_name);

CREATE TABLE IF NOT EXISTS person_emails (
	email TEXT PRIMARY KEY,
	person_id TEXT NOT NULL,
	FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_person_emails_person ON person_emails(person_id);

CREATE TABLE IF NOT EXISTS person_phones (
	phone TEXT PRIMARY KEY,
	person_id TEXT NOT NULL,
	FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_person_phones_person ON person_phones(person_id);

CREATE TABLE IF NOT EXISTS person_names (
	name_key TEXT NOT NULL,
	person_id TEXT NOT NULL,
	PRIMARY KEY (name_key, person_id),
	FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS source_entities (
	id TEXT PRIMARY KEY,
	source_type TEXT NOT NULL,
	source_id TEXT NOT NULL,
	observed_name TEXT NOT NULL DEFAULT '',
	observed_email TEXT NOT NULL DEFAULT '',
	observed_phone TEXT NOT NULL DEFAULT '',
	context_path TEXT NOT NULL DEFAULT '',
	canonical_person_id TEXT,
	link_confidence REAL NOT NULL DEFAULT 0,
	link_status TEXT NOT NULL DEFAULT 'unlinked',
	observed_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (source_type, source_id)
);

CREATE INDEX IF NOT EXISTS idx_source_entities_person ON source_entities(canonical_person_id);

CREATE TABLE IF NOT EXISTS pending_links (
	id TEXT PRIMARY KEY,
	source_entity_id TEXT NOT NULL,
	previous_canonical_id TEXT,
	proposed_canonical_id TEXT NOT NULL,
	reason TEXT NOT NULL,
	confidence REAL NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	resolved_at DATETIME,
	resolved_by TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pending_links_status ON pending_links(status);
CREATE INDEX IF NOT EXISTS idx_pending_links_source ON pending_links(source_entity_id);
CREATE INDEX IF NOT EXISTS idx_pending_links_proposed ON pending_links(proposed_canonical_id);

CREATE TABLE IF NOT EXISTS link_overrides (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	name_key TEXT NOT NULL,
	source_type TEXT NOT NULL DEFAULT '',
	context_prefix TEXT NOT NULL DEFAULT '',
	preferred_person_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE (name_key, source_type, context_prefix)
);

CREATE TABLE IF NOT EXISTS sync_state (
	service TEXT PRIMARY KEY,
	last_sync_time DATETIME,
	last_sync_token TEXT,
	status TEXT NOT NULL DEFAULT 'idle',
	error_message TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id TEXT PRIMARY KEY,
	source_service TEXT NOT NULL,
	source_id TEXT NOT NULL,
	source_entity_id TEXT NOT NULL DEFAULT '',
	imported_at DATETIME NOT NULL,
	metadata TEXT,
	UNIQUE (source_service, source_id)
);
`

func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
