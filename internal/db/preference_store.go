package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PreferenceStore persists key/value preferences and navigation
// section expansion state
type PreferenceStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPreferenceStore creates a preference store from a base store
func NewPreferenceStore(store *Store) *PreferenceStore {
	if store == nil {
		return nil
	}
	return &PreferenceStore{db: store.DB(), now: time.Now}
}

// GetPreference returns a stored value if present
func (ps *PreferenceStore) GetPreference(ctx context.Context, key string) (string, bool, error) {
	if ps == nil || ps.db == nil {
		return "", false, fmt.Errorf("preference store not initialized")
	}
	var out string
	err := ps.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key=?`, key).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}

// SetPreference upserts a value
func (ps *PreferenceStore) SetPreference(ctx context.Context, key, value string) error {
	if ps == nil || ps.db == nil {
		return fmt.Errorf("preference store not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("preference key cannot be empty")
	}
	_, err := ps.db.ExecContext(ctx, `INSERT INTO preferences(key, value, updated_at)
VALUES(?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at;
`, key, value, ps.now().Unix())
	return err
}

// SectionStates returns the expansion state of every stored section
func (ps *PreferenceStore) SectionStates(ctx context.Context) (map[string]bool, error) {
	if ps == nil || ps.db == nil {
		return nil, fmt.Errorf("preference store not initialized")
	}
	rows, err := ps.db.QueryContext(ctx, `SELECT section_id, expanded FROM nav_sections`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		var expanded bool
		if err := rows.Scan(&id, &expanded); err != nil {
			return nil, err
		}
		out[id] = expanded
	}
	return out, rows.Err()
}

// SetSectionState upserts one section's expansion state
func (ps *PreferenceStore) SetSectionState(ctx context.Context, sectionID string, expanded bool) error {
	if ps == nil || ps.db == nil {
		return fmt.Errorf("preference store not initialized")
	}
	if strings.TrimSpace(sectionID) == "" {
		return fmt.Errorf("section id cannot be empty")
	}
	_, err := ps.db.ExecContext(ctx, `INSERT INTO nav_sections(section_id, expanded, updated_at)
VALUES(?,?,?)
ON CONFLICT(section_id) DO UPDATE SET expanded=excluded.expanded, updated_at=excluded.updated_at;
`, sectionID, expanded, ps.now().Unix())
	return err
}
