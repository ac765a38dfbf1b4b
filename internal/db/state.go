package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetState returns the stored values for keys. Missing keys are absent from
// the returned map.
func (db *DB) GetState(keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		var v string
		err := db.QueryRow("SELECT value FROM client_state WHERE key = ?", k).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get state %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// PutState writes all values in one transaction.
func (db *DB) PutState(values map[string]string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin put state: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for k, v := range values {
		if _, err := tx.Exec(`
			INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, k, v, now); err != nil {
			return fmt.Errorf("put state %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put state: %w", err)
	}
	return nil
}

// DeleteState removes all keys in one transaction.
func (db *DB) DeleteState(keys ...string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete state: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.Exec("DELETE FROM client_state WHERE key = ?", k); err != nil {
			return fmt.Errorf("delete state %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete state: %w", err)
	}
	return nil
}

// GetPreference returns a stored preference and whether it was set.
func (db *DB) GetPreference(key string) (string, bool, error) {
	var v string
	err := db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return v, true, nil
}

// SetPreference stores a preference value.
func (db *DB) SetPreference(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}
