// internal/repository/settings_repository.go
package repository

import (
	"database/sql"
	"strconv"
)

// SettingsRepository holds live-tunable operator settings. MAX_CPS lives
// here so operators can lower it under carrier stress without a deploy;
// the limiter reads it fresh on every admit.
type SettingsRepository struct {
	DB *sql.DB
}

const SettingMaxCPS = "max_cps"

// GetInt reads a setting, returning fallback when the row is missing or
// unreadable. Read errors must not take the dial path down.
func (r *SettingsRepository) GetInt(key string, fallback int) int {
	var raw string
	err := r.DB.QueryRow(`SELECT value FROM settings WHERE key=$1`, key).Scan(&raw)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func (r *SettingsRepository) SetInt(key string, value int) error {
	_, err := r.DB.Exec(`
        INSERT INTO settings (key, value) VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
    `, key, strconv.Itoa(value))
	return err
}
