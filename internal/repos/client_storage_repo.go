package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"textilepro/internal/domain"
)

// ClientStorageRepo keeps browser-style key/value snapshots per session.
type ClientStorageRepo struct{ db *sqlx.DB }

func NewClientStorageRepo(db *sqlx.DB) *ClientStorageRepo { return &ClientStorageRepo{db: db} }

// Get reports ok=false when nothing is stored under the key.
func (r *ClientStorageRepo) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	var v string
	err := r.db.GetContext(ctx, &v, r.db.Rebind(`SELECT value FROM client_storage WHERE session_id = ? AND storage_key = ?`), sessionID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *ClientStorageRepo) Set(ctx context.Context, sessionID, key, value string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO client_storage(session_id, storage_key, value, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(session_id, storage_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`), sessionID, key, value, domain.FormatTime(time.Now()))
	return err
}

func (r *ClientStorageRepo) Delete(ctx context.Context, sessionID, key string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM client_storage WHERE session_id = ? AND storage_key = ?`), sessionID, key)
	return err
}
