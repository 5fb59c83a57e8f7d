package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core/setting"
)

type settingRepository struct {
	db *sqlx.DB
}

var _ setting.Repository = (*settingRepository)(nil)

func NewSettingRepository(db *sqlx.DB) *settingRepository {
	return &settingRepository{db: db}
}

type settingRow struct {
	Key         string    `db:"key"`
	Value       string    `db:"value"`
	Type        string    `db:"type"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row settingRow) toSetting() setting.Setting {
	return setting.Setting(row)
}

func (repo settingRepository) GetSetting(ctx context.Context, key string) (setting.Setting, error) {
	var row settingRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM settings WHERE key = $1`, key); err != nil {
		if err == sql.ErrNoRows {
			return setting.Setting{}, setting.ErrNotFound
		}
		return setting.Setting{}, errors.Wrap(err, "getting setting")
	}
	return row.toSetting(), nil
}

func (repo settingRepository) UpsertSetting(ctx context.Context, s setting.Setting) (setting.Setting, error) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `INSERT INTO settings (key, value, type, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (key) DO UPDATE SET value       = EXCLUDED.value,
                                type        = EXCLUDED.type,
                                description = EXCLUDED.description,
                                updated_at  = EXCLUDED.updated_at`
	_, err := repo.db.ExecContext(ctx, query, s.Key, s.Value, s.Type, s.Description, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return setting.Setting{}, errors.Wrap(err, "upserting setting")
	}
	return s, nil
}

func (repo settingRepository) QueryAllSettings(ctx context.Context) ([]setting.Setting, error) {
	var rows []settingRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM settings ORDER BY key`); err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}
	settings := make([]setting.Setting, 0, len(rows))
	for _, row := range rows {
		settings = append(settings, row.toSetting())
	}
	return settings, nil
}
