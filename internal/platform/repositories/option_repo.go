package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"pubhook/internal/platform/models"
)

type OptionRepository struct {
	db *sql.DB
}

func NewOptionRepository(db *sql.DB) *OptionRepository {
	return &OptionRepository{db: db}
}

// Get returns the stored value for name, or "" when the option does not exist.
func (r *OptionRepository) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// Register creates the option with defaultValue unless it already exists.
func (r *OptionRepository) Register(ctx context.Context, name, defaultValue string) error {
	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO options (name, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, defaultValue, now, now)
	return err
}

const upsertOption = `
	INSERT INTO options (name, value, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

func (r *OptionRepository) Set(ctx context.Context, name, value string) error {
	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx, upsertOption, name, value, now, now)
	return err
}

// SetMany upserts every value in one transaction: either all of them are
// stored or none are.
func (r *OptionRepository) SetMany(ctx context.Context, values map[string]string) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, upsertOption, name, values[name], now, now); err != nil {
			return fmt.Errorf("upsert %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (r *OptionRepository) List(ctx context.Context) ([]*models.Option, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, value, created_at, updated_at FROM options ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []*models.Option
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.Name, &o.Value, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		options = append(options, &o)
	}
	return options, rows.Err()
}
