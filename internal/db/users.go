package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/authkit/backend/internal/model"
)

func (db *Postgres) EnsureUserSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			refresh_token TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS users_email_idx ON users(email)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, email, password_hash, verified, refresh_token, created_at, updated_at
	`
	var user model.User
	err := db.Pool.QueryRow(ctx, query, uuid.New(), email, passwordHash).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Verified,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, password_hash, verified, refresh_token, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return db.scanUser(db.Pool.QueryRow(ctx, query, email))
}

func (db *Postgres) GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, email, password_hash, verified, refresh_token, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return db.scanUser(db.Pool.QueryRow(ctx, query, userID))
}

// UpdateRefreshToken overwrites the user's refresh-token slot. Sign-in
// replaces whatever was there; prior sessions lose refresh ability.
func (db *Postgres) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	query := `
		UPDATE users
		SET refresh_token = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, userID, refreshToken)
	return err
}

// SwapRefreshToken rotates the slot only if it still holds oldToken,
// so two concurrent refreshes cannot both win. Returns whether the
// swap happened.
func (db *Postgres) SwapRefreshToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) (bool, error) {
	query := `
		UPDATE users
		SET refresh_token = $3, updated_at = NOW()
		WHERE id = $1 AND refresh_token = $2
	`
	tag, err := db.Pool.Exec(ctx, query, userID, oldToken, newToken)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (db *Postgres) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, userID, passwordHash)
	return err
}

func (db *Postgres) scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Verified,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func IsNoRows(err error) bool {
	return err == pgx.ErrNoRows
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
