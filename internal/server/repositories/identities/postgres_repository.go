package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/secrypt/secrypt/internal/chat"
	"github.com/secrypt/secrypt/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = `id, email, name, password_hash, profile_image, status, last_seen,
	email_verified, email_verification_token, password_reset_token, password_reset_expires,
	two_factor_enabled, two_factor_secret, profile_visibility, last_seen_visibility,
	is_active, deactivated_at, encryption_key_salt, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, identity *chat.Identity) error {
	query := `INSERT INTO identities
		(id, email, name, password_hash, profile_image, status, last_seen,
		 email_verification_token, profile_visibility, last_seen_visibility,
		 is_active, encryption_key_salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

	_, err := r.db.ExecContext(ctx, query,
		identity.ID, identity.Email, identity.Name, identity.PasswordHash,
		identity.ProfileImage, identity.Status, identity.LastSeen,
		identity.EmailVerificationToken, identity.ProfileVisibility,
		identity.LastSeenVisibility, identity.IsActive,
		identity.EncryptionKeySalt, identity.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*chat.Identity, error) {
	i := &chat.Identity{}
	err := row.Scan(&i.ID, &i.Email, &i.Name, &i.PasswordHash, &i.ProfileImage,
		&i.Status, &i.LastSeen, &i.EmailVerified, &i.EmailVerificationToken,
		&i.PasswordResetToken, &i.PasswordResetExpires, &i.TwoFactorEnabled,
		&i.TwoFactorSecret, &i.ProfileVisibility, &i.LastSeenVisibility,
		&i.IsActive, &i.DeactivatedAt, &i.EncryptionKeySalt, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, chat.NewNotFound("identity")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return i, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*chat.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*chat.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities
		WHERE email = $1 AND is_active = TRUE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, chat.NormalizeEmail(email)))
}

func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*chat.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities
		WHERE email_verification_token = $1 AND email_verified = FALSE AND is_active = TRUE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) GetByPasswordResetToken(ctx context.Context, tokenHash string, now time.Time) (*chat.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities
		WHERE password_reset_token = $1 AND password_reset_expires > $2 AND is_active = TRUE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash, now))
}

func (r *PostgresRepository) UpdatePresence(ctx context.Context, id string, status chat.PresenceStatus, lastSeen time.Time) error {
	query := `UPDATE identities SET status = $2, last_seen = $3, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, query, id, status, lastSeen)
}

func (r *PostgresRepository) SetEmailVerified(ctx context.Context, id string) error {
	query := `UPDATE identities
		SET email_verified = TRUE, email_verification_token = '', updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) SetPasswordReset(ctx context.Context, id, tokenHash string, expires *time.Time) error {
	query := `UPDATE identities
		SET password_reset_token = $2, password_reset_expires = $3, updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id, tokenHash, expires)
}

func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	query := `UPDATE identities
		SET password_hash = $2, password_reset_token = '', password_reset_expires = NULL,
		    updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id, hash)
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE identities
		SET is_active = FALSE, deactivated_at = $2, status = 'offline', updated_at = $2
		WHERE id = $1`
	return r.exec(ctx, query, id, at)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.NewNotFound("identity")
	}
	return nil
}
