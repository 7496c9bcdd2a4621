package memberships

import (
	"context"
	"database/sql"
	"encoding/json"
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

const membershipColumns = `id, conversation_id, identity_id, role, joined_at,
	invited_by, left_at, notification_settings, permissions,
	last_read_message_id, last_active_at, is_muted, muted_until, is_favorite,
	created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, m *chat.Membership) error {
	notif, err := json.Marshal(m.NotificationSettings)
	if err != nil {
		return fmt.Errorf("marshal notification settings: %w", err)
	}
	perms, err := json.Marshal(m.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}

	query := `INSERT INTO memberships
		(id, conversation_id, identity_id, role, joined_at, invited_by,
		 notification_settings, permissions, last_active_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	// unique-constraint violations pass through untouched so the caller can
	// tell the owner index from the duplicate-membership index
	_, err = r.db.ExecContext(ctx, query,
		m.ID, m.ConversationID, m.IdentityID, m.Role, m.JoinedAt, m.InvitedBy,
		notif, perms, m.LastActiveAt, m.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanMembership(scan func(dest ...any) error) (*chat.Membership, error) {
	m := &chat.Membership{}
	var notif, perms []byte
	err := scan(&m.ID, &m.ConversationID, &m.IdentityID, &m.Role, &m.JoinedAt,
		&m.InvitedBy, &m.LeftAt, &notif, &perms, &m.LastReadMessageID,
		&m.LastActiveAt, &m.IsMuted, &m.MutedUntil, &m.IsFavorite,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, chat.NewNotFound("membership")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(notif) > 0 {
		if err := json.Unmarshal(notif, &m.NotificationSettings); err != nil {
			return nil, fmt.Errorf("unmarshal notification settings: %w", err)
		}
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &m.Permissions); err != nil {
			return nil, fmt.Errorf("unmarshal permissions: %w", err)
		}
	}
	return m, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*chat.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1`
	return scanMembership(r.db.QueryRowContext(ctx, query, id).Scan)
}

func (r *PostgresRepository) GetActive(ctx context.Context, conversationID, identityID string) (*chat.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships
		WHERE conversation_id = $1 AND identity_id = $2 AND left_at IS NULL`
	return scanMembership(r.db.QueryRowContext(ctx, query, conversationID, identityID).Scan)
}

func (r *PostgresRepository) CountActive(ctx context.Context, conversationID string) (int, error) {
	query := `SELECT COUNT(*) FROM memberships
		WHERE conversation_id = $1 AND left_at IS NULL`
	var n int
	if err := r.db.QueryRowContext(ctx, query, conversationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) List(ctx context.Context, conversationID string, includeLeft bool, role chat.Role) ([]*chat.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships
		WHERE conversation_id = $1
		  AND ($2 OR left_at IS NULL)
		  AND ($3 = '' OR role = $3)
		ORDER BY role ASC, joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, conversationID, includeLeft, string(role))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*chat.Membership
	for rows.Next() {
		m, err := scanMembership(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SetLeft(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE memberships SET left_at = $2, updated_at = $2
		WHERE id = $1 AND left_at IS NULL`
	return r.exec(ctx, query, id, at)
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role chat.Role, permissions chat.PermissionSet) error {
	perms, err := json.Marshal(permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	query := `UPDATE memberships SET role = $2, permissions = $3, updated_at = now()
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, role, perms)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.NewNotFound("membership")
	}
	return nil
}

func (r *PostgresRepository) UpdateLastRead(ctx context.Context, id, contentID string, at time.Time) error {
	query := `UPDATE memberships
		SET last_read_message_id = $2, last_active_at = $3, updated_at = $3
		WHERE id = $1`
	return r.exec(ctx, query, id, contentID, at)
}

func (r *PostgresRepository) UpdateMute(ctx context.Context, id string, muted bool, until *time.Time) error {
	query := `UPDATE memberships SET is_muted = $2, muted_until = $3, updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id, muted, until)
}

func (r *PostgresRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	query := `UPDATE memberships SET is_favorite = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, favorite)
}

func (r *PostgresRepository) UpdateNotificationSettings(ctx context.Context, id string, settings chat.NotificationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal notification settings: %w", err)
	}
	query := `UPDATE memberships SET notification_settings = $2, updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id, raw)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.NewNotFound("membership")
	}
	return nil
}
