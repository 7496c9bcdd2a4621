package conversations

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

const conversationColumns = `id, name, type, description, avatar, created_by,
	is_encrypted, encryption_key_hash, last_message_id, last_activity,
	max_participants, is_archived, is_public, invite_code, settings,
	created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, c *chat.Conversation) error {
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	query := `INSERT INTO conversations
		(id, name, type, description, avatar, created_by, is_encrypted,
		 encryption_key_hash, last_activity, max_participants, is_archived,
		 is_public, invite_code, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`

	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Type, c.Description, c.Avatar, c.CreatedBy,
		c.IsEncrypted, c.EncryptionKeyHash, c.LastActivity, c.MaxParticipants,
		c.IsArchived, c.IsPublic, c.InviteCode, settings, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanConversation(scan func(dest ...any) error) (*chat.Conversation, error) {
	c := &chat.Conversation{}
	var settings []byte
	err := scan(&c.ID, &c.Name, &c.Type, &c.Description, &c.Avatar, &c.CreatedBy,
		&c.IsEncrypted, &c.EncryptionKeyHash, &c.LastMessageID, &c.LastActivity,
		&c.MaxParticipants, &c.IsArchived, &c.IsPublic, &c.InviteCode, &settings,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, chat.NewNotFound("conversation")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &c.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return scanConversation(r.db.QueryRowContext(ctx, query, id).Scan)
}

func (r *PostgresRepository) GetByInviteCode(ctx context.Context, code string) (*chat.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE invite_code = $1 AND type = 'group' AND is_archived = FALSE`
	return scanConversation(r.db.QueryRowContext(ctx, query, code).Scan)
}

func (r *PostgresRepository) FindDirect(ctx context.Context, identityA, identityB string) (*chat.Conversation, error) {
	// both parties must still be active members; a direct chat one side has
	// left is not reused
	query := `SELECT ` + conversationColumns + ` FROM conversations c
		WHERE c.type = 'direct'
		  AND EXISTS (SELECT 1 FROM memberships m
		              WHERE m.conversation_id = c.id AND m.identity_id = $1 AND m.left_at IS NULL)
		  AND EXISTS (SELECT 1 FROM memberships m
		              WHERE m.conversation_id = c.id AND m.identity_id = $2 AND m.left_at IS NULL)
		LIMIT 1`
	return scanConversation(r.db.QueryRowContext(ctx, query, identityA, identityB).Scan)
}

func (r *PostgresRepository) ListByIdentity(ctx context.Context, identityID string, archived bool, limit int) ([]*chat.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations c
		JOIN memberships m ON m.conversation_id = c.id
		WHERE m.identity_id = $1 AND m.left_at IS NULL AND c.is_archived = $2
		ORDER BY c.last_activity DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, identityID, archived, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateSettings(ctx context.Context, id string, settings chat.ConversationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	query := `UPDATE conversations SET settings = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, raw)
}

func (r *PostgresRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	query := `UPDATE conversations SET is_archived = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, archived)
}

func (r *PostgresRepository) SetInviteCode(ctx context.Context, id, code string) error {
	query := `UPDATE conversations SET invite_code = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, code)
}

func (r *PostgresRepository) AdvanceActivity(ctx context.Context, id string, lastMessageID *string, at time.Time) error {
	if lastMessageID != nil {
		query := `UPDATE conversations
			SET last_message_id = $2, last_activity = $3, updated_at = $3
			WHERE id = $1`
		return r.exec(ctx, query, id, *lastMessageID, at)
	}
	query := `UPDATE conversations SET last_activity = $2, updated_at = $2 WHERE id = $1`
	return r.exec(ctx, query, id, at)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.NewNotFound("conversation")
	}
	return nil
}
