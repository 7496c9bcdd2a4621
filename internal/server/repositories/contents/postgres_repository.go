package contents

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

const contentColumns = `id, conversation_id, sender_id, type, body, attachment_id,
	reply_to, forwarded_from, is_encrypted, encryption_key_hash, is_edited,
	edited_at, is_deleted, deleted_at, deleted_by, metadata, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, c *chat.Content) error {
	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `INSERT INTO contents
		(id, conversation_id, sender_id, type, body, attachment_id, reply_to,
		 forwarded_from, is_encrypted, encryption_key_hash, metadata,
		 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`

	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.ConversationID, c.SenderID, c.Type, c.Body, c.AttachmentID,
		c.ReplyTo, c.ForwardedFrom, c.IsEncrypted, c.EncryptionKeyHash,
		metadata, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanContent(scan func(dest ...any) error) (*chat.Content, error) {
	c := &chat.Content{}
	var metadata []byte
	err := scan(&c.ID, &c.ConversationID, &c.SenderID, &c.Type, &c.Body,
		&c.AttachmentID, &c.ReplyTo, &c.ForwardedFrom, &c.IsEncrypted,
		&c.EncryptionKeyHash, &c.IsEdited, &c.EditedAt, &c.IsDeleted,
		&c.DeletedAt, &c.DeletedBy, &metadata, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, chat.NewNotFound("content")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*chat.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`
	return scanContent(r.db.QueryRowContext(ctx, query, id).Scan)
}

func (r *PostgresRepository) List(ctx context.Context, conversationID string, before *time.Time, limit int, includeDeleted bool) ([]*chat.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents
		WHERE conversation_id = $1
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		  AND ($3 OR is_deleted = FALSE)
		ORDER BY created_at DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, conversationID, before, includeDeleted, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*chat.Content
	for rows.Next() {
		c, err := scanContent(rows.Scan)
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

func (r *PostgresRepository) UpdateBody(ctx context.Context, id, body string, editedAt time.Time) error {
	query := `UPDATE contents
		SET body = $2, is_edited = TRUE, edited_at = $3, updated_at = $3
		WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, body, editedAt)
}

func (r *PostgresRepository) MarkDeleted(ctx context.Context, id string, at time.Time, deletedBy *string) error {
	query := `UPDATE contents
		SET is_deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, at, deletedBy)
}

func (r *PostgresRepository) AppendEdit(ctx context.Context, e *chat.ContentEdit) error {
	query := `INSERT INTO content_edits (id, content_id, prior_body, edited_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, e.ID, e.ContentID, e.PriorBody, e.EditedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListEdits(ctx context.Context, contentID string) ([]*chat.ContentEdit, error) {
	query := `SELECT id, content_id, prior_body, edited_at FROM content_edits
		WHERE content_id = $1
		ORDER BY edited_at ASC`

	rows, err := r.db.QueryContext(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*chat.ContentEdit
	for rows.Next() {
		e := &chat.ContentEdit{}
		if err := rows.Scan(&e.ID, &e.ContentID, &e.PriorBody, &e.EditedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CountNonDeleted(ctx context.Context, conversationID string) (int, error) {
	query := `SELECT COUNT(*) FROM contents
		WHERE conversation_id = $1 AND is_deleted = FALSE`
	var n int
	if err := r.db.QueryRowContext(ctx, query, conversationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountAfter(ctx context.Context, conversationID string, after time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM contents
		WHERE conversation_id = $1 AND created_at > $2 AND is_deleted = FALSE`
	var n int
	if err := r.db.QueryRowContext(ctx, query, conversationID, after).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.NewNotFound("content")
	}
	return nil
}
