package attachments

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

const attachmentColumns = `id, filename, original_name, mime_type, size, uploaded_by,
	is_encrypted, encryption_key_hash, storage_path, thumbnail_path, status,
	metadata, download_count, expires_at, is_deleted, deleted_at, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, a *chat.Attachment) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `INSERT INTO attachments
		(id, filename, original_name, mime_type, size, uploaded_by, is_encrypted,
		 encryption_key_hash, storage_path, thumbnail_path, status, metadata,
		 expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.Filename, a.OriginalName, a.MimeType, a.Size, a.UploadedBy,
		a.IsEncrypted, a.EncryptionKeyHash, a.StoragePath, a.ThumbnailPath,
		a.Status, metadata, a.ExpiresAt, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*chat.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1`

	a := &chat.Attachment{}
	var metadata []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Filename, &a.OriginalName, &a.MimeType, &a.Size, &a.UploadedBy,
		&a.IsEncrypted, &a.EncryptionKeyHash, &a.StoragePath, &a.ThumbnailPath,
		&a.Status, &metadata, &a.DownloadCount, &a.ExpiresAt, &a.IsDeleted,
		&a.DeletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, chat.NewNotFound("attachment")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return a, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status chat.AttachmentStatus) error {
	query := `UPDATE attachments SET status = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, status)
}

func (r *PostgresRepository) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE attachments
		SET is_deleted = TRUE, deleted_at = $2, status = 'deleted', updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, at)
}

func (r *PostgresRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	query := `UPDATE attachments
		SET download_count = download_count + 1, updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) SoftDeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE attachments
		SET is_deleted = TRUE, deleted_at = $1, status = 'deleted', updated_at = $1
		WHERE expires_at IS NOT NULL AND expires_at < $1 AND is_deleted = FALSE`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
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
		return chat.NewNotFound("attachment")
	}
	return nil
}
