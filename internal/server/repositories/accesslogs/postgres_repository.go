package accesslogs

import (
	"context"
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

func (r *PostgresRepository) Create(ctx context.Context, l *chat.AccessLog) error {
	query := `INSERT INTO access_logs
		(id, attachment_id, identity_id, action, ip_address, user_agent,
		 status, error_message, bytes_transferred, duration_ms, security_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.AttachmentID, l.IdentityID, l.Action, l.IPAddress, l.UserAgent,
		l.Status, l.ErrorMessage, l.BytesTransferred, l.DurationMS,
		l.SecurityLevel, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByAttachment(ctx context.Context, attachmentID string, limit int) ([]*chat.AccessLog, error) {
	query := `SELECT id, attachment_id, identity_id, action, ip_address, user_agent,
		status, error_message, bytes_transferred, duration_ms, security_level, created_at
		FROM access_logs
		WHERE attachment_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, attachmentID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*chat.AccessLog
	for rows.Next() {
		l := &chat.AccessLog{}
		err := rows.Scan(&l.ID, &l.AttachmentID, &l.IdentityID, &l.Action,
			&l.IPAddress, &l.UserAgent, &l.Status, &l.ErrorMessage,
			&l.BytesTransferred, &l.DurationMS, &l.SecurityLevel, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SuspiciousActivity(ctx context.Context, since time.Time, minAttempts int) ([]chat.SuspiciousActivity, error) {
	query := `SELECT ip_address, identity_id, COUNT(*), MAX(created_at)
		FROM access_logs
		WHERE created_at >= $1 AND status IN ('failed', 'unauthorized', 'forbidden')
		GROUP BY ip_address, identity_id
		HAVING COUNT(*) >= $2
		ORDER BY COUNT(*) DESC`

	rows, err := r.db.QueryContext(ctx, query, since, minAttempts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []chat.SuspiciousActivity
	for rows.Next() {
		var s chat.SuspiciousActivity
		if err := rows.Scan(&s.IPAddress, &s.IdentityID, &s.Attempts, &s.LastAttempt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM access_logs WHERE created_at < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
