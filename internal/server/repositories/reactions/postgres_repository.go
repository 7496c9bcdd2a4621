package reactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/secrypt/secrypt/internal/chat"
	"github.com/secrypt/secrypt/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, reaction *chat.Reaction) error {
	query := `INSERT INTO reactions (id, content_id, identity_id, emoji, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		reaction.ID, reaction.ContentID, reaction.IdentityID,
		reaction.Emoji, reaction.Category, reaction.CreatedAt)
	if err != nil {
		// the toggle treats a lost insert race as the remove case
		if dbx.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, contentID, identityID, emoji string) (*chat.Reaction, error) {
	query := `SELECT id, content_id, identity_id, emoji, category, created_at
		FROM reactions
		WHERE content_id = $1 AND identity_id = $2 AND emoji = $3`

	re := &chat.Reaction{}
	err := r.db.QueryRowContext(ctx, query, contentID, identityID, emoji).
		Scan(&re.ID, &re.ContentID, &re.IdentityID, &re.Emoji, &re.Category, &re.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, chat.NewNotFound("reaction")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return re, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM reactions WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.NewNotFound("reaction")
	}
	return nil
}

func (r *PostgresRepository) ListByContent(ctx context.Context, contentID string) ([]*chat.Reaction, error) {
	query := `SELECT id, content_id, identity_id, emoji, category, created_at
		FROM reactions
		WHERE content_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*chat.Reaction
	for rows.Next() {
		re := &chat.Reaction{}
		if err := rows.Scan(&re.ID, &re.ContentID, &re.IdentityID, &re.Emoji, &re.Category, &re.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, re)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Summary(ctx context.Context, contentID string) ([]chat.ReactionCount, error) {
	query := `SELECT emoji, category, COUNT(*) FROM reactions
		WHERE content_id = $1
		GROUP BY emoji, category
		ORDER BY COUNT(*) DESC`

	rows, err := r.db.QueryContext(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []chat.ReactionCount
	for rows.Next() {
		var rc chat.ReactionCount
		if err := rows.Scan(&rc.Emoji, &rc.Category, &rc.Count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) DeleteOrphaned(ctx context.Context) (int64, error) {
	query := `DELETE FROM reactions r
		USING contents c
		WHERE r.content_id = c.id AND c.is_deleted = TRUE`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
