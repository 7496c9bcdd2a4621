// Package contents persists chat.Content rows and their append-only edit
// history. Rows are never hard-deleted; redaction of deleted messages is a
// read-path concern of the service layer.
package contents

import (
	"context"
	"time"

	"github.com/secrypt/secrypt/internal/chat"
)

type Repository interface {
	Create(ctx context.Context, content *chat.Content) error
	GetByID(ctx context.Context, id string) (*chat.Content, error)
	// List returns conversation history, newest first. A non-nil before
	// limits to rows created strictly earlier.
	List(ctx context.Context, conversationID string, before *time.Time, limit int, includeDeleted bool) ([]*chat.Content, error)
	UpdateBody(ctx context.Context, id, body string, editedAt time.Time) error
	MarkDeleted(ctx context.Context, id string, at time.Time, deletedBy *string) error
	AppendEdit(ctx context.Context, edit *chat.ContentEdit) error
	ListEdits(ctx context.Context, contentID string) ([]*chat.ContentEdit, error)
	CountNonDeleted(ctx context.Context, conversationID string) (int, error)
	// CountAfter counts non-deleted rows created strictly after the given
	// instant.
	CountAfter(ctx context.Context, conversationID string, after time.Time) (int, error)
}
