// Package reactions persists chat.Reaction rows. The
// (content, identity, emoji) unique constraint is the concurrency backstop
// for the toggle operation.
package reactions

import (
	"context"

	"github.com/secrypt/secrypt/internal/chat"
)

type Repository interface {
	Create(ctx context.Context, reaction *chat.Reaction) error
	Find(ctx context.Context, contentID, identityID, emoji string) (*chat.Reaction, error)
	Delete(ctx context.Context, id string) error
	ListByContent(ctx context.Context, contentID string) ([]*chat.Reaction, error)
	Summary(ctx context.Context, contentID string) ([]chat.ReactionCount, error)
	// DeleteOrphaned removes reactions whose parent content has been
	// soft-deleted and returns how many were purged.
	DeleteOrphaned(ctx context.Context) (int64, error)
}
