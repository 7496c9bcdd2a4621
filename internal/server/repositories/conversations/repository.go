// Package conversations persists chat.Conversation records and maintains
// the derived last-message/last-activity pointers.
package conversations

import (
	"context"
	"time"

	"github.com/secrypt/secrypt/internal/chat"
)

type Repository interface {
	Create(ctx context.Context, conversation *chat.Conversation) error
	GetByID(ctx context.Context, id string) (*chat.Conversation, error)
	GetByInviteCode(ctx context.Context, code string) (*chat.Conversation, error)
	// FindDirect returns the direct conversation in which both identities
	// hold active memberships, or NotFound.
	FindDirect(ctx context.Context, identityA, identityB string) (*chat.Conversation, error)
	ListByIdentity(ctx context.Context, identityID string, archived bool, limit int) ([]*chat.Conversation, error)
	UpdateSettings(ctx context.Context, id string, settings chat.ConversationSettings) error
	SetArchived(ctx context.Context, id string, archived bool) error
	SetInviteCode(ctx context.Context, id, code string) error
	// AdvanceActivity moves last_activity (and, when lastMessageID is
	// non-nil, last_message_id) forward as part of the caller's
	// transaction.
	AdvanceActivity(ctx context.Context, id string, lastMessageID *string, at time.Time) error
}
