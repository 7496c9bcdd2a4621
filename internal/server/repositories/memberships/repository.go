// Package memberships persists chat.Membership records. The uniqueness of
// active (conversation, identity) pairs and of the active owner are DB
// constraints; Create surfaces their violations unchanged for the service
// layer to classify.
package memberships

import (
	"context"
	"time"

	"github.com/secrypt/secrypt/internal/chat"
)

type Repository interface {
	Create(ctx context.Context, membership *chat.Membership) error
	GetByID(ctx context.Context, id string) (*chat.Membership, error)
	// GetActive returns the active membership of identityID in
	// conversationID, or NotFound.
	GetActive(ctx context.Context, conversationID, identityID string) (*chat.Membership, error)
	CountActive(ctx context.Context, conversationID string) (int, error)
	List(ctx context.Context, conversationID string, includeLeft bool, role chat.Role) ([]*chat.Membership, error)
	SetLeft(ctx context.Context, id string, at time.Time) error
	UpdateRole(ctx context.Context, id string, role chat.Role, permissions chat.PermissionSet) error
	UpdateLastRead(ctx context.Context, id, contentID string, at time.Time) error
	UpdateMute(ctx context.Context, id string, muted bool, until *time.Time) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	UpdateNotificationSettings(ctx context.Context, id string, settings chat.NotificationSettings) error
}
