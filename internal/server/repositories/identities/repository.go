// Package identities persists chat.Identity records.
package identities

import (
	"context"
	"time"

	"github.com/secrypt/secrypt/internal/chat"
)

type Repository interface {
	Create(ctx context.Context, identity *chat.Identity) error
	GetByID(ctx context.Context, id string) (*chat.Identity, error)
	GetByEmail(ctx context.Context, email string) (*chat.Identity, error)
	GetByVerificationToken(ctx context.Context, token string) (*chat.Identity, error)
	GetByPasswordResetToken(ctx context.Context, tokenHash string, now time.Time) (*chat.Identity, error)
	UpdatePresence(ctx context.Context, id string, status chat.PresenceStatus, lastSeen time.Time) error
	SetEmailVerified(ctx context.Context, id string) error
	SetPasswordReset(ctx context.Context, id, tokenHash string, expires *time.Time) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	Deactivate(ctx context.Context, id string, at time.Time) error
}
