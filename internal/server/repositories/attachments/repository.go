// Package attachments persists chat.Attachment metadata.
package attachments

import (
	"context"
	"time"

	"github.com/secrypt/secrypt/internal/chat"
)

type Repository interface {
	Create(ctx context.Context, attachment *chat.Attachment) error
	GetByID(ctx context.Context, id string) (*chat.Attachment, error)
	SetStatus(ctx context.Context, id string, status chat.AttachmentStatus) error
	MarkDeleted(ctx context.Context, id string, at time.Time) error
	IncrementDownloadCount(ctx context.Context, id string) error
	// SoftDeleteExpired marks every live attachment whose expiry has passed
	// and returns how many were affected.
	SoftDeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
