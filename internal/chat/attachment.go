package chat

import (
	"path/filepath"
	"strings"
	"time"
)

// AttachmentStatus is the upload lifecycle state of a file.
type AttachmentStatus string

const (
	AttachmentUploading AttachmentStatus = "uploading"
	AttachmentCompleted AttachmentStatus = "completed"
	AttachmentFailed    AttachmentStatus = "failed"
	AttachmentDeleted   AttachmentStatus = "deleted"
)

const (
	// MaxAttachmentSize caps uploads at 1 GiB.
	MaxAttachmentSize = 1 << 30

	// DeletedAttachmentName replaces the original name of a soft-deleted
	// attachment on read paths.
	DeletedAttachmentName = "[deleted file]"
)

// allowedExtensions is the upload allow-list; creation fails for anything
// else.
var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".txt":  {},
	".mp4":  {},
	".mp3":  {},
}

// AllowedExtension reports whether the file name carries an accepted
// extension (case-insensitive).
func AllowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := allowedExtensions[ext]
	return ok
}

// AttachmentMetadata is the closed record for media dimensions.
type AttachmentMetadata struct {
	Width    int `json:"width,omitempty"`
	Height   int `json:"height,omitempty"`
	Duration int `json:"duration,omitempty"` // seconds, for audio/video
}

// Attachment is uploaded-file metadata. The bytes themselves live in object
// storage behind StoragePath; this core only tracks state and access.
type Attachment struct {
	ID                string
	Filename          string
	OriginalName      string
	MimeType          string
	Size              int64
	UploadedBy        string
	IsEncrypted       bool
	EncryptionKeyHash string
	StoragePath       string
	ThumbnailPath     string
	Status            AttachmentStatus
	Metadata          AttachmentMetadata
	DownloadCount     int
	ExpiresAt         *time.Time
	IsDeleted         bool
	DeletedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsExpired reports whether the attachment's expiry has passed.
func (a *Attachment) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

func (a *Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

func (a *Attachment) IsVideo() bool {
	return strings.HasPrefix(a.MimeType, "video/")
}

// Redacted returns the read-path view. A soft-deleted attachment exposes
// only its id and deletion marker; live attachments lose the key hash and
// internal storage path.
func (a *Attachment) Redacted() *Attachment {
	if a.IsDeleted {
		return &Attachment{
			ID:           a.ID,
			OriginalName: DeletedAttachmentName,
			Status:       AttachmentDeleted,
			IsDeleted:    true,
			DeletedAt:    a.DeletedAt,
		}
	}
	out := *a
	out.EncryptionKeyHash = ""
	out.StoragePath = ""
	return &out
}
