package chat

import "time"

// ContentType of a message.
type ContentType string

const (
	ContentText   ContentType = "text"
	ContentFile   ContentType = "file"
	ContentImage  ContentType = "image"
	ContentSystem ContentType = "system"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentText, ContentFile, ContentImage, ContentSystem:
		return true
	}
	return false
}

const (
	// MaxBodyLength bounds the text body of a message.
	MaxBodyLength = 10000

	// DeletedBodyPlaceholder replaces the body of a soft-deleted message on
	// every read path. The stored body is retained for audit.
	DeletedBodyPlaceholder = "[deleted message]"
)

// ContentMetadata is the closed record replacing the original's metadata
// bag. Soft-deletion strips it from read paths.
type ContentMetadata struct {
	Mentions []string `json:"mentions,omitempty"`
	Links    []string `json:"links,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
}

func (m ContentMetadata) IsZero() bool {
	return len(m.Mentions) == 0 && len(m.Links) == 0 && len(m.Hashtags) == 0
}

// Content is a message in a conversation. A nil SenderID means the message
// is system-generated; system messages are never encrypted. ReplyTo and
// ForwardedFrom are plain id references resolved on demand, never an
// in-memory graph.
type Content struct {
	ID                string
	ConversationID    string
	SenderID          *string
	Type              ContentType
	Body              string
	AttachmentID      *string
	ReplyTo           *string
	ForwardedFrom     *string
	IsEncrypted       bool
	EncryptionKeyHash string
	IsEdited          bool
	EditedAt          *time.Time
	IsDeleted         bool
	DeletedAt         *time.Time
	DeletedBy         *string
	Metadata          ContentMetadata
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Redacted returns the read-path view of the content. Deleted messages get
// the fixed placeholder body, stripped metadata, and no key hash; the
// underlying row is untouched. Non-deleted content only loses the key hash.
func (c *Content) Redacted() *Content {
	out := *c
	out.EncryptionKeyHash = ""
	if c.IsDeleted {
		out.Body = DeletedBodyPlaceholder
		out.Metadata = ContentMetadata{}
		out.AttachmentID = nil
	}
	return &out
}

// ContentEdit is one append-only edit-history row preserving the body a
// message had before an edit.
type ContentEdit struct {
	ID        string
	ContentID string
	PriorBody string
	EditedAt  time.Time
}
