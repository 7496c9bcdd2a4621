package services

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/secrypt/secrypt/internal/chat"
	"github.com/secrypt/secrypt/internal/dbx"
	"github.com/secrypt/secrypt/internal/server/config"
	"github.com/secrypt/secrypt/internal/server/repositories/repomanager"
)

const defaultHistoryLimit = 50

// ContentService implements the message lifecycle: sending, editing with
// history, soft deletion, and redacted reads.
type ContentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	memberships *MembershipService
}

func NewContentService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *ContentService {
	return &ContentService{
		db:          db,
		repomanager: m,
		memberships: NewMembershipService(db, m, cfg),
	}
}

// SendParams are the caller-supplied fields of a new message.
type SendParams struct {
	Type          chat.ContentType
	Body          string
	AttachmentID  *string
	ReplyTo       *string
	ForwardedFrom *string
	Metadata      chat.ContentMetadata
}

// Send posts a message. The sender must be an active member; file and
// image messages must reference a completed attachment allowed by the
// conversation settings. The message row and the conversation's
// last-message/last-activity pointers move in one transaction.
func (s *ContentService) Send(ctx context.Context, conversationID, senderID string, params SendParams) (*chat.Content, error) {
	if !params.Type.Valid() || params.Type == chat.ContentSystem {
		return nil, chat.NewValidation("type", "unknown content type")
	}
	if params.Type == chat.ContentText && params.Body == "" {
		return nil, chat.NewValidation("body", "must not be empty")
	}
	if utf8.RuneCountInString(params.Body) > chat.MaxBodyLength {
		return nil, chat.NewValidation("body", "must be at most 10000 characters")
	}

	conversation, err := s.repomanager.Conversations(s.db).GetByID(ctx, conversationID)
	if err != nil {
		return nil, storageErr(err)
	}
	if conversation.IsArchived {
		return nil, chat.NewConflict("conversation is archived")
	}

	if _, err := s.memberships.activeMember(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	if params.Type == chat.ContentFile || params.Type == chat.ContentImage {
		if params.AttachmentID == nil {
			return nil, chat.NewValidation("attachment_id", "required for file and image messages")
		}
		if !conversation.Settings.AllowFileSharing {
			return nil, chat.NewPermission("file sharing is disabled in this conversation")
		}
		attachment, err := s.repomanager.Attachments(s.db).GetByID(ctx, *params.AttachmentID)
		if err != nil {
			return nil, storageErr(err)
		}
		if attachment.Status != chat.AttachmentCompleted {
			return nil, chat.NewConflict("attachment upload is not complete")
		}
	}

	if params.ReplyTo != nil {
		target, err := s.repomanager.Contents(s.db).GetByID(ctx, *params.ReplyTo)
		if err != nil {
			return nil, storageErr(err)
		}
		if target.ConversationID != conversationID {
			return nil, chat.NewValidation("reply_to", "message belongs to another conversation")
		}
	}

	now := time.Now()
	content := &chat.Content{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       &senderID,
		Type:           params.Type,
		Body:           params.Body,
		AttachmentID:   params.AttachmentID,
		ReplyTo:        params.ReplyTo,
		ForwardedFrom:  params.ForwardedFrom,
		Metadata:       params.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if conversation.IsEncrypted {
		content.IsEncrypted = true
		content.EncryptionKeyHash = conversation.EncryptionKeyHash
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Contents(tx).Create(ctx, content); err != nil {
			return err
		}
		return s.repomanager.Conversations(tx).AdvanceActivity(ctx, conversationID, &content.ID, now)
	})
	if err != nil {
		return nil, storageErr(err)
	}

	return content, nil
}

// Edit replaces the body of a text message. Only the sender may edit, a
// deleted message cannot be edited, and the prior body is preserved in the
// append-only history within the same transaction.
func (s *ContentService) Edit(ctx context.Context, contentID, editorID, newBody string) (*chat.Content, error) {
	if newBody == "" {
		return nil, chat.NewValidation("body", "must not be empty")
	}
	if utf8.RuneCountInString(newBody) > chat.MaxBodyLength {
		return nil, chat.NewValidation("body", "must be at most 10000 characters")
	}

	content, err := s.repomanager.Contents(s.db).GetByID(ctx, contentID)
	if err != nil {
		return nil, storageErr(err)
	}
	if content.SenderID == nil || *content.SenderID != editorID {
		return nil, chat.NewPermission("only the sender can edit a message")
	}
	if content.Type != chat.ContentText {
		return nil, chat.NewValidation("type", "only text messages can be edited")
	}
	if content.IsDeleted {
		return nil, chat.NewConflict("message has been deleted")
	}

	now := time.Now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contents(tx)
		edit := &chat.ContentEdit{
			ID:        uuid.New().String(),
			ContentID: contentID,
			PriorBody: content.Body,
			EditedAt:  now,
		}
		if err := repo.AppendEdit(ctx, edit); err != nil {
			return err
		}
		if err := repo.UpdateBody(ctx, contentID, newBody, now); err != nil {
			// zero rows here means a delete landed after the read above
			if errors.Is(err, chat.ErrNotFound) {
				return chat.NewConflict("message has been deleted")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	content.Body = newBody
	content.IsEdited = true
	content.EditedAt = &now
	return content, nil
}

// SoftDelete hides a message behind the deletion placeholder. The sender
// may always delete their own message; anyone else needs the delete
// permission. Deleting twice conflicts.
func (s *ContentService) SoftDelete(ctx context.Context, contentID, actorID string) error {
	content, err := s.repomanager.Contents(s.db).GetByID(ctx, contentID)
	if err != nil {
		return storageErr(err)
	}
	if content.IsDeleted {
		return chat.NewConflict("message is already deleted")
	}

	if content.SenderID == nil || *content.SenderID != actorID {
		membership, err := s.memberships.activeMember(ctx, content.ConversationID, actorID)
		if err != nil {
			return err
		}
		if !membership.HasPermission(chat.PermDeleteMessages) {
			return chat.NewPermission("deleting this message requires the delete permission")
		}
	}

	if err := s.repomanager.Contents(s.db).MarkDeleted(ctx, contentID, time.Now(), &actorID); err != nil {
		return storageErr(err)
	}
	return nil
}

// Get returns the redacted view of one message to an active member.
// Deleted messages come back as placeholders, never as NotFound.
func (s *ContentService) Get(ctx context.Context, contentID, actorID string) (*chat.Content, error) {
	content, err := s.repomanager.Contents(s.db).GetByID(ctx, contentID)
	if err != nil {
		return nil, storageErr(err)
	}
	if _, err := s.memberships.activeMember(ctx, content.ConversationID, actorID); err != nil {
		return nil, err
	}
	return content.Redacted(), nil
}

// GetStored returns the raw row without redaction, deleted or not. Only
// members holding the delete-messages grant may read it; it backs audit
// review of soft-deleted messages.
func (s *ContentService) GetStored(ctx context.Context, contentID, actorID string) (*chat.Content, error) {
	content, err := s.repomanager.Contents(s.db).GetByID(ctx, contentID)
	if err != nil {
		return nil, storageErr(err)
	}
	membership, err := s.memberships.activeMember(ctx, content.ConversationID, actorID)
	if err != nil {
		return nil, err
	}
	if !membership.HasPermission(chat.PermDeleteMessages) {
		return nil, chat.NewPermission("no grant to read stored message bodies")
	}
	return content, nil
}

// History returns conversation messages newest first, redacted. Deleted
// rows are included as placeholders so gaps stay visible.
func (s *ContentService) History(ctx context.Context, conversationID, actorID string, before *time.Time, limit int) ([]*chat.Content, error) {
	if _, err := s.memberships.activeMember(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.repomanager.Contents(s.db).List(ctx, conversationID, before, limit, true)
	if err != nil {
		return nil, storageErr(err)
	}

	out := make([]*chat.Content, len(rows))
	for i, c := range rows {
		out[i] = c.Redacted()
	}
	return out, nil
}

// Edits lists a message's edit history. Visible to the sender and to
// members holding the delete permission.
func (s *ContentService) Edits(ctx context.Context, contentID, actorID string) ([]*chat.ContentEdit, error) {
	content, err := s.repomanager.Contents(s.db).GetByID(ctx, contentID)
	if err != nil {
		return nil, storageErr(err)
	}
	if content.SenderID == nil || *content.SenderID != actorID {
		membership, err := s.memberships.activeMember(ctx, content.ConversationID, actorID)
		if err != nil {
			return nil, err
		}
		if !membership.HasPermission(chat.PermDeleteMessages) {
			return nil, chat.NewPermission("viewing edit history requires the delete permission")
		}
	}

	edits, err := s.repomanager.Contents(s.db).ListEdits(ctx, contentID)
	if err != nil {
		return nil, storageErr(err)
	}
	return edits, nil
}
