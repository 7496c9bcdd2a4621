package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/secrypt/secrypt/internal/chat"
	"github.com/secrypt/secrypt/internal/dbx"
	"github.com/secrypt/secrypt/internal/server/config"
	"github.com/secrypt/secrypt/internal/server/repositories/repomanager"
	"github.com/secrypt/secrypt/internal/shared"
)

// inviteCodeAttempts bounds retries when a freshly generated code collides
// with an existing one.
const inviteCodeAttempts = 5

// ConversationService manages conversation lifecycle: group and direct
// creation, settings, archival, and invite codes.
type ConversationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewConversationService(db *sql.DB, m repomanager.RepositoryManager, _ *config.Config) *ConversationService {
	return &ConversationService{db: db, repomanager: m}
}

// CreateGroupParams are the caller-supplied fields of a new group
// conversation. Zero MaxParticipants means the default cap.
type CreateGroupParams struct {
	Name            string
	Description     string
	Avatar          string
	MaxParticipants int
	IsEncrypted     bool
	IsPublic        bool
}

// CreateGroup creates a group conversation with the creator as its owner.
// The conversation row, the owner membership, and the announcement message
// are written in one transaction.
func (s *ConversationService) CreateGroup(ctx context.Context, creatorID string, params CreateGroupParams) (*chat.Conversation, error) {
	if params.Name == "" || len(params.Name) > chat.MaxConversationNameLength {
		return nil, chat.NewValidation("name", "must be between 1 and 255 characters")
	}
	if len(params.Description) > chat.MaxDescriptionLength {
		return nil, chat.NewValidation("description", "must be at most 1000 characters")
	}
	maxParticipants := params.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = chat.DefaultGroupMaxParticipant
	}
	if maxParticipants < chat.MinParticipants || maxParticipants > chat.MaxParticipantsLimit {
		return nil, chat.NewValidation("max_participants", "must be between 2 and 1000")
	}

	creator, err := s.repomanager.Identities(s.db).GetByID(ctx, creatorID)
	if err != nil {
		return nil, storageErr(err)
	}

	now := time.Now()
	conversation := &chat.Conversation{
		ID:              uuid.New().String(),
		Name:            params.Name,
		Type:            chat.ConversationGroup,
		Description:     params.Description,
		Avatar:          params.Avatar,
		CreatedBy:       creatorID,
		IsEncrypted:     params.IsEncrypted,
		LastActivity:    now,
		MaxParticipants: maxParticipants,
		IsPublic:        params.IsPublic,
		Settings:        chat.DefaultConversationSettings(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if params.IsEncrypted {
		keyHash, err := shared.MakeRandHexString(32)
		if err != nil {
			return nil, chat.NewStorage(err)
		}
		conversation.EncryptionKeyHash = keyHash
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		code, err := s.freshInviteCode(ctx, tx)
		if err != nil {
			return err
		}
		conversation.InviteCode = code

		if err := s.repomanager.Conversations(tx).Create(ctx, conversation); err != nil {
			return err
		}

		owner := newMembership(conversation.ID, creatorID, chat.RoleOwner, nil, now)
		if err := s.repomanager.Memberships(tx).Create(ctx, owner); err != nil {
			return err
		}

		announcement := systemContent(conversation.ID, fmt.Sprintf("%s created the group", creator.Name), now)
		if err := s.repomanager.Contents(tx).Create(ctx, announcement); err != nil {
			return err
		}
		return s.repomanager.Conversations(tx).AdvanceActivity(ctx, conversation.ID, &announcement.ID, now)
	})
	if err != nil {
		return nil, storageErr(err)
	}

	return conversation, nil
}

// CreateDirect returns the direct conversation between two identities,
// creating it when none exists with both parties still active. A direct
// conversation in which either party has left does not count; a new one is
// created instead.
func (s *ConversationService) CreateDirect(ctx context.Context, identityA, identityB string) (*chat.Conversation, error) {
	if identityA == identityB {
		return nil, chat.NewValidation("identity", "cannot start a conversation with yourself")
	}

	existing, err := s.repomanager.Conversations(s.db).FindDirect(ctx, identityA, identityB)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, chat.ErrNotFound) {
		return nil, storageErr(err)
	}

	if _, err := s.repomanager.Identities(s.db).GetByID(ctx, identityB); err != nil {
		return nil, storageErr(err)
	}

	now := time.Now()
	conversation := &chat.Conversation{
		ID:              uuid.New().String(),
		Type:            chat.ConversationDirect,
		CreatedBy:       identityA,
		LastActivity:    now,
		MaxParticipants: chat.MinParticipants,
		Settings:        chat.DefaultConversationSettings(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Conversations(tx).Create(ctx, conversation); err != nil {
			return err
		}
		repo := s.repomanager.Memberships(tx)
		for _, id := range []string{identityA, identityB} {
			if err := repo.Create(ctx, newMembership(conversation.ID, id, chat.RoleMember, nil, now)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	return conversation, nil
}

// Get returns a conversation visible to the caller. Non-members of private
// conversations get NotFound, not Permission, so membership does not leak.
func (s *ConversationService) Get(ctx context.Context, actorID, conversationID string) (*chat.Conversation, error) {
	conversation, err := s.repomanager.Conversations(s.db).GetByID(ctx, conversationID)
	if err != nil {
		return nil, storageErr(err)
	}
	if _, err := s.repomanager.Memberships(s.db).GetActive(ctx, conversationID, actorID); err != nil {
		if errors.Is(err, chat.ErrNotFound) && !conversation.IsPublic {
			return nil, chat.NewNotFound("conversation")
		}
		if !errors.Is(err, chat.ErrNotFound) {
			return nil, storageErr(err)
		}
	}
	return conversation, nil
}

// List returns the caller's conversations ordered by recent activity.
func (s *ConversationService) List(ctx context.Context, identityID string, archived bool, limit int) ([]*chat.Conversation, error) {
	out, err := s.repomanager.Conversations(s.db).ListByIdentity(ctx, identityID, archived, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// UpdateSettings merges a partial settings patch into the conversation.
// When the current settings restrict info changes to admins, the caller
// needs the edit permission.
func (s *ConversationService) UpdateSettings(ctx context.Context, actorID, conversationID string, patch chat.SettingsPatch) (*chat.Conversation, error) {
	conversation, membership, err := s.memberOf(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.Settings.OnlyAdminCanChangeInfo && !membership.HasPermission(chat.PermEditChatInfo) {
		return nil, chat.NewPermission("changing settings requires the edit permission")
	}

	merged := conversation.Settings.Merge(patch)
	if err := s.repomanager.Conversations(s.db).UpdateSettings(ctx, conversationID, merged); err != nil {
		return nil, storageErr(err)
	}
	conversation.Settings = merged
	return conversation, nil
}

// Archive hides the conversation from default listings. Group archival
// requires the edit permission; either party may archive a direct
// conversation.
func (s *ConversationService) Archive(ctx context.Context, actorID, conversationID string) error {
	return s.setArchived(ctx, actorID, conversationID, true)
}

// Unarchive restores an archived conversation to default listings.
func (s *ConversationService) Unarchive(ctx context.Context, actorID, conversationID string) error {
	return s.setArchived(ctx, actorID, conversationID, false)
}

func (s *ConversationService) setArchived(ctx context.Context, actorID, conversationID string, archived bool) error {
	conversation, membership, err := s.memberOf(ctx, actorID, conversationID)
	if err != nil {
		return err
	}
	if conversation.IsGroup() && !membership.HasPermission(chat.PermEditChatInfo) {
		return chat.NewPermission("archiving a group requires the edit permission")
	}
	if err := s.repomanager.Conversations(s.db).SetArchived(ctx, conversationID, archived); err != nil {
		return storageErr(err)
	}
	return nil
}

// RotateInviteCode replaces the invite code of a group conversation,
// invalidating the previous one. Direct conversations have no invite code.
func (s *ConversationService) RotateInviteCode(ctx context.Context, actorID, conversationID string) (string, error) {
	conversation, membership, err := s.memberOf(ctx, actorID, conversationID)
	if err != nil {
		return "", err
	}
	if !conversation.IsGroup() {
		return "", chat.NewConflict("direct conversations have no invite code")
	}
	if !membership.HasPermission(chat.PermInviteMembers) {
		return "", chat.NewPermission("rotating the invite code requires the invite permission")
	}

	var code string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		code, err = s.freshInviteCode(ctx, tx)
		if err != nil {
			return err
		}
		return s.repomanager.Conversations(tx).SetInviteCode(ctx, conversationID, code)
	})
	if err != nil {
		return "", storageErr(err)
	}
	return code, nil
}

// GetByInviteCode resolves an invite code to its group conversation.
// Archived groups do not resolve.
func (s *ConversationService) GetByInviteCode(ctx context.Context, code string) (*chat.Conversation, error) {
	if len(code) != shared.InviteCodeLength {
		return nil, chat.NewValidation("invite_code", "malformed invite code")
	}
	conversation, err := s.repomanager.Conversations(s.db).GetByInviteCode(ctx, code)
	if err != nil {
		return nil, storageErr(err)
	}
	return conversation, nil
}

// memberOf loads the conversation together with the caller's active
// membership.
func (s *ConversationService) memberOf(ctx context.Context, actorID, conversationID string) (*chat.Conversation, *chat.Membership, error) {
	conversation, err := s.repomanager.Conversations(s.db).GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	membership, err := s.repomanager.Memberships(s.db).GetActive(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, nil, chat.NewPermission("not a member of this conversation")
		}
		return nil, nil, storageErr(err)
	}
	return conversation, membership, nil
}

// freshInviteCode generates a code that does not collide with an existing
// conversation, retrying a bounded number of times.
func (s *ConversationService) freshInviteCode(ctx context.Context, db dbx.DBTX) (string, error) {
	repo := s.repomanager.Conversations(db)
	for i := 0; i < inviteCodeAttempts; i++ {
		code, err := shared.MakeInviteCode()
		if err != nil {
			return "", err
		}
		_, err = repo.GetByInviteCode(ctx, code)
		if errors.Is(err, chat.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", chat.NewStorage(errors.New("could not generate a unique invite code"))
}

// newMembership builds a membership row with the role's default grants and
// default notification settings.
func newMembership(conversationID, identityID string, role chat.Role, invitedBy *string, now time.Time) *chat.Membership {
	return &chat.Membership{
		ID:                   uuid.New().String(),
		ConversationID:       conversationID,
		IdentityID:           identityID,
		Role:                 role,
		JoinedAt:             now,
		InvitedBy:            invitedBy,
		NotificationSettings: chat.DefaultNotificationSettings(),
		Permissions:          chat.DefaultPermissions(role),
		LastActiveAt:         now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// systemContent builds an unencrypted system message with no sender.
func systemContent(conversationID, body string, now time.Time) *chat.Content {
	return &chat.Content{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Type:           chat.ContentSystem,
		Body:           body,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
