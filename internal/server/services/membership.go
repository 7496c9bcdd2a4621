package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/secrypt/secrypt/internal/chat"
	"github.com/secrypt/secrypt/internal/dbx"
	"github.com/secrypt/secrypt/internal/server/config"
	"github.com/secrypt/secrypt/internal/server/repositories/repomanager"
)

// MembershipService manages participation in conversations: joining,
// leaving, roles, mutes, favorites, and read tracking.
type MembershipService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewMembershipService(db *sql.DB, m repomanager.RepositoryManager, _ *config.Config) *MembershipService {
	return &MembershipService{db: db, repomanager: m}
}

// Join adds an identity to a group conversation as a regular member. The
// capacity check, the membership row, the announcement message, and the
// activity advance happen in one transaction; the unique index on active
// (conversation, identity) pairs backstops concurrent joins.
func (s *MembershipService) Join(ctx context.Context, conversationID, identityID string, invitedBy *string) (*chat.Membership, error) {
	conversation, err := s.repomanager.Conversations(s.db).GetByID(ctx, conversationID)
	if err != nil {
		return nil, storageErr(err)
	}
	if !conversation.IsGroup() {
		return nil, chat.NewConflict("direct conversations cannot be joined")
	}
	if conversation.IsArchived {
		return nil, chat.NewConflict("conversation is archived")
	}

	identity, err := s.repomanager.Identities(s.db).GetByID(ctx, identityID)
	if err != nil {
		return nil, storageErr(err)
	}
	if !identity.IsActive {
		return nil, chat.NewConflict("identity is deactivated")
	}

	now := time.Now()
	membership := newMembership(conversationID, identityID, chat.RoleMember, invitedBy, now)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		count, err := s.repomanager.Memberships(tx).CountActive(ctx, conversationID)
		if err != nil {
			return err
		}
		if count >= conversation.MaxParticipants {
			return chat.NewConflict("conversation is full")
		}

		if err := s.repomanager.Memberships(tx).Create(ctx, membership); err != nil {
			return classifyMembershipConflict(err)
		}

		announcement := systemContent(conversationID, fmt.Sprintf("%s joined the conversation", identity.Name), now)
		if err := s.repomanager.Contents(tx).Create(ctx, announcement); err != nil {
			return err
		}
		return s.repomanager.Conversations(tx).AdvanceActivity(ctx, conversationID, &announcement.ID, now)
	})
	if err != nil {
		return nil, storageErr(err)
	}

	return membership, nil
}

// JoinByInviteCode resolves an invite code and joins the group it belongs
// to.
func (s *MembershipService) JoinByInviteCode(ctx context.Context, code, identityID string) (*chat.Membership, error) {
	conversation, err := s.repomanager.Conversations(s.db).GetByInviteCode(ctx, code)
	if err != nil {
		return nil, storageErr(err)
	}
	return s.Join(ctx, conversation.ID, identityID, nil)
}

// Invite adds another identity on behalf of an existing member. The actor
// needs either the invite permission or a conversation that allows member
// invites.
func (s *MembershipService) Invite(ctx context.Context, actorID, conversationID, identityID string) (*chat.Membership, error) {
	conversation, err := s.repomanager.Conversations(s.db).GetByID(ctx, conversationID)
	if err != nil {
		return nil, storageErr(err)
	}

	actor, err := s.activeMember(ctx, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(chat.PermInviteMembers) && !conversation.Settings.AllowMemberInvite {
		return nil, chat.NewPermission("inviting members is not allowed")
	}

	return s.Join(ctx, conversationID, identityID, &actorID)
}

// Leave ends the caller's participation. The soft delete only applies to
// the active row, so leaving twice reports NotFound the second time. An
// owner must transfer ownership before leaving a group that still has
// other active members.
func (s *MembershipService) Leave(ctx context.Context, conversationID, identityID string) error {
	membership, err := s.activeMember(ctx, conversationID, identityID)
	if err != nil {
		return err
	}

	now := time.Now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Memberships(tx)

		if membership.Role == chat.RoleOwner {
			count, err := repo.CountActive(ctx, conversationID)
			if err != nil {
				return err
			}
			if count > 1 {
				return chat.NewConflict("transfer ownership before leaving")
			}
		}

		if err := repo.SetLeft(ctx, membership.ID, now); err != nil {
			return err
		}

		identity, err := s.repomanager.Identities(tx).GetByID(ctx, identityID)
		if err != nil {
			return err
		}
		announcement := systemContent(conversationID, fmt.Sprintf("%s left the conversation", identity.Name), now)
		if err := s.repomanager.Contents(tx).Create(ctx, announcement); err != nil {
			return err
		}
		return s.repomanager.Conversations(tx).AdvanceActivity(ctx, conversationID, &announcement.ID, now)
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}

// Remove kicks another member out. The actor needs the remove permission;
// the owner cannot be removed.
func (s *MembershipService) Remove(ctx context.Context, actorID, conversationID, identityID string) error {
	actor, err := s.activeMember(ctx, conversationID, actorID)
	if err != nil {
		return err
	}
	if !actor.HasPermission(chat.PermRemoveMembers) {
		return chat.NewPermission("removing members requires the remove permission")
	}

	target, err := s.activeMember(ctx, conversationID, identityID)
	if err != nil {
		return err
	}
	if target.Role == chat.RoleOwner {
		return chat.NewConflict("the owner cannot be removed")
	}

	now := time.Now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Memberships(tx).SetLeft(ctx, target.ID, now); err != nil {
			return err
		}
		identity, err := s.repomanager.Identities(tx).GetByID(ctx, identityID)
		if err != nil {
			return err
		}
		announcement := systemContent(conversationID, fmt.Sprintf("%s was removed from the conversation", identity.Name), now)
		if err := s.repomanager.Contents(tx).Create(ctx, announcement); err != nil {
			return err
		}
		return s.repomanager.Conversations(tx).AdvanceActivity(ctx, conversationID, &announcement.ID, now)
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}

// SetRole changes a member's role. Only the owner may change roles; the
// permission record is fully recomputed from the role table, discarding any
// prior overrides. Assigning the owner role transfers ownership: the
// current owner is demoted to admin in the same transaction, which keeps
// the single active owner invariant intact.
func (s *MembershipService) SetRole(ctx context.Context, actorID, conversationID, identityID string, role chat.Role) (*chat.Membership, error) {
	if !role.Valid() {
		return nil, chat.NewValidation("role", "unknown role")
	}

	actor, err := s.activeMember(ctx, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != chat.RoleOwner {
		return nil, chat.NewPermission("only the owner can change roles")
	}
	if actorID == identityID {
		return nil, chat.NewConflict("the owner cannot change their own role")
	}

	target, err := s.activeMember(ctx, conversationID, identityID)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Memberships(tx)
		if role == chat.RoleOwner {
			if err := repo.UpdateRole(ctx, actor.ID, chat.RoleAdmin, chat.DefaultPermissions(chat.RoleAdmin)); err != nil {
				return err
			}
		}
		if err := repo.UpdateRole(ctx, target.ID, role, chat.DefaultPermissions(role)); err != nil {
			return classifyMembershipConflict(err)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	target.Role = role
	target.Permissions = chat.DefaultPermissions(role)
	return target, nil
}

// Members lists a conversation's memberships. Past members are included
// only on request.
func (s *MembershipService) Members(ctx context.Context, actorID, conversationID string, includeLeft bool) ([]*chat.Membership, error) {
	if _, err := s.activeMember(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	out, err := s.repomanager.Memberships(s.db).List(ctx, conversationID, includeLeft, "")
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// Mute silences notifications, optionally until a deadline. A nil until
// mutes indefinitely.
func (s *MembershipService) Mute(ctx context.Context, conversationID, identityID string, until *time.Time) error {
	membership, err := s.activeMember(ctx, conversationID, identityID)
	if err != nil {
		return err
	}
	if until != nil && !until.After(time.Now()) {
		return chat.NewValidation("muted_until", "must be in the future")
	}
	if err := s.repomanager.Memberships(s.db).UpdateMute(ctx, membership.ID, true, until); err != nil {
		return storageErr(err)
	}
	return nil
}

// Unmute restores notifications.
func (s *MembershipService) Unmute(ctx context.Context, conversationID, identityID string) error {
	membership, err := s.activeMember(ctx, conversationID, identityID)
	if err != nil {
		return err
	}
	if err := s.repomanager.Memberships(s.db).UpdateMute(ctx, membership.ID, false, nil); err != nil {
		return storageErr(err)
	}
	return nil
}

// ToggleFavorite flips the caller's favorite flag and returns the new
// state.
func (s *MembershipService) ToggleFavorite(ctx context.Context, conversationID, identityID string) (bool, error) {
	membership, err := s.activeMember(ctx, conversationID, identityID)
	if err != nil {
		return false, err
	}
	next := !membership.IsFavorite
	if err := s.repomanager.Memberships(s.db).SetFavorite(ctx, membership.ID, next); err != nil {
		return false, storageErr(err)
	}
	return next, nil
}

// UpdateNotificationSettings merges a partial patch into the caller's
// notification record.
func (s *MembershipService) UpdateNotificationSettings(ctx context.Context, conversationID, identityID string, patch chat.NotificationPatch) (*chat.Membership, error) {
	membership, err := s.activeMember(ctx, conversationID, identityID)
	if err != nil {
		return nil, err
	}
	merged := membership.NotificationSettings.Merge(patch)
	if err := s.repomanager.Memberships(s.db).UpdateNotificationSettings(ctx, membership.ID, merged); err != nil {
		return nil, storageErr(err)
	}
	membership.NotificationSettings = merged
	return membership, nil
}

// MarkRead advances the caller's read pointer to the given message. The
// message must belong to the conversation; the pointer and the last-active
// stamp move together.
func (s *MembershipService) MarkRead(ctx context.Context, conversationID, identityID, contentID string) error {
	membership, err := s.activeMember(ctx, conversationID, identityID)
	if err != nil {
		return err
	}

	content, err := s.repomanager.Contents(s.db).GetByID(ctx, contentID)
	if err != nil {
		return storageErr(err)
	}
	if content.ConversationID != conversationID {
		return chat.NewValidation("content_id", "message belongs to another conversation")
	}

	if err := s.repomanager.Memberships(s.db).UpdateLastRead(ctx, membership.ID, contentID, time.Now()); err != nil {
		return storageErr(err)
	}
	return nil
}

// UnreadCount computes how many visible messages the caller has not read.
// With no read pointer every non-deleted message counts; deleted messages
// never count even though they still render as placeholders.
func (s *MembershipService) UnreadCount(ctx context.Context, conversationID, identityID string) (int, error) {
	membership, err := s.activeMember(ctx, conversationID, identityID)
	if err != nil {
		return 0, err
	}

	repo := s.repomanager.Contents(s.db)
	if membership.LastReadMessageID == nil {
		n, err := repo.CountNonDeleted(ctx, conversationID)
		if err != nil {
			return 0, storageErr(err)
		}
		return n, nil
	}

	lastRead, err := repo.GetByID(ctx, *membership.LastReadMessageID)
	if err != nil {
		return 0, storageErr(err)
	}
	n, err := repo.CountAfter(ctx, conversationID, lastRead.CreatedAt)
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

// activeMember loads the caller's active membership, clearing an expired
// mute lazily on the way out.
func (s *MembershipService) activeMember(ctx context.Context, conversationID, identityID string) (*chat.Membership, error) {
	membership, err := s.repomanager.Memberships(s.db).GetActive(ctx, conversationID, identityID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, chat.NewPermission("not a member of this conversation")
		}
		return nil, storageErr(err)
	}

	if membership.IsMuted && membership.MutedUntil != nil && !time.Now().Before(*membership.MutedUntil) {
		if err := s.repomanager.Memberships(s.db).UpdateMute(ctx, membership.ID, false, nil); err != nil {
			return nil, storageErr(err)
		}
		membership.IsMuted = false
		membership.MutedUntil = nil
	}

	return membership, nil
}

// classifyMembershipConflict translates the membership unique-index
// violations into domain conflicts. Anything else passes through.
func classifyMembershipConflict(err error) error {
	if !dbx.IsUniqueViolation(err) {
		return err
	}
	switch dbx.ConstraintName(err) {
	case "memberships_owner_unique":
		return chat.NewConflict("conversation already has an owner")
	case "memberships_active_unique":
		return chat.NewConflict("already a member of this conversation")
	}
	return chat.NewConflict("membership conflict")
}
