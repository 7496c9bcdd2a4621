package chat

import "time"

// Role of a participant inside a conversation.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin || r == RoleOwner
}

// PermissionAction names one grantable conversation action.
type PermissionAction string

const (
	PermInviteMembers  PermissionAction = "invite_members"
	PermRemoveMembers  PermissionAction = "remove_members"
	PermEditChatInfo   PermissionAction = "edit_chat_info"
	PermDeleteMessages PermissionAction = "delete_messages"
	PermPinMessages    PermissionAction = "pin_messages"
	PermManageFiles    PermissionAction = "manage_files"
)

// PermissionSet is the per-member grant record. It is fully recomputed from
// the role table on every role change; individual overrides do not survive
// a promotion or demotion.
type PermissionSet struct {
	CanInviteMembers  bool `json:"can_invite_members"`
	CanRemoveMembers  bool `json:"can_remove_members"`
	CanEditChatInfo   bool `json:"can_edit_chat_info"`
	CanDeleteMessages bool `json:"can_delete_messages"`
	CanPinMessages    bool `json:"can_pin_messages"`
	CanManageFiles    bool `json:"can_manage_files"`
}

// DefaultPermissions is the static role→permission table: members get
// nothing, admins and owners get everything.
func DefaultPermissions(role Role) PermissionSet {
	switch role {
	case RoleAdmin, RoleOwner:
		return PermissionSet{
			CanInviteMembers:  true,
			CanRemoveMembers:  true,
			CanEditChatInfo:   true,
			CanDeleteMessages: true,
			CanPinMessages:    true,
			CanManageFiles:    true,
		}
	default:
		return PermissionSet{}
	}
}

// Allows is a pure boolean lookup of one action in the set.
func (p PermissionSet) Allows(action PermissionAction) bool {
	switch action {
	case PermInviteMembers:
		return p.CanInviteMembers
	case PermRemoveMembers:
		return p.CanRemoveMembers
	case PermEditChatInfo:
		return p.CanEditChatInfo
	case PermDeleteMessages:
		return p.CanDeleteMessages
	case PermPinMessages:
		return p.CanPinMessages
	case PermManageFiles:
		return p.CanManageFiles
	}
	return false
}

// NotificationSettings is the per-member notification record.
type NotificationSettings struct {
	Mentions       bool `json:"mentions"`
	AllMessages    bool `json:"all_messages"`
	Files          bool `json:"files"`
	SystemMessages bool `json:"system_messages"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Mentions:       true,
		AllMessages:    true,
		Files:          true,
		SystemMessages: true,
	}
}

// NotificationPatch is a partial notification-settings update.
type NotificationPatch struct {
	Mentions       *bool
	AllMessages    *bool
	Files          *bool
	SystemMessages *bool
}

func (n NotificationSettings) Merge(p NotificationPatch) NotificationSettings {
	if p.Mentions != nil {
		n.Mentions = *p.Mentions
	}
	if p.AllMessages != nil {
		n.AllMessages = *p.AllMessages
	}
	if p.Files != nil {
		n.Files = *p.Files
	}
	if p.SystemMessages != nil {
		n.SystemMessages = *p.SystemMessages
	}
	return n
}

// Membership links one identity to one conversation and carries its state.
// The (conversation, identity) pair is unique while active; leaving sets
// LeftAt and the row is never hard-deleted.
type Membership struct {
	ID                   string
	ConversationID       string
	IdentityID           string
	Role                 Role
	JoinedAt             time.Time
	InvitedBy            *string
	LeftAt               *time.Time
	NotificationSettings NotificationSettings
	Permissions          PermissionSet
	LastReadMessageID    *string
	LastActiveAt         time.Time
	IsMuted              bool
	MutedUntil           *time.Time
	IsFavorite           bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsActive reports whether the member has not left.
func (m *Membership) IsActive() bool {
	return m.LeftAt == nil
}

// HasPermission is a pure lookup against the member's grant record.
func (m *Membership) HasPermission(action PermissionAction) bool {
	return m.Permissions.Allows(action)
}

// IsMutedNow reports the effective mute state at the given instant. An
// expired MutedUntil no longer mutes even before the lazy clear runs.
func (m *Membership) IsMutedNow(now time.Time) bool {
	if !m.IsMuted {
		return false
	}
	if m.MutedUntil == nil {
		return true
	}
	return now.Before(*m.MutedUntil)
}
