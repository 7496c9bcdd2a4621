package chat

import "time"

// ConversationType distinguishes 1:1 rooms from group rooms.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Participant-cap bounds for group conversations.
const (
	MinParticipants            = 2
	MaxParticipantsLimit       = 1000
	DefaultGroupMaxParticipant = 256
	MaxDescriptionLength       = 1000
	MaxConversationNameLength  = 255
)

// ConversationSettings is the closed record replacing the original's loose
// settings bag. A nil MessageRetentionDays means unlimited retention.
type ConversationSettings struct {
	AllowFileSharing       bool `json:"allow_file_sharing"`
	AllowMemberInvite      bool `json:"allow_member_invite"`
	OnlyAdminCanChangeInfo bool `json:"only_admin_can_change_info"`
	MessageRetentionDays   *int `json:"message_retention_days"`
}

func DefaultConversationSettings() ConversationSettings {
	return ConversationSettings{
		AllowFileSharing:  true,
		AllowMemberInvite: true,
	}
}

// SettingsPatch is a partial update: nil fields keep their current value.
type SettingsPatch struct {
	AllowFileSharing       *bool
	AllowMemberInvite      *bool
	OnlyAdminCanChangeInfo *bool
	MessageRetentionDays   **int
}

// Merge applies the patch to a copy of s and returns it. Settings updates
// are merges, never full replacements.
func (s ConversationSettings) Merge(p SettingsPatch) ConversationSettings {
	if p.AllowFileSharing != nil {
		s.AllowFileSharing = *p.AllowFileSharing
	}
	if p.AllowMemberInvite != nil {
		s.AllowMemberInvite = *p.AllowMemberInvite
	}
	if p.OnlyAdminCanChangeInfo != nil {
		s.OnlyAdminCanChangeInfo = *p.OnlyAdminCanChangeInfo
	}
	if p.MessageRetentionDays != nil {
		s.MessageRetentionDays = *p.MessageRetentionDays
	}
	return s
}

// Conversation is a chat room. Direct conversations have no name and no
// invite code; group conversations always carry an invite code generated at
// creation. LastActivity advances whenever LastMessageID changes.
type Conversation struct {
	ID                string
	Name              string // empty for direct conversations
	Type              ConversationType
	Description       string
	Avatar            string
	CreatedBy         string
	IsEncrypted       bool
	EncryptionKeyHash string
	LastMessageID     *string
	LastActivity      time.Time
	MaxParticipants   int
	IsArchived        bool
	IsPublic          bool
	InviteCode        string // empty for direct conversations
	Settings          ConversationSettings
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (c *Conversation) IsGroup() bool {
	return c.Type == ConversationGroup
}
