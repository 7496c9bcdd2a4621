package chat

import (
	"strings"
	"time"
)

// PresenceStatus is the coarse online state of an identity.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
	PresenceAway    PresenceStatus = "away"
)

// ProfileVisibility controls who can see an identity's profile.
type ProfileVisibility string

const (
	ProfilePublic   ProfileVisibility = "public"
	ProfileContacts ProfileVisibility = "contacts"
	ProfilePrivate  ProfileVisibility = "private"
)

// LastSeenVisibility controls who can see the last-seen timestamp.
type LastSeenVisibility string

const (
	LastSeenEveryone LastSeenVisibility = "everyone"
	LastSeenContacts LastSeenVisibility = "contacts"
	LastSeenNobody   LastSeenVisibility = "nobody"
)

// Identity is a registered account. The encryption key salt is generated
// once at registration and is never null; the email is stored
// case-normalized and is globally unique.
type Identity struct {
	ID                     string
	Email                  string
	Name                   string
	PasswordHash           string
	ProfileImage           string
	Status                 PresenceStatus
	LastSeen               time.Time
	EmailVerified          bool
	EmailVerificationToken string
	PasswordResetToken     string // sha256 of the token handed to the user
	PasswordResetExpires   *time.Time
	TwoFactorEnabled       bool
	TwoFactorSecret        string
	ProfileVisibility      ProfileVisibility
	LastSeenVisibility     LastSeenVisibility
	IsActive               bool
	DeactivatedAt          *time.Time
	EncryptionKeySalt      string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NormalizeEmail lowercases and trims an address. All email lookups and
// writes go through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PublicProfile is the identity view exposed to other users, filtered by
// the owner's visibility settings.
type PublicProfile struct {
	ID           string
	Name         string
	ProfileImage string
	Status       PresenceStatus
	LastSeen     *time.Time
}

// Public applies the identity's privacy settings and returns the view other
// members may see. Private profiles expose only id and name.
func (i *Identity) Public() PublicProfile {
	p := PublicProfile{ID: i.ID, Name: i.Name}
	if i.ProfileVisibility == ProfilePrivate {
		return p
	}
	p.ProfileImage = i.ProfileImage
	p.Status = i.Status
	if i.LastSeenVisibility != LastSeenNobody {
		ls := i.LastSeen
		p.LastSeen = &ls
	}
	return p
}
