package chat

import "time"

// ReactionCategory buckets an emoji into a coarse sentiment class. It is
// derived deterministically from the emoji and recomputed whenever the
// emoji changes.
type ReactionCategory string

const (
	CategoryLike   ReactionCategory = "like"
	CategoryLove   ReactionCategory = "love"
	CategoryLaugh  ReactionCategory = "laugh"
	CategoryAngry  ReactionCategory = "angry"
	CategorySad    ReactionCategory = "sad"
	CategoryWow    ReactionCategory = "wow"
	CategoryCustom ReactionCategory = "custom"
)

// Reaction is one user's emoji annotation of one message. The
// (content, identity, emoji) triple is unique; re-reacting toggles the row
// away instead of erroring.
type Reaction struct {
	ID         string
	ContentID  string
	IdentityID string
	Emoji      string
	Category   ReactionCategory
	CreatedAt  time.Time
}

// ReactionCount is one bucket of a per-message reaction summary.
type ReactionCount struct {
	Emoji    string
	Category ReactionCategory
	Count    int
}
