package chat

import "unicode/utf8"

// MaxEmojiLength bounds a stored emoji in bytes. Compound emoji (variation
// selectors, ZWJ sequences) stay well under this.
const MaxEmojiLength = 20

// categoryByEmoji maps known emoji to their sentiment category. Everything
// else that passes validation is "custom".
var categoryByEmoji = map[string]ReactionCategory{
	"👍":  CategoryLike,
	"👎":  CategoryLike,
	"❤️": CategoryLove,
	"💕":  CategoryLove,
	"💖":  CategoryLove,
	"😂":  CategoryLaugh,
	"🤣":  CategoryLaugh,
	"😆":  CategoryLaugh,
	"😡":  CategoryAngry,
	"😠":  CategoryAngry,
	"🤬":  CategoryAngry,
	"😢":  CategorySad,
	"😭":  CategorySad,
	"😰":  CategorySad,
	"😮":  CategoryWow,
	"😲":  CategoryWow,
	"🤯":  CategoryWow,
}

// emojiRanges are the accepted Unicode code-point blocks. Variation
// selector U+FE0F and ZWJ U+200D are allowed as joiners so compound emoji
// like ❤️ validate under the same rule as plain ones.
var emojiRanges = [][2]rune{
	{0x1F300, 0x1F5FF}, // symbols & pictographs
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F680, 0x1F6FF}, // transport
	{0x1F900, 0x1F9FF}, // supplemental symbols
	{0x1F1E6, 0x1F1FF}, // regional indicators
	{0x2600, 0x26FF},   // misc symbols
	{0x2700, 0x27BF},   // dingbats
}

// ValidEmoji reports whether s is a non-empty emoji sequence within the
// accepted ranges. This is the single canonical validation: there is no
// separate allow-list path.
func ValidEmoji(s string) bool {
	if s == "" || len(s) > MaxEmojiLength || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r == 0xFE0F || r == 0x200D {
			continue
		}
		if !inEmojiRange(r) {
			return false
		}
	}
	return true
}

func inEmojiRange(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

// CategoryOf derives the reaction category for an emoji. Unknown emoji are
// custom.
func CategoryOf(emoji string) ReactionCategory {
	if c, ok := categoryByEmoji[emoji]; ok {
		return c
	}
	return CategoryCustom
}
