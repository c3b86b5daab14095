package game

import (
	"maps"
	"slices"
)

// ReactionTag is the symbolic reaction attached to a processed submission.
// Rendering a tag as an emoji is the chat adapter's concern.
type ReactionTag string

const (
	// TagCheck marks an ordinary accepted number.
	TagCheck ReactionTag = "white_check_mark"

	// TagReject marks a rejected submission.
	TagReject ReactionTag = "x"

	// TagHundred marks a multiple of 100 without a special tag.
	TagHundred ReactionTag = "100"
)

// Table decides which numbers are milestones and how they are tagged.
//
// A number is a milestone if it is a positive multiple of 100 or a key of
// Special. Special tags take precedence over HundredTag.
type Table struct {
	// Special maps special numbers to their reaction tag.
	Special map[int64]ReactionTag

	// HundredTag tags multiples of 100 that are not special. Empty means
	// multiples of 100 are still milestones but react with TagCheck.
	HundredTag ReactionTag

	// Glyphs maps tags to the text used in celebration messages.
	Glyphs map[ReactionTag]string
}

// DefaultTable returns the built-in milestone table.
func DefaultTable() Table {
	return Table{
		Special: map[int64]ReactionTag{
			42:    "rocket",
			69:    "cancer",
			123:   "1234",
			314:   "pie",
			420:   "herb",
			666:   "smiling_imp",
			777:   "four_leaf_clover",
			1000:  "fireworks",
			1234:  "1234",
			1337:  "computer",
			2048:  "jigsaw",
			3141:  "abacus",
			5000:  "raised_hand_with_fingers_splayed",
			9000:  "muscle",
			9999:  "muscle",
			12345: "1234",
			31415: "pie",
		},
		HundredTag: TagHundred,
		Glyphs: map[ReactionTag]string{
			"rocket":                           "🚀",
			"cancer":                           "♋",
			"pie":                              "🥧",
			"herb":                             "🌿",
			"smiling_imp":                      "😈",
			"four_leaf_clover":                 "🍀",
			"fireworks":                        "🎆",
			"1234":                             "🔢",
			"computer":                         "💻",
			"jigsaw":                           "🧩",
			"abacus":                           "🧮",
			"raised_hand_with_fingers_splayed": "🖐️",
			"muscle":                           "💪",
			TagHundred:                         "💯",
			TagCheck:                           "✅",
			TagReject:                          "❌",
		},
	}
}

// IsMilestone reports whether n is a milestone.
func (t Table) IsMilestone(n int64) bool {
	if n <= 0 {
		return false
	}
	if n%100 == 0 {
		return true
	}
	_, ok := t.Special[n]
	return ok
}

// Reaction returns the tag for an accepted n.
func (t Table) Reaction(n int64) ReactionTag {
	if tag, ok := t.Special[n]; ok {
		return tag
	}
	if n > 0 && n%100 == 0 && t.HundredTag != "" {
		return t.HundredTag
	}
	return TagCheck
}

// Glyph returns the display text for tag. Unknown tags fall back to a
// party popper.
func (t Table) Glyph(tag ReactionTag) string {
	if g, ok := t.Glyphs[tag]; ok {
		return g
	}
	return "🎉"
}

// SpecialNumbers returns the special numbers in ascending order.
func (t Table) SpecialNumbers() []int64 {
	return slices.Sorted(maps.Keys(t.Special))
}

// Clone returns a copy of t that shares no maps with it.
func (t Table) Clone() Table {
	return Table{
		Special:    maps.Clone(t.Special),
		HundredTag: t.HundredTag,
		Glyphs:     maps.Clone(t.Glyphs),
	}
}
