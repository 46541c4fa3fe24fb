package domain

import "strings"

// ParseTags splits a comma-separated tag string into a clean slice.
// Each tag is trimmed of surrounding whitespace; empty entries are
// dropped. Tags stay case-sensitive: "Verb" and "verb" are distinct.
func ParseTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinTags is the inverse of ParseTags, producing the comma form the
// storage layer keeps.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// HasTag reports whether the card carries the given tag (exact match).
func (f Flashcard) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
