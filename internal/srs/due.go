package srs

import (
	"sort"
	"time"

	"github.com/wordvault/wordvault/internal/domain"
)

// Item pairs a flashcard with its review state. The due selector is
// deliberately tag-agnostic: any filtering by card metadata happens
// before or after it, never inside.
type Item struct {
	Card  domain.Flashcard
	State ReviewState
}

// SelectDue returns the items whose NextReview is at or before now,
// ordered most-overdue first. Ties on NextReview break by ascending
// card ID so the order is deterministic. When nothing is due the
// result is an empty slice, not an error.
//
// SelectDue only applies the due policy; fetching candidates is the
// storage layer's job.
func SelectDue(items []Item, now time.Time) []Item {
	due := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.State.NextReview.After(now) {
			due = append(due, it)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].State.NextReview, due[j].State.NextReview
		if !a.Equal(b) {
			return a.Before(b)
		}
		return due[i].Card.ID < due[j].Card.ID
	})
	return due
}
