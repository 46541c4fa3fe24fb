package domain

import "time"

// Flashcard is a single word/meaning entry owned by one user.
type Flashcard struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Word      string    `json:"word"`
	Meaning   string    `json:"meaning"`
	Example   string    `json:"example,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account that owns flashcards.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// ReviewLog records a single review event for a card. Rows are
// write-once: they are appended when a review is applied and never
// mutated or deleted afterwards.
type ReviewLog struct {
	CardID       int64
	ReviewedAt   time.Time
	Quality      int
	Repetitions  int
	Easiness     float64
	IntervalDays float64
	NextReview   time.Time
}
