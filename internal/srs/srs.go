package srs

import (
	"fmt"
	"math"
	"time"
)

const (
	// InitialEasiness is the easiness factor assigned to a brand new card.
	InitialEasiness = 2.5
	// MinEasiness is the floor below which the easiness factor never drops.
	MinEasiness = 1.3

	minQuality = 0
	maxQuality = 5

	// successThreshold is the lowest quality that counts as a successful
	// recall. Anything below it is a lapse.
	successThreshold = 3
)

// ReviewState is the memory state of a single card. It is a plain value:
// transitions return a new state rather than mutating in place.
type ReviewState struct {
	Repetitions  int
	Easiness     float64
	IntervalDays float64
	NextReview   time.Time
}

// NewReviewState returns the state of a freshly created card: no
// repetitions yet, default easiness, due immediately.
func NewReviewState(now time.Time) ReviewState {
	return ReviewState{
		Repetitions:  0,
		Easiness:     InitialEasiness,
		IntervalDays: 0,
		NextReview:   now.UTC(),
	}
}

// Stage labels where a card is in its review lifecycle.
func (s ReviewState) Stage() string {
	switch {
	case s.Repetitions == 0:
		return "new"
	case s.Repetitions < 3:
		return "learning"
	default:
		return "mature"
	}
}

// Apply computes the state a card moves to after a review with the
// given quality (0-5) at the given instant. Quality outside [0,5]
// returns ErrInvalidQuality and leaves no other result.
//
// Apply is a pure function of its three inputs: identical inputs
// produce identical output, and the input state is never modified.
// Persisting the result is the caller's job.
func Apply(state ReviewState, quality int, now time.Time) (ReviewState, error) {
	if quality < minQuality || quality > maxQuality {
		return ReviewState{}, fmt.Errorf("%w: %d", ErrInvalidQuality, quality)
	}

	// The easiness factor moves in both branches: a lapse degrades it
	// but does not reset it to the default.
	easiness := nextEasiness(state.Easiness, quality)

	next := state
	next.Easiness = easiness

	if quality < successThreshold {
		// Lapse: the streak resets and the card comes back tomorrow.
		next.Repetitions = 0
		next.IntervalDays = 1
	} else {
		next.Repetitions = state.Repetitions + 1
		switch {
		case next.Repetitions == 1:
			next.IntervalDays = 1
		case next.Repetitions == 2:
			next.IntervalDays = 6
		default:
			grown := math.Round(state.IntervalDays * easiness)
			if grown < 1 {
				grown = 1
			}
			next.IntervalDays = grown
		}
	}

	// Calendar-day arithmetic: converting the interval to a Duration
	// overflows int64 nanoseconds once the interval passes ~106751
	// days, which mature cards can reach.
	next.NextReview = now.UTC().AddDate(0, 0, int(next.IntervalDays))
	return next, nil
}

// nextEasiness applies the SM-2 easiness update for one review and
// clamps the result to the floor. There is no ceiling.
func nextEasiness(easiness float64, quality int) float64 {
	miss := float64(maxQuality - quality)
	easiness += 0.1 - miss*(0.08+miss*0.02)
	if easiness < MinEasiness {
		easiness = MinEasiness
	}
	return easiness
}
