package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/srs"
	"github.com/wordvault/wordvault/internal/storage"
)

// cardResponse is the wire shape of a card. The easiness factor is
// exposed as "ef", rounded to two decimals for display.
type cardResponse struct {
	ID           int64    `json:"id"`
	Word         string   `json:"word"`
	Meaning      string   `json:"meaning"`
	Example      string   `json:"example,omitempty"`
	Tags         []string `json:"tags"`
	NextReview   string   `json:"next_review"`
	Repetitions  int      `json:"repetitions"`
	IntervalDays float64  `json:"interval_days"`
	EF           float64  `json:"ef"`
	Stage        string   `json:"stage"`
	CreatedAt    string   `json:"created_at"`
}

func toCardResponse(card domain.Flashcard, state srs.ReviewState) cardResponse {
	tags := card.Tags
	if tags == nil {
		tags = []string{}
	}
	return cardResponse{
		ID:           card.ID,
		Word:         card.Word,
		Meaning:      card.Meaning,
		Example:      card.Example,
		Tags:         tags,
		NextReview:   state.NextReview.UTC().Format(time.RFC3339),
		Repetitions:  state.Repetitions,
		IntervalDays: state.IntervalDays,
		EF:           math.Round(state.Easiness*100) / 100,
		Stage:        state.Stage(),
		CreatedAt:    card.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

type cardInput struct {
	Word    string   `json:"word"`
	Meaning string   `json:"meaning"`
	Example string   `json:"example"`
	Tags    []string `json:"tags"`
}

// handleCreateCard stores a new flashcard with a fresh review state,
// due immediately.
func (s *Server) handleCreateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in cardInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if in.Word == "" || in.Meaning == "" {
			writeError(w, http.StatusBadRequest, "word and meaning are required")
			return
		}

		uid := userID(r)
		exists, err := s.db.ExistsByWord(uid, in.Word)
		if err != nil {
			slog.Error("failed to check word existence", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create card")
			return
		}
		if exists {
			writeError(w, http.StatusConflict, "word already exists")
			return
		}

		now := s.now()
		card := domain.Flashcard{
			UserID:    uid,
			Word:      in.Word,
			Meaning:   in.Meaning,
			Example:   in.Example,
			Tags:      in.Tags,
			CreatedAt: now,
		}
		state := srs.NewReviewState(now)

		id, err := s.db.InsertCard(card, state)
		if err != nil {
			slog.Error("failed to insert card", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create card")
			return
		}
		card.ID = id

		writeJSON(w, http.StatusCreated, toCardResponse(card, state))
	}
}

// handleListCards returns one page of the user's cards.
func (s *Server) handleListCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, err := strconv.Atoi(q.Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil || limit < 1 || limit > 200 {
			limit = 20
		}

		opts := storage.ListOptions{
			Limit:  limit,
			Offset: (page - 1) * limit,
			SortBy: q.Get("sort"),
			Desc:   q.Get("order") == "desc",
			Tag:    q.Get("tag"),
		}

		records, err := s.db.ListCards(userID(r), opts)
		if err != nil {
			slog.Error("failed to list cards", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list cards")
			return
		}

		out := make([]cardResponse, 0, len(records))
		for _, rec := range records {
			out = append(out, toCardResponse(rec.Card, rec.State))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid card ID")
			return
		}
		rec, err := s.db.GetCard(id, userID(r))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "card not found")
				return
			}
			slog.Error("failed to get card", "card_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get card")
			return
		}
		writeJSON(w, http.StatusOK, toCardResponse(rec.Card, rec.State))
	}
}

func (s *Server) handleUpdateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid card ID")
			return
		}
		var in cardInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if in.Word == "" || in.Meaning == "" {
			writeError(w, http.StatusBadRequest, "word and meaning are required")
			return
		}

		err := s.db.UpdateCard(id, userID(r), in.Word, in.Meaning, in.Example, in.Tags)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "card not found")
				return
			}
			slog.Error("failed to update card", "card_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update card")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "card updated"})
	}
}

// handleDeleteCard removes a card; its review state goes with it.
func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid card ID")
			return
		}
		err := s.db.DeleteCard(id, userID(r))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "card not found")
				return
			}
			slog.Error("failed to delete card", "card_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete card")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "card deleted"})
	}
}

// handleDueCards returns the cards due now, most overdue first. The
// due policy lives entirely in the srs package; this handler only
// fetches candidates and serializes the selection.
func (s *Server) handleDueCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := s.db.DueCandidates(userID(r))
		if err != nil {
			slog.Error("failed to fetch due candidates", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list due cards")
			return
		}

		due := srs.SelectDue(items, s.now())
		out := make([]cardResponse, 0, len(due))
		for _, it := range due {
			out = append(out, toCardResponse(it.Card, it.State))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleReviewCard applies one review to a card. The engine computes
// the new state; the write is guarded by an optimistic version check
// and retried once on conflict.
func (s *Server) handleReviewCard() http.HandlerFunc {
	type reviewInput struct {
		Quality *int `json:"quality"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid card ID")
			return
		}
		var in reviewInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Quality == nil {
			writeError(w, http.StatusBadRequest, "quality must be an integer between 0 and 5")
			return
		}

		uid := userID(r)
		now := s.now()

		// Read-modify-write with one retry on a detected race.
		for attempt := 0; ; attempt++ {
			rec, err := s.db.GetCard(id, uid)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					writeError(w, http.StatusNotFound, "card not found")
					return
				}
				slog.Error("failed to get card for review", "card_id", id, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to review card")
				return
			}

			next, err := srs.Apply(rec.State, *in.Quality, now)
			if err != nil {
				if errors.Is(err, srs.ErrInvalidQuality) {
					writeError(w, http.StatusBadRequest, "quality must be an integer between 0 and 5")
					return
				}
				slog.Error("failed to apply review", "card_id", id, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to review card")
				return
			}

			err = s.db.ApplyReview(id, uid, *in.Quality, next, rec.Version, now)
			if err == nil {
				writeJSON(w, http.StatusOK, toCardResponse(rec.Card, next))
				return
			}
			if errors.Is(err, storage.ErrConflict) && attempt == 0 {
				slog.Warn("concurrent review detected, retrying", "card_id", id)
				continue
			}
			if errors.Is(err, storage.ErrConflict) {
				writeError(w, http.StatusConflict, "card was reviewed concurrently")
				return
			}
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "card not found")
				return
			}
			slog.Error("failed to store review", "card_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to review card")
			return
		}
	}
}

// handleReviewHistory returns the append-only review log for a card.
func (s *Server) handleReviewHistory() http.HandlerFunc {
	type logResponse struct {
		ReviewedAt   string  `json:"reviewed_at"`
		Quality      int     `json:"quality"`
		Repetitions  int     `json:"repetitions"`
		IntervalDays float64 `json:"interval_days"`
		EF           float64 `json:"ef"`
		NextReview   string  `json:"next_review"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid card ID")
			return
		}
		logs, err := s.db.ReviewHistory(id, userID(r))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "card not found")
				return
			}
			slog.Error("failed to fetch review history", "card_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to fetch history")
			return
		}

		out := make([]logResponse, 0, len(logs))
		for _, l := range logs {
			out = append(out, logResponse{
				ReviewedAt:   l.ReviewedAt.UTC().Format(time.RFC3339),
				Quality:      l.Quality,
				Repetitions:  l.Repetitions,
				IntervalDays: l.IntervalDays,
				EF:           math.Round(l.Easiness*100) / 100,
				NextReview:   l.NextReview.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleListTags returns the distinct tags across the user's cards.
func (s *Server) handleListTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := s.db.ListTags(userID(r))
		if err != nil {
			slog.Error("failed to list tags", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list tags")
			return
		}
		if tags == nil {
			tags = []string{}
		}
		writeJSON(w, http.StatusOK, tags)
	}
}
