package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/srs"
)

// CardRecord is a flashcard as stored: the card, its review state and
// the version counter used for the optimistic concurrency check.
type CardRecord struct {
	Card    domain.Flashcard
	State   srs.ReviewState
	Version int64
}

const cardColumns = `id, user_id, word, meaning, example, tags, repetitions, ef, interval_days, next_review, created_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCardRecord(row rowScanner) (*CardRecord, error) {
	var rec CardRecord
	var tags string
	err := row.Scan(
		&rec.Card.ID,
		&rec.Card.UserID,
		&rec.Card.Word,
		&rec.Card.Meaning,
		&rec.Card.Example,
		&tags,
		&rec.State.Repetitions,
		&rec.State.Easiness,
		&rec.State.IntervalDays,
		&rec.State.NextReview,
		&rec.Card.CreatedAt,
		&rec.Version,
	)
	if err != nil {
		return nil, err
	}
	rec.Card.Tags = domain.ParseTags(tags)
	rec.State.NextReview = rec.State.NextReview.UTC()
	rec.Card.CreatedAt = rec.Card.CreatedAt.UTC()
	return &rec, nil
}

// InsertCard stores a new flashcard together with its initial review
// state in a single statement, so a card never exists without one.
func (db *DB) InsertCard(card domain.Flashcard, state srs.ReviewState) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO cards (user_id, word, meaning, example, tags, repetitions, ef, interval_days, next_review, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.UserID,
		card.Word,
		card.Meaning,
		card.Example,
		domain.JoinTags(card.Tags),
		state.Repetitions,
		state.Easiness,
		state.IntervalDays,
		state.NextReview.UTC(),
		card.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert card %q: %w", card.Word, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for card %q: %w", card.Word, err)
	}
	return id, nil
}

// GetCard retrieves one card scoped to its owner, or ErrNotFound.
func (db *DB) GetCard(id, userID int64) (*CardRecord, error) {
	row := db.conn.QueryRow(`
		SELECT `+cardColumns+`
		FROM cards WHERE id = ? AND user_id = ?
	`, id, userID)

	rec, err := scanCardRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get card %d: %w", id, err)
	}
	return rec, nil
}

// UpdateCard edits the user-visible fields of a card. Review state and
// version are untouched.
func (db *DB) UpdateCard(id, userID int64, word, meaning, example string, tags []string) error {
	res, err := db.conn.Exec(`
		UPDATE cards
		SET word = ?, meaning = ?, example = ?, tags = ?
		WHERE id = ? AND user_id = ?
	`, word, meaning, example, domain.JoinTags(tags), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of card %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteCard removes a card and with it the review state stored on the
// same row. Review log rows stay: the log is append-only history.
func (db *DB) DeleteCard(id, userID int64) error {
	res, err := db.conn.Exec(`
		DELETE FROM cards
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete card %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of card %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	return nil
}

// ExistsByWord reports whether the user already has a card for the
// word, compared case-insensitively.
func (db *DB) ExistsByWord(userID int64, word string) (bool, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM cards WHERE user_id = ? AND LOWER(word) = LOWER(?)
	`, userID, word).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check word %q: %w", word, err)
	}
	return count > 0, nil
}

// ListOptions controls pagination, ordering and tag filtering for
// ListCards. Sort keys outside the whitelist fall back to creation
// time.
type ListOptions struct {
	Limit  int
	Offset int
	SortBy string
	Desc   bool
	Tag    string
}

var sortColumns = map[string]string{
	"created":     "created_at",
	"word":        "word",
	"repetitions": "repetitions",
	"ef":          "ef",
	"next_review": "next_review",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ListCards returns one page of the user's cards.
func (db *DB) ListCards(userID int64, opts ListOptions) ([]CardRecord, error) {
	orderBy, ok := sortColumns[opts.SortBy]
	if !ok {
		orderBy = "created_at"
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}

	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = ?`
	args := []any{userID}

	if opts.Tag != "" {
		// Exact tag match inside the comma-separated list. The tag
		// itself must not act as a pattern, so % and _ are escaped.
		query += ` AND (',' || tags || ',') LIKE ('%,' || ? || ',%') ESCAPE '\'`
		args = append(args, escapeLike(opts.Tag))
	}

	query += fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT ? OFFSET ?", orderBy, dir)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var records []CardRecord
	for rows.Next() {
		rec, err := scanCardRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// DueCandidates returns all of the user's cards with their states
// attached, ready for the due selector. Storage does not apply the due
// policy itself; that stays in one place, the srs package.
func (db *DB) DueCandidates(userID int64) ([]srs.Item, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query due candidates: %w", err)
	}
	defer rows.Close()

	var items []srs.Item
	for rows.Next() {
		rec, err := scanCardRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		items = append(items, srs.Item{Card: rec.Card, State: rec.State})
	}
	return items, rows.Err()
}

// ApplyReview writes a card's new review state and appends the audit
// log row in one transaction. The write only lands if the stored
// version still matches expectedVersion; a mismatch means another
// review got there first and yields ErrConflict so the caller can
// re-read and retry.
func (db *DB) ApplyReview(cardID, userID int64, quality int, state srs.ReviewState, expectedVersion int64, reviewedAt time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin review transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE cards
		SET repetitions = ?, ef = ?, interval_days = ?, next_review = ?, version = version + 1
		WHERE id = ? AND user_id = ? AND version = ?
	`,
		state.Repetitions,
		state.Easiness,
		state.IntervalDays,
		state.NextReview.UTC(),
		cardID,
		userID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update review state for card %d: %w", cardID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review update for card %d: %w", cardID, err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM cards WHERE id = ? AND user_id = ?`, cardID, userID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check card %d: %w", cardID, err)
		}
		if exists == 0 {
			return fmt.Errorf("card %d: %w", cardID, ErrNotFound)
		}
		return fmt.Errorf("card %d: %w", cardID, ErrConflict)
	}

	_, err = tx.Exec(`
		INSERT INTO review_log (card_id, reviewed_at, quality, repetitions, ef, interval_days, next_review)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		cardID,
		reviewedAt.UTC(),
		quality,
		state.Repetitions,
		state.Easiness,
		state.IntervalDays,
		state.NextReview.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append review log for card %d: %w", cardID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review for card %d: %w", cardID, err)
	}
	return nil
}

// ReviewHistory returns the audit log rows for a card, oldest first.
func (db *DB) ReviewHistory(cardID, userID int64) ([]domain.ReviewLog, error) {
	if _, err := db.GetCard(cardID, userID); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
		SELECT card_id, reviewed_at, quality, repetitions, ef, interval_days, next_review
		FROM review_log WHERE card_id = ?
		ORDER BY id ASC
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query review history for card %d: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var l domain.ReviewLog
		if err := rows.Scan(&l.CardID, &l.ReviewedAt, &l.Quality, &l.Repetitions, &l.Easiness, &l.IntervalDays, &l.NextReview); err != nil {
			return nil, fmt.Errorf("failed to scan review log row: %w", err)
		}
		l.ReviewedAt = l.ReviewedAt.UTC()
		l.NextReview = l.NextReview.UTC()
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ListTags returns the distinct tags across the user's cards.
func (db *DB) ListTags(userID int64) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT tags FROM cards WHERE user_id = ? AND tags != ''
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var tags []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan tags: %w", err)
		}
		for _, tag := range domain.ParseTags(raw) {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(tags)
	return tags, nil
}
