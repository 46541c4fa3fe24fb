package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/wordvault/wordvault/internal/config"
	"github.com/wordvault/wordvault/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Addr:       ":0",
		DBPath:     ":memory:",
		ReposDir:   t.TempDir(),
		JWTSecret:  testSecret,
		TokenTTL:   time.Hour,
		BcryptCost: 4, // cheapest cost, tests hash a lot
		LogLevel:   "info",
	}
	s := NewServer(db, cfg)

	// Pin the clock to a whole second so RFC3339 comparisons are exact.
	now := time.Now().UTC().Truncate(time.Second)
	s.now = func() time.Time { return now }
	return s
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func registerAndLogin(t *testing.T, s *Server, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "sekret123"}
	if w := doJSON(t, s, http.MethodPost, "/register", "", creds); w.Code != http.StatusCreated {
		t.Fatalf("register failed with status %d: %s", w.Code, w.Body.String())
	}
	w := doJSON(t, s, http.MethodPost, "/login", "", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", w.Code, w.Body.String())
	}
	var out map[string]string
	decodeBody(t, w, &out)
	return out["token"]
}

func createCard(t *testing.T, s *Server, token, word string) cardResponse {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/cards", token, map[string]any{
		"word":    word,
		"meaning": "meaning of " + word,
		"tags":    []string{"test"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create card failed with status %d: %s", w.Code, w.Body.String())
	}
	var card cardResponse
	decodeBody(t, w, &card)
	return card
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/register", "", map[string]string{
		"email": "a@example.com", "password": "sekret123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/register", "", map[string]string{
		"email": "a@example.com", "password": "other",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/register", "", map[string]string{"email": "b@example.com"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", w.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "a@example.com")

	w := doJSON(t, s, http.MethodPost, "/login", "", map[string]string{
		"email": "a@example.com", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/login", "", map[string]string{
		"email": "nobody@example.com", "password": "sekret123",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown email, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/cards", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/cards", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", w.Code)
	}
}

func TestCreateCard(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "a@example.com")

	card := createCard(t, s, token, "serendipity")
	if card.Repetitions != 0 || card.EF != 2.5 || card.IntervalDays != 0 {
		t.Errorf("unexpected initial state: %+v", card)
	}
	if card.NextReview != s.now().Format(time.RFC3339) {
		t.Errorf("expected card due immediately, got %q", card.NextReview)
	}
	if card.Stage != "new" {
		t.Errorf("expected stage new, got %q", card.Stage)
	}

	w := doJSON(t, s, http.MethodPost, "/cards", token, map[string]any{
		"word": "Serendipity", "meaning": "again",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate word, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/cards", token, map[string]any{"word": "lonely"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing meaning, got %d", w.Code)
	}
}

func TestCardCRUD(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "a@example.com")
	createCard(t, s, token, "apple")

	w := doJSON(t, s, http.MethodGet, "/cards/1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPut, "/cards/1", token, map[string]any{
		"word": "apfel", "meaning": "an apple in German",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/cards/1", token, nil)
	var got cardResponse
	decodeBody(t, w, &got)
	if got.Word != "apfel" {
		t.Errorf("expected updated word, got %q", got.Word)
	}

	w = doJSON(t, s, http.MethodDelete, "/cards/1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/cards/1", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestCardsAreScopedPerUser(t *testing.T) {
	s := newTestServer(t)
	alice := registerAndLogin(t, s, "alice@example.com")
	bob := registerAndLogin(t, s, "bob@example.com")
	createCard(t, s, alice, "apple")

	w := doJSON(t, s, http.MethodGet, "/cards/1", bob, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user's card, got %d", w.Code)
	}
}

func TestReviewCard(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "a@example.com")
	createCard(t, s, token, "apple")

	w := doJSON(t, s, http.MethodPost, "/cards/review/1", token, map[string]int{"quality": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var card cardResponse
	decodeBody(t, w, &card)
	if card.Repetitions != 1 || card.IntervalDays != 1 {
		t.Errorf("unexpected state after review: %+v", card)
	}
	if card.EF != 2.6 {
		t.Errorf("expected ef 2.6, got %v", card.EF)
	}
	want := s.now().Add(24 * time.Hour).Format(time.RFC3339)
	if card.NextReview != want {
		t.Errorf("expected next review %q, got %q", want, card.NextReview)
	}
}

func TestReviewCardValidation(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "a@example.com")
	createCard(t, s, token, "apple")

	for _, body := range []string{
		`{"quality": 6}`,
		`{"quality": -1}`,
		`{"quality": 2.5}`,
		`{"quality": "3"}`,
		`{}`,
		`not json`,
	} {
		w := doJSON(t, s, http.MethodPost, "/cards/review/1", token, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, w.Code)
		}
	}

	// A rejected review must not touch the card.
	w := doJSON(t, s, http.MethodGet, "/cards/1", token, nil)
	var card cardResponse
	decodeBody(t, w, &card)
	if card.Repetitions != 0 || card.EF != 2.5 {
		t.Errorf("card changed by invalid review: %+v", card)
	}

	w = doJSON(t, s, http.MethodPost, "/cards/review/999", token, map[string]int{"quality": 3})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown card, got %d", w.Code)
	}
}

func TestDueCards(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "a@example.com")
	createCard(t, s, token, "apple")
	createCard(t, s, token, "banana")

	// Review banana: it moves a day into the future.
	w := doJSON(t, s, http.MethodPost, "/cards/review/2", token, map[string]int{"quality": 4})
	if w.Code != http.StatusOK {
		t.Fatalf("review failed: %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/cards/due", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var due []cardResponse
	decodeBody(t, w, &due)
	if len(due) != 1 || due[0].Word != "apple" {
		t.Errorf("unexpected due set: %+v", due)
	}
}

func TestDueCardsEmpty(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "a@example.com")

	w := doJSON(t, s, http.MethodGet, "/cards/due", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %q", w.Body.String())
	}
}

func TestReviewHistory(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "a@example.com")
	createCard(t, s, token, "apple")

	for _, q := range []int{5, 4} {
		if w := doJSON(t, s, http.MethodPost, "/cards/review/1", token, map[string]int{"quality": q}); w.Code != http.StatusOK {
			t.Fatalf("review failed: %d", w.Code)
		}
	}

	w := doJSON(t, s, http.MethodGet, "/cards/1/history", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var logs []map[string]any
	decodeBody(t, w, &logs)
	if len(logs) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(logs))
	}
	if logs[0]["quality"].(float64) != 5 || logs[1]["quality"].(float64) != 4 {
		t.Errorf("unexpected log order: %+v", logs)
	}
}

func TestListCardsWithTagFilter(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "a@example.com")

	w := doJSON(t, s, http.MethodPost, "/cards", token, map[string]any{
		"word": "run", "meaning": "to move fast", "tags": []string{"verb"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}
	w = doJSON(t, s, http.MethodPost, "/cards", token, map[string]any{
		"word": "dog", "meaning": "an animal", "tags": []string{"noun"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/cards?tag=verb", token, nil)
	var cards []cardResponse
	decodeBody(t, w, &cards)
	if len(cards) != 1 || cards[0].Word != "run" {
		t.Errorf("unexpected filter result: %+v", cards)
	}

	w = doJSON(t, s, http.MethodGet, "/tags", token, nil)
	var tags []string
	decodeBody(t, w, &tags)
	if len(tags) != 2 {
		t.Errorf("expected 2 tags, got %v", tags)
	}
}

func TestSourcesAndSync(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "a@example.com")

	dir := t.TempDir()
	vocabPath := dir + "/words.md"
	if err := writeFile(vocabPath, "W: hello\nM: a greeting\nT: noun\n"); err != nil {
		t.Fatalf("failed to write vocab file: %v", err)
	}

	w := doJSON(t, s, http.MethodPost, "/sources", token, map[string]string{"path": dir})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var src sourceResponse
	decodeBody(t, w, &src)
	if src.Type != "local" {
		t.Errorf("expected local source, got %q", src.Type)
	}

	w = doJSON(t, s, http.MethodPost, "/sync", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res map[string]int
	decodeBody(t, w, &res)
	if res["inserted"] != 1 {
		t.Errorf("expected 1 inserted card, got %+v", res)
	}

	w = doJSON(t, s, http.MethodGet, "/cards/due", token, nil)
	var due []cardResponse
	decodeBody(t, w, &due)
	if len(due) != 1 || due[0].Word != "hello" {
		t.Errorf("imported card should be due, got %+v", due)
	}

	w = doJSON(t, s, http.MethodDelete, "/sources/1", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 on source delete, got %d", w.Code)
	}
}

func TestAddGitSourceDetection(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "a@example.com")

	w := doJSON(t, s, http.MethodPost, "/sources", token, map[string]string{
		"path": "https://github.com/alice/vocab.git",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var src sourceResponse
	decodeBody(t, w, &src)
	if src.Type != "git" {
		t.Errorf("expected git source, got %q", src.Type)
	}
}
