package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wordvault/wordvault/internal/storage"
	"github.com/wordvault/wordvault/internal/vaultsync"
)

type sourceResponse struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	LastScanned string `json:"last_scanned,omitempty"`
}

// handleListSources returns the user's configured import sources.
func (s *Server) handleListSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.db.GetSources(userID(r))
		if err != nil {
			slog.Error("failed to list sources", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list sources")
			return
		}

		out := make([]sourceResponse, 0, len(sources))
		for _, src := range sources {
			resp := sourceResponse{ID: src.ID, Path: src.Path, Type: src.Type}
			if src.LastScanned.Valid {
				resp.LastScanned = src.LastScanned.Time.UTC().Format(time.RFC3339)
			}
			out = append(out, resp)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleAddSource registers a new import source. Git URLs are detected
// by shape; everything else is treated as a local directory.
func (s *Server) handleAddSource() http.HandlerFunc {
	type input struct {
		Path string `json:"path"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Path == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}

		sourceType := "local"
		if strings.HasSuffix(in.Path, ".git") || strings.HasPrefix(in.Path, "git@") ||
			strings.HasPrefix(in.Path, "https://") || strings.HasPrefix(in.Path, "http://") {
			sourceType = "git"
		}

		id, err := s.db.InsertSource(userID(r), in.Path, sourceType)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				writeError(w, http.StatusConflict, "source already exists")
				return
			}
			slog.Error("failed to insert source", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to add source")
			return
		}
		writeJSON(w, http.StatusCreated, sourceResponse{ID: id, Path: in.Path, Type: sourceType})
	}
}

func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid source ID")
			return
		}
		if err := s.db.DeleteSource(id, userID(r)); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "source not found")
				return
			}
			slog.Error("failed to delete source", "source_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete source")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "source deleted"})
	}
}

// handleSync runs the import reconciliation for the user's sources in
// the foreground and reports what it did.
func (s *Server) handleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := vaultsync.Run(s.db, userID(r), s.reposDir)
		if err != nil {
			slog.Error("sync failed", "error", err)
			writeError(w, http.StatusInternalServerError, "sync failed")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
