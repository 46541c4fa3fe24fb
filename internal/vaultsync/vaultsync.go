package vaultsync

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/wordvault/wordvault/internal/gitsource"
	"github.com/wordvault/wordvault/internal/parser"
	"github.com/wordvault/wordvault/internal/srs"
	"github.com/wordvault/wordvault/internal/storage"
)

// Result summarizes one reconciliation run.
type Result struct {
	Parsed   int `json:"parsed"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Run reconciles every import source the user has configured: git
// sources are mirrored under reposDir first, then each source
// directory is walked for markdown vocabulary files. Words the user
// does not have yet are inserted as fresh cards, immediately due;
// words already present are skipped, so a re-run never duplicates or
// resets anything.
func Run(db *storage.DB, userID int64, reposDir string) (Result, error) {
	var total Result

	sources, err := db.GetSources(userID)
	if err != nil {
		return total, fmt.Errorf("failed to get sources: %w", err)
	}
	if len(sources) == 0 {
		slog.Info("no import sources configured", "user_id", userID)
		return total, nil
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		dir := source.Path
		if source.Type == "git" {
			localPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("cannot determine local path for git source", "url", source.Path, "error", err)
				total.Errors++
				continue
			}
			if err := gitsource.Mirror(source.Path, localPath); err != nil {
				slog.Error("failed to mirror git source", "url", source.Path, "error", err)
				total.Errors++
				continue
			}
			dir = localPath
		}

		res := reconcileDir(db, userID, dir)
		total.Parsed += res.Parsed
		total.Inserted += res.Inserted
		total.Skipped += res.Skipped
		total.Errors += res.Errors

		if err := db.UpdateSourceLastScanned(source.ID); err != nil {
			slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
		}
	}

	slog.Info("sync complete",
		"user_id", userID,
		"parsed", total.Parsed,
		"inserted", total.Inserted,
		"skipped", total.Skipped,
		"errors", total.Errors,
	)
	return total, nil
}

func reconcileDir(db *storage.DB, userID int64, dir string) Result {
	var res Result

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		cards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			slog.Error("failed to parse vocabulary file", "path", path, "error", parseErr)
			res.Errors++
		}

		for _, card := range cards {
			res.Parsed++

			// A word with no meaning block cannot become a card.
			if card.Meaning == "" {
				slog.Warn("skipping entry without meaning", "word", card.Word, "path", path)
				res.Errors++
				continue
			}

			exists, err := db.ExistsByWord(userID, card.Word)
			if err != nil {
				slog.Error("failed to check word", "word", card.Word, "error", err)
				res.Errors++
				continue
			}
			if exists {
				res.Skipped++
				continue
			}

			now := time.Now().UTC()
			card.UserID = userID
			card.CreatedAt = now
			if _, err := db.InsertCard(card, srs.NewReviewState(now)); err != nil {
				slog.Error("failed to insert imported card", "word", card.Word, "error", err)
				res.Errors++
				continue
			}
			res.Inserted++
		}
		return nil
	})

	if walkErr != nil {
		slog.Error("failed to walk source directory", "path", dir, "error", walkErr)
		res.Errors++
	}
	return res
}

// gitURLToLocalPath maps a git URL to a stable checkout location under
// baseDir, so repeated syncs reuse the same clone.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-like syntax: git@host:user/repo.git
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
