package storage

const schema = `
-- Accounts that own flashcards.
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL
);

-- The 'cards' table stores each flashcard together with its review state.
-- The four state columns (repetitions, ef, interval_days, next_review)
-- always change together; 'version' backs the optimistic concurrency
-- check on review updates.
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    word TEXT NOT NULL,
    meaning TEXT NOT NULL,
    example TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    repetitions INTEGER NOT NULL DEFAULT 0,
    ef REAL NOT NULL DEFAULT 2.5,
    interval_days REAL NOT NULL DEFAULT 0,
    next_review DATETIME NOT NULL,
    created_at DATETIME NOT NULL,
    version INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_cards_user_due ON cards(user_id, next_review);

-- Append-only audit trail of review events. Never updated or deleted.
CREATE TABLE IF NOT EXISTS review_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id INTEGER NOT NULL,
    reviewed_at DATETIME NOT NULL,
    quality INTEGER NOT NULL,
    repetitions INTEGER NOT NULL,
    ef REAL NOT NULL,
    interval_days REAL NOT NULL,
    next_review DATETIME NOT NULL
);

-- The 'sources' table tracks where imported cards come from, either a
-- local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    path TEXT NOT NULL,
    type TEXT NOT NULL,
    last_scanned DATETIME,

    UNIQUE(user_id, path),
    FOREIGN KEY(user_id) REFERENCES users(id)
);
`
