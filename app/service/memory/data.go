package memory

import "time"

// Record is the persisted conversation state of one thread.
type Record struct {
	ThreadKey      string
	LastResponseID string
	UpdatedAt      time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    thread_key       TEXT NOT NULL UNIQUE,
    last_response_id TEXT NOT NULL,
    updated_at       INTEGER NOT NULL
);
`

const upsertQuery = `
INSERT INTO conversations (thread_key, last_response_id, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(thread_key) DO UPDATE SET
    last_response_id = excluded.last_response_id,
    updated_at = excluded.updated_at
`

const selectQuery = `
SELECT thread_key, last_response_id, updated_at
FROM conversations
WHERE thread_key = ?
`
