package memory

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"mastogpt/app/config"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/do"
	"github.com/samber/oops"
)

var _ do.Shutdownable = (*Service)(nil)

// Service maps thread keys to the last model response id of that thread.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return Open(cfg.Bot.DBPath)
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Service, error) {
	errBuilder := oops.In("memory").With("path", path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errBuilder.Wrapf(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errBuilder.Wrapf(err, "failed to open database")
	}

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, errBuilder.Wrapf(err, "failed to ping database")
	}

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errBuilder.Wrapf(err, "failed to create schema")
	}

	slog.Debug("Conversation store opened", "path", path)

	return &Service{
		db:  db,
		now: time.Now,
	}, nil
}

// LastResponseID returns "" when the thread has no record.
func (s *Service) LastResponseID(ctx context.Context, threadKey string) (string, error) {
	record, err := s.Get(ctx, threadKey)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", nil
	}

	return record.LastResponseID, nil
}

func (s *Service) Get(ctx context.Context, threadKey string) (*Record, error) {
	var (
		record    Record
		updatedAt int64
	)

	err := s.db.QueryRowContext(ctx, selectQuery, threadKey).Scan(&record.ThreadKey, &record.LastResponseID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.In("memory").With("thread_key", threadKey).Wrapf(err, "failed to read conversation")
	}

	record.UpdatedAt = time.Unix(updatedAt, 0)

	return &record, nil
}

// Upsert inserts or replaces the record of threadKey in a single statement.
func (s *Service) Upsert(ctx context.Context, threadKey, responseID string) error {
	_, err := s.db.ExecContext(ctx, upsertQuery, threadKey, responseID, s.now().Unix())
	if err != nil {
		return oops.In("memory").
			With("thread_key", threadKey).
			With("response_id", responseID).
			Wrapf(err, "failed to upsert conversation")
	}

	return nil
}

func (s *Service) Shutdown() error {
	return s.db.Close()
}
