package execution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Store is the local submission history.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

func OpenStore(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS submissions (
			submission_id TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			state TEXT NOT NULL,
			dry_run INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_submissions_state_updated ON submissions(state, updated_at DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init history schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(sub Submission) error {
	if strings.TrimSpace(sub.SubmissionID) == "" {
		return fmt.Errorf("save submission: missing submission id")
	}
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock history: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	createdUnix, _ := parseRFC3339Unix(sub.CreatedAt)
	updatedUnix, _ := parseRFC3339Unix(sub.UpdatedAt)
	if createdUnix == 0 {
		createdUnix = time.Now().UTC().Unix()
	}
	if updatedUnix == 0 {
		updatedUnix = time.Now().UTC().Unix()
	}
	dryRun := 0
	if sub.DryRun {
		dryRun = 1
	}

	_, err = s.db.Exec(`
		INSERT INTO submissions (submission_id, command, state, dry_run, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(submission_id) DO UPDATE SET
			command=excluded.command,
			state=excluded.state,
			dry_run=excluded.dry_run,
			updated_at=excluded.updated_at,
			payload=excluded.payload
	`, sub.SubmissionID, sub.Command, string(sub.State), dryRun, createdUnix, updatedUnix, payload)
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (s *Store) Get(submissionID string) (Submission, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM submissions WHERE submission_id = ?", submissionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("submission not found: %s", submissionID))
		}
		return Submission{}, fmt.Errorf("read submission: %w", err)
	}
	var sub Submission
	if err := json.Unmarshal(payload, &sub); err != nil {
		return Submission{}, fmt.Errorf("decode submission payload: %w", err)
	}
	return sub, nil
}

// List returns the most recently updated submissions, optionally filtered by state.
func (s *Store) List(state string, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if strings.TrimSpace(state) == "" {
		rows, err = s.db.Query("SELECT payload FROM submissions ORDER BY updated_at DESC, rowid DESC LIMIT ?", limit)
	} else {
		rows, err = s.db.Query("SELECT payload FROM submissions WHERE state = ? ORDER BY updated_at DESC, rowid DESC LIMIT ?", state, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]Submission, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		var sub Submission
		if err := json.Unmarshal(payload, &sub); err != nil {
			return nil, fmt.Errorf("decode submission row: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission rows: %w", err)
	}
	return subs, nil
}

func parseRFC3339Unix(v string) (int64, bool) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, false
	}
	return t.UTC().Unix(), true
}
