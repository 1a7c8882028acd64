package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	site TEXT NOT NULL,
	resolution TEXT NOT NULL,
	kind TEXT NOT NULL,
	message TEXT NOT NULL,
	payload JSON,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_site ON outcomes(site, resolution, created_at);
CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
`

// SQLiteSink persists outcomes into a SQLite database.
type SQLiteSink struct {
	mu   sync.Mutex
	db   *sql.DB
	stmt *sql.Stmt
	now  func() time.Time
}

// OpenSQLite opens or creates the outcome database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, Error.New("open sqlite %s: %v", dbPath, err)
	}
	// one writer; parallel runs queue on the mutex instead of SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, Error.Wrap(err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, Error.New("create schema: %v", err)
	}
	stmt, err := db.Prepare(`
		INSERT INTO outcomes (run_id, site, resolution, kind, message, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = db.Close()
		return nil, Error.Wrap(err)
	}
	return &SQLiteSink{db: db, stmt: stmt, now: time.Now}, nil
}

// Report implements Sink.
func (s *SQLiteSink) Report(ctx context.Context, o Outcome) error {
	var payload []byte
	if o.Payload != nil {
		var err error
		payload, err = json.Marshal(o.Payload)
		if err != nil {
			return Error.New("encode %s payload: %v", o.Kind, err)
		}
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.stmt.ExecContext(ctx,
		o.RunID,
		o.Site,
		o.Resolution,
		string(o.Kind),
		o.Message,
		payload,
		o.CreatedAt.UnixNano(),
	)
	return Error.Wrap(err)
}

// Close releases the database.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.stmt.Close()
	return Error.Wrap(s.db.Close())
}
