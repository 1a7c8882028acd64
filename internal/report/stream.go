package report

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Filter narrows Stream to matching outcomes. Empty fields match all.
type Filter struct {
	RunID      string
	Site       string
	Resolution string
	Kind       Kind
}

func (f Filter) where() (string, []any) {
	var clauses []string
	var args []any
	add := func(col, v string) {
		if v != "" {
			clauses = append(clauses, col+" = ?")
			args = append(args, v)
		}
	}
	add("run_id", f.RunID)
	add("site", f.Site)
	add("resolution", f.Resolution)
	add("kind", string(f.Kind))
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Stream calls fn for every stored outcome matching f, oldest first.
// Only one outcome is alive at a time.
func Stream(dbPath string, f Filter, fn func(Outcome) error) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return Error.New("open sqlite %s: %v", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	where, args := f.where()
	rows, err := db.Query(`
		SELECT run_id, site, resolution, kind, message, payload, created_at
		FROM outcomes`+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return Error.New("query outcomes: %v", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var (
			o       Outcome
			kind    string
			payload []byte
			created int64
		)
		if err := rows.Scan(&o.RunID, &o.Site, &o.Resolution, &kind, &o.Message, &payload, &created); err != nil {
			return Error.New("scan outcome: %v", err)
		}
		o.Kind = Kind(kind)
		o.CreatedAt = time.Unix(0, created)
		if len(payload) > 0 {
			o.Payload = json.RawMessage(payload)
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	return Error.Wrap(rows.Err())
}
