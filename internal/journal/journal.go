// Package journal persists the projections of failures observed by the
// service so they can be listed and counted later.
package journal

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/guardkit/guard/internal/journal/migrations"
	"github.com/guardkit/guard/internal/platform/sqlite"
	"github.com/guardkit/guard/pkg/guard"
)

// List page sizes.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Entry is one recorded failure.
type Entry struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Name      string         `json:"name"`
	Code      guard.Code     `json:"code"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// GuardError rebuilds the guard error the entry was recorded from, minus its cause.
func (e Entry) GuardError() *guard.Error {
	return guard.New(e.Message, guard.WithCode(e.Code), guard.WithMeta(e.Meta))
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Code   guard.Code
	Source string
	Limit  int
}

// Journal is a failure store backed by SQLite. It is safe for concurrent use.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// Open opens the database at path (sqlite.MemoryPath for a throwaway store)
// and brings its schema up to date.
func Open(ctx context.Context, path string, opts ...Option) (*Journal, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultOptions())
	if err != nil {
		return nil, storageError("open", err)
	}
	j, err := New(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// New wraps an open database, applying migrations first.
func New(db *sql.DB, opts ...Option) (*Journal, error) {
	if err := sqlite.Migrate(db, migrations.FS, "."); err != nil {
		return nil, storageError("migrate", err)
	}
	j := &Journal{db: db, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close releases the database.
func (j *Journal) Close() error { return j.db.Close() }

// Record stores the projection of err under source. A nil err is recorded as
// the normalized fallback error.
func (j *Journal) Record(ctx context.Context, source string, err *guard.Error) (Entry, error) {
	if err == nil {
		err = guard.Normalize(nil)
	}
	p := err.Projection()
	e := Entry{
		ID:        uuid.NewString(),
		Source:    source,
		Name:      p.Name,
		Code:      p.Code,
		Message:   p.Message,
		Meta:      p.Meta,
		CreatedAt: j.now().UTC(),
	}

	var meta sql.NullString
	if len(e.Meta) > 0 {
		b, mErr := json.Marshal(e.Meta)
		if mErr != nil {
			return Entry{}, storageError("encode meta", mErr)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	_, dbErr := j.db.ExecContext(ctx,
		`INSERT INTO failures (id, source, name, code, message, meta, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.Name, string(e.Code), e.Message, meta, e.CreatedAt.UnixNano(),
	)
	if dbErr != nil {
		return Entry{}, storageError("record", dbErr)
	}
	return e, nil
}

// List returns matching entries, newest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Code != "" && !f.Code.Valid() {
		return nil, guard.New("unknown error code",
			guard.WithCode(guard.CodeValidation),
			guard.WithMetaKV("code", string(f.Code)),
		)
	}

	var (
		where []string
		args  []any
	)
	if f.Code != "" {
		where = append(where, "code = ?")
		args = append(args, string(f.Code))
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}

	q := `SELECT id, source, name, code, message, meta, created_at FROM failures`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq DESC LIMIT ?"
	args = append(args, clampLimit(f.Limit))

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageError("list", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			code    string
			meta    sql.NullString
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Name, &code, &e.Message, &meta, &created); err != nil {
			return nil, storageError("scan", err)
		}
		e.Code = guard.Code(code)
		e.CreatedAt = time.Unix(0, created).UTC()
		if meta.Valid {
			if err := json.Unmarshal([]byte(meta.String), &e.Meta); err != nil {
				return nil, storageError("decode meta", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list", err)
	}
	return entries, nil
}

// CountByCode returns how many failures were recorded per code. Codes with no
// entries are absent.
func (j *Journal) CountByCode(ctx context.Context) (map[guard.Code]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT code, COUNT(*) FROM failures GROUP BY code`)
	if err != nil {
		return nil, storageError("count", err)
	}
	defer rows.Close()

	counts := make(map[guard.Code]int)
	for rows.Next() {
		var (
			code string
			n    int
		)
		if err := rows.Scan(&code, &n); err != nil {
			return nil, storageError("scan", err)
		}
		counts[guard.Code(code)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("count", err)
	}
	return counts, nil
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

func storageError(op string, err error) *guard.Error {
	return guard.Errorf(guard.CodeInternal, "journal: %s: %w", op, err)
}
