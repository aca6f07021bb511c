package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"floorplan/internal/planner/document"
)

var ErrNotFound = errors.New("plan not found")

//go:embed migrations/*.sql
var migrations embed.FS

// ============================================================
// SQLite Repository
// ============================================================

// Plan is a stored document snapshot.
type Plan struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Snapshot  document.Snapshot `json:"snapshot"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Summary is a Plan without its snapshot.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Init applies the embedded migrations in file name order.
func (r *Repository) Init(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save inserts or replaces the plan and returns its update time.
func (r *Repository) Save(ctx context.Context, id string, snap document.Snapshot) (time.Time, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode snapshot: %w", err)
	}
	updated := r.now().UTC()
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO plans (id, name, snapshot, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            snapshot = excluded.snapshot,
            updated_at = excluded.updated_at
    `, id, snap.Name, string(data), updated.Format(time.RFC3339Nano))
	if err != nil {
		return time.Time{}, fmt.Errorf("save plan %s: %w", id, err)
	}
	return updated, nil
}

func (r *Repository) Load(ctx context.Context, id string) (*Plan, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, snapshot, updated_at
        FROM plans
        WHERE id = ?
    `, id)

	var (
		p       Plan
		data    string
		updated string
	)
	if err := row.Scan(&p.ID, &p.Name, &data, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &p.Snapshot); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", id, err)
	}
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return nil, fmt.Errorf("plan %s updated_at: %w", id, err)
	}
	p.UpdatedAt = t
	return &p, nil
}

// List returns plan summaries, most recently updated first.
func (r *Repository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, updated_at
        FROM plans
        ORDER BY updated_at DESC, id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var updated string
		if err := rows.Scan(&s.ID, &s.Name, &updated); err != nil {
			return nil, err
		}
		if s.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("plan %s updated_at: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// OpenSQLite opens the sqlite database at dbPath, creating its directory.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
