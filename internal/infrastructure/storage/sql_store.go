package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	newsTable = "news"
)

var newsColumns = []string{"id", "title", "url", "published_at", "status", "last_error"}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS news (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		published_at BIGINT NOT NULL,
		status TEXT NOT NULL,
		last_error TEXT,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS news_status_published_idx ON news (status, published_at)`,
}

// SQLStore persists items in SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.StatusStore = (*SQLStore)(nil)

// Open connects to the configured database and applies the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*SQLStore, error) {
	driver := normalizeDriver(cfg.Driver)
	sqlDriver := driver
	if driver == DriverPostgres {
		sqlDriver = "pgx"
	}

	db, err := sql.Open(sqlDriver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", driver)
	}
	if driver == DriverSQLite {
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
			if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
				_ = db.Close()
				return nil, errors.Wrapf(execErr, "apply pragma %q", pragma)
			}
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s database", driver)
	}

	store := New(db, driver)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing connection.
func New(db *sql.DB, driver string) *SQLStore {
	driver = normalizeDriver(driver)
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if driver == DriverPostgres {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &SQLStore{db: db, driver: driver, builder: builder, now: time.Now}
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the schema if needed.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "apply schema")
		}
	}
	return nil
}

// List returns items in any of statuses, oldest publication first.
func (s *SQLStore) List(ctx context.Context, statuses []domain.Status) ([]domain.Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}

	query, args, err := s.builder.
		Select(newsColumns...).
		From(newsTable).
		Where(sq.Eq{"status": values}).
		OrderBy("published_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build list query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query items")
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows iteration")
	}
	return items, nil
}

// Get loads a single item.
func (s *SQLStore) Get(ctx context.Context, id string) (domain.Item, error) {
	query, args, err := s.builder.
		Select(newsColumns...).
		From(newsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Item{}, errors.Wrap(err, "build get query")
	}

	item, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, errors.Wrapf(ports.ErrNotFound, "item %s", id)
	}
	return item, err
}

// Insert adds a new item; it reports false when the id already exists.
func (s *SQLStore) Insert(ctx context.Context, item domain.Item) (bool, error) {
	if item.Status == "" {
		item.Status = domain.StatusNew
	}
	query, args, err := s.builder.
		Insert(newsTable).
		Columns(append(newsColumns, "updated_at")...).
		Values(item.ID, item.Title, item.URL, item.PublishedAt.UnixMilli(), string(item.Status),
			nullableString(item.LastError), s.now().UnixMilli()).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "build insert")
	}

	affected, err := s.execAffected(ctx, query, args...)
	if err != nil {
		return false, errors.Wrapf(err, "insert item %s", item.ID)
	}
	return affected > 0, nil
}

// Transition moves id from -> to only if it is still in from.
func (s *SQLStore) Transition(ctx context.Context, id string, from, to domain.Status, lastError string) error {
	query, args, err := s.builder.
		Update(newsTable).
		Set("status", string(to)).
		Set("last_error", nullableString(lastError)).
		Set("updated_at", s.now().UnixMilli()).
		Where(sq.Eq{"id": id, "status": string(from)}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build transition")
	}

	affected, err := s.execAffected(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "transition %s %s -> %s", id, from, to)
	}
	if affected > 0 {
		return nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return errors.Wrapf(ports.ErrStaleStatus, "item %s is %s, expected %s", id, current.Status, from)
}

// Counts groups items by status.
func (s *SQLStore) Counts(ctx context.Context) (map[domain.Status]int, error) {
	query, args, err := s.builder.
		Select("status", "COUNT(1)").
		From(newsTable).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build counts query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query counts")
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, "scan count")
		}
		counts[domain.Status(status)] = n
	}
	return counts, errors.Wrap(rows.Err(), "rows iteration")
}

func scanItem(row interface{ Scan(dest ...any) error }) (domain.Item, error) {
	var (
		item        domain.Item
		status      string
		publishedAt int64
		lastError   sql.NullString
	)
	if err := row.Scan(&item.ID, &item.Title, &item.URL, &publishedAt, &status, &lastError); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, err
		}
		return domain.Item{}, errors.Wrap(err, "scan item")
	}
	item.PublishedAt = time.UnixMilli(publishedAt).UTC()
	item.Status = domain.Status(status)
	item.LastError = lastError.String
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
