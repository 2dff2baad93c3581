package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/iconidentify/groupgrab/internal/config"
	"github.com/iconidentify/groupgrab/internal/domain"
)

const tableDownloads = "downloads"

var linkColumns = []string{
	"id", "url", "platform", "group_name", "file_path",
	"file_size", "gdrive_id", "downloaded_at", "uploaded_at",
}

// Dialect describes the SQL differences between supported databases.
type Dialect struct {
	Name        string
	DriverName  string
	Placeholder sq.PlaceholderFormat
	Schema      []string
}

// SQLiteDialect uses the pure Go modernc driver.
var SQLiteDialect = Dialect{
	Name:        config.DriverSQLite,
	DriverName:  "sqlite",
	Placeholder: sq.Question,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT UNIQUE NOT NULL,
			platform TEXT NOT NULL,
			group_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			file_size INTEGER,
			gdrive_id TEXT,
			downloaded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			uploaded_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_url ON downloads(url)`,
	},
}

// PostgresDialect uses pgx through database/sql.
var PostgresDialect = Dialect{
	Name:        config.DriverPostgres,
	DriverName:  "pgx",
	Placeholder: sq.Dollar,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS downloads (
			id BIGSERIAL PRIMARY KEY,
			url TEXT UNIQUE NOT NULL,
			platform TEXT NOT NULL,
			group_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			file_size BIGINT,
			gdrive_id TEXT,
			downloaded_at TIMESTAMPTZ DEFAULT now(),
			uploaded_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_url ON downloads(url)`,
	},
}

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverSQLite, "":
		return SQLiteDialect, nil
	case config.DriverPostgres:
		return PostgresDialect, nil
	default:
		return Dialect{}, fmt.Errorf("%w: unknown database driver %q", domain.ErrConfiguration, driver)
	}
}

// SQLLinkRepository implements LinkRepository on database/sql.
type SQLLinkRepository struct {
	db      *sql.DB
	dialect Dialect
	dsn     string
}

// Open connects to the configured database and initializes the schema.
func Open(ctx context.Context, cfg config.StorageConfig) (*SQLLinkRepository, error) {
	dialect, err := DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DatabaseDSN()
	if dialect.Name == config.DriverSQLite {
		if err := ensureParentDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialect.Name == config.DriverSQLite {
		// A single writer avoids SQLITE_BUSY between the pipeline and the API.
		db.SetMaxOpenConns(1)
	}

	repo := NewSQLLinkRepository(db, dialect)
	repo.dsn = dsn
	if err := repo.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLLinkRepository wraps an open database handle.
func NewSQLLinkRepository(db *sql.DB, dialect Dialect) *SQLLinkRepository {
	return &SQLLinkRepository{db: db, dialect: dialect}
}

// Dialect returns the dialect name.
func (r *SQLLinkRepository) Dialect() string {
	return r.dialect.Name
}

// Init creates the downloads table and its url index.
func (r *SQLLinkRepository) Init(ctx context.Context) error {
	if r.dsn != "" && r.dialect.Name == config.DriverSQLite {
		if err := ensureParentDir(r.dsn); err != nil {
			return err
		}
	}
	for _, stmt := range r.dialect.Schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// IsArchived reports whether a row with exactly this url exists.
func (r *SQLLinkRepository) IsArchived(ctx context.Context, url string) (bool, error) {
	query, args, err := sq.Select("1").
		From(tableDownloads).
		Where(sq.Eq{"url": url}).
		Limit(1).
		PlaceholderFormat(r.dialect.Placeholder).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup url: %w", err)
	}
	return true, nil
}

// RecordArchive inserts a single row. downloaded_at is left to the database.
func (r *SQLLinkRepository) RecordArchive(ctx context.Context, link *domain.ArchivedLink) error {
	if err := link.Validate(); err != nil {
		return err
	}

	query, args, err := sq.Insert(tableDownloads).
		Columns("url", "platform", "group_name", "file_path", "file_size", "gdrive_id").
		Values(link.URL, string(link.Platform), link.GroupName, link.FilePath,
			nullInt64(link.FileSize), nullString(link.RemoteID)).
		PlaceholderFormat(r.dialect.Placeholder).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateArchival, link.URL)
		}
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

// List returns rows newest first.
func (r *SQLLinkRepository) List(ctx context.Context, filter ListFilter) ([]*domain.ArchivedLink, error) {
	builder := applyFilter(sq.Select(linkColumns...).From(tableDownloads), filter).
		OrderBy("id DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.PlaceholderFormat(r.dialect.Placeholder).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var links []*domain.ArchivedLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	return links, nil
}

// Count returns the number of rows matching the filter.
func (r *SQLLinkRepository) Count(ctx context.Context, filter ListFilter) (int, error) {
	query, args, err := applyFilter(sq.Select("COUNT(*)").From(tableDownloads), filter).
		PlaceholderFormat(r.dialect.Placeholder).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count downloads: %w", err)
	}
	return n, nil
}

// Ping checks the connection.
func (r *SQLLinkRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *SQLLinkRepository) Close() error {
	return r.db.Close()
}

func applyFilter(b sq.SelectBuilder, filter ListFilter) sq.SelectBuilder {
	if filter.GroupName != "" {
		b = b.Where(sq.Eq{"group_name": filter.GroupName})
	}
	if filter.Platform != "" {
		b = b.Where(sq.Eq{"platform": string(filter.Platform)})
	}
	return b
}

func scanLink(rows *sql.Rows) (*domain.ArchivedLink, error) {
	var (
		link         domain.ArchivedLink
		platform     string
		groupName    string
		fileSize     sql.NullInt64
		remoteID     sql.NullString
		downloadedAt flexTime
		uploadedAt   flexTime
	)
	if err := rows.Scan(&link.ID, &link.URL, &platform, &groupName, &link.FilePath,
		&fileSize, &remoteID, &downloadedAt, &uploadedAt); err != nil {
		return nil, fmt.Errorf("scan download: %w", err)
	}

	link.Platform = domain.Platform(platform)
	link.GroupName = groupName
	link.RemoteID = remoteID.String
	if fileSize.Valid {
		size := fileSize.Int64
		link.FileSize = &size
	}
	if downloadedAt.Valid {
		link.DownloadedAt = downloadedAt.Time
	}
	if uploadedAt.Valid {
		t := uploadedAt.Time
		link.UploadedAt = &t
	}
	return &link, nil
}

// flexTime scans timestamps that SQLite may hand back as text.
type flexTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func (t *flexTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", value)
	}
}

func (t *flexTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}
	return fmt.Errorf("parse time %q", s)
}

func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func ensureParentDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
