package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/intel-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	type       TEXT NOT NULL DEFAULT '',
	compressed INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS async_requests (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL DEFAULT 'pending',
	company_domain  TEXT NOT NULL,
	request_type    TEXT NOT NULL,
	result          TEXT,
	error           TEXT,
	additional_data TEXT,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL,
	expires_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_type ON cache_entries(type);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
CREATE INDEX IF NOT EXISTS idx_async_requests_status ON async_requests(status);
CREATE INDEX IF NOT EXISTS idx_async_requests_domain ON async_requests(company_domain);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetEntry returns the entry for key, or nil if absent or expired.
// Expiry is lazy: expired rows stay in place until DeleteExpiredEntries.
func (s *SQLiteStore) GetEntry(ctx context.Context, key string) (*model.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, value, type, compressed, created_at, expires_at
		 FROM cache_entries WHERE key = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	)

	var e model.CacheEntry
	var compressed int
	err := row.Scan(&e.Key, &e.Value, &e.Type, &compressed, &e.CreatedAt, &e.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get entry %s", key)
	}
	e.Compressed = compressed != 0
	return &e, nil
}

// SetEntry inserts or overwrites the entry for its key.
func (s *SQLiteStore) SetEntry(ctx context.Context, entry model.CacheEntry) error {
	compressed := 0
	if entry.Compressed {
		compressed = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, type, compressed, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   type = excluded.type,
		   compressed = excluded.compressed,
		   created_at = excluded.created_at,
		   expires_at = excluded.expires_at`,
		entry.Key, entry.Value, entry.Type, compressed, entry.CreatedAt.UTC(), entry.ExpiresAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: set entry %s", entry.Key)
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return eris.Wrapf(err, "sqlite: delete entry %s", key)
}

// ListKeys returns unexpired keys matching the optional glob pattern and
// type tag, newest first.
func (s *SQLiteStore) ListKeys(ctx context.Context, pattern string, limit int, entryType string) ([]string, error) {
	query := `SELECT key FROM cache_entries WHERE expires_at > ?`
	args := []any{time.Now().UTC()}

	if pattern != "" {
		query += ` AND key GLOB ?`
		args = append(args, pattern)
	}
	if entryType != "" {
		query += ` AND type = ?`
		args = append(args, entryType)
	}
	query += ` ORDER BY created_at DESC`

	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan key")
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrap(rows.Err(), "sqlite: list keys iterate")
}

// ClearEntries deletes all entries, or only those with the given type tag.
func (s *SQLiteStore) ClearEntries(ctx context.Context, entryType string) (int, error) {
	query := `DELETE FROM cache_entries`
	var args []any
	if entryType != "" {
		query += ` WHERE type = ?`
		args = append(args, entryType)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear entries")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) DeleteExpiredEntries(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired entries")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) CreateRequest(ctx context.Context, req *model.AsyncRequest, ttlHours int) error {
	resultJSON, additionalJSON, err := marshalRequestFields(req)
	if err != nil {
		return err
	}
	expires := req.CreatedAt.Add(time.Duration(ttlHours) * time.Hour)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO async_requests
		   (id, status, company_domain, request_type, result, error, additional_data, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.RequestID, string(req.Status), req.CompanyDomain, req.RequestType,
		resultJSON, nullable(req.Error), additionalJSON,
		req.CreatedAt.UTC(), req.UpdatedAt.UTC(), expires.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert request %s", req.RequestID)
}

// GetRequest returns the request by ID, or nil if absent or past its TTL.
func (s *SQLiteStore) GetRequest(ctx context.Context, requestID string) (*model.AsyncRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, company_domain, request_type, result, error, additional_data, created_at, updated_at
		 FROM async_requests WHERE id = ? AND expires_at > ?`,
		requestID, time.Now().UTC(),
	)
	req, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get request %s", requestID)
	}
	return req, nil
}

func (s *SQLiteStore) UpdateRequest(ctx context.Context, req *model.AsyncRequest) error {
	resultJSON, additionalJSON, err := marshalRequestFields(req)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE async_requests
		 SET status = ?, result = ?, error = ?, additional_data = ?, updated_at = ?
		 WHERE id = ?`,
		string(req.Status), resultJSON, nullable(req.Error), additionalJSON,
		req.UpdatedAt.UTC(), req.RequestID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update request %s", req.RequestID)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return eris.Errorf("sqlite: request %s not found", req.RequestID)
	}
	return nil
}

func (s *SQLiteStore) ListRequests(ctx context.Context, filter RequestFilter) ([]model.AsyncRequest, error) {
	query := `SELECT id, status, company_domain, request_type, result, error, additional_data, created_at, updated_at
	          FROM async_requests WHERE expires_at > ?`
	args := []any{time.Now().UTC()}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.CompanyDomain != "" {
		query += ` AND company_domain = ?`
		args = append(args, filter.CompanyDomain)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list requests")
	}
	defer rows.Close()

	var reqs []model.AsyncRequest
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan request")
		}
		reqs = append(reqs, *req)
	}
	return reqs, eris.Wrap(rows.Err(), "sqlite: list requests iterate")
}

// marshalRequestFields serializes the JSON-typed columns of a request.
func marshalRequestFields(req *model.AsyncRequest) (result sql.NullString, additional sql.NullString, err error) {
	if req.Result != nil {
		b, merr := json.Marshal(req.Result)
		if merr != nil {
			return result, additional, eris.Wrap(merr, "store: marshal result")
		}
		result = sql.NullString{String: string(b), Valid: true}
	}
	if len(req.AdditionalData) > 0 {
		b, merr := json.Marshal(req.AdditionalData)
		if merr != nil {
			return result, additional, eris.Wrap(merr, "store: marshal additional data")
		}
		additional = sql.NullString{String: string(b), Valid: true}
	}
	return result, additional, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// scanRequest reads a request row via the given scan function, so the same
// decoding serves both QueryRow and Rows.
func scanRequest(scan func(dest ...any) error) (*model.AsyncRequest, error) {
	var req model.AsyncRequest
	var status string
	var result, errStr, additional sql.NullString

	if err := scan(&req.RequestID, &status, &req.CompanyDomain, &req.RequestType,
		&result, &errStr, &additional, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}

	req.Status = model.RequestStatus(status)
	req.Error = errStr.String

	if result.Valid && strings.TrimSpace(result.String) != "" {
		var intel model.Intelligence
		if err := json.Unmarshal([]byte(result.String), &intel); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal result")
		}
		req.Result = &intel
	}
	if additional.Valid && strings.TrimSpace(additional.String) != "" {
		if err := json.Unmarshal([]byte(additional.String), &req.AdditionalData); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal additional data")
		}
	}
	return &req, nil
}
