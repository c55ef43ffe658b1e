package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intel-cli/internal/model"
)

// Pool abstracts the subset of pgxpool.Pool operations the store uses,
// so tests can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	type       TEXT NOT NULL DEFAULT '',
	compressed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS async_requests (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL DEFAULT 'pending',
	company_domain  TEXT NOT NULL,
	request_type    TEXT NOT NULL,
	result          JSONB,
	error           TEXT,
	additional_data JSONB,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	expires_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_type ON cache_entries(type);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
CREATE INDEX IF NOT EXISTS idx_async_requests_status ON async_requests(status);
CREATE INDEX IF NOT EXISTS idx_async_requests_domain ON async_requests(company_domain);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetEntry(ctx context.Context, key string) (*model.CacheEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT key, value, type, compressed, created_at, expires_at
		 FROM cache_entries WHERE key = $1 AND expires_at > now()`,
		key,
	)

	var e model.CacheEntry
	err := row.Scan(&e.Key, &e.Value, &e.Type, &e.Compressed, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get entry %s", key)
	}
	return &e, nil
}

func (s *PostgresStore) SetEntry(ctx context.Context, entry model.CacheEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_entries (key, value, type, compressed, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (key) DO UPDATE SET
		   value = EXCLUDED.value,
		   type = EXCLUDED.type,
		   compressed = EXCLUDED.compressed,
		   created_at = EXCLUDED.created_at,
		   expires_at = EXCLUDED.expires_at`,
		entry.Key, entry.Value, entry.Type, entry.Compressed,
		entry.CreatedAt.UTC(), entry.ExpiresAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: set entry %s", entry.Key)
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key)
	return eris.Wrapf(err, "postgres: delete entry %s", key)
}

func (s *PostgresStore) ListKeys(ctx context.Context, pattern string, limit int, entryType string) ([]string, error) {
	query := `SELECT key FROM cache_entries WHERE expires_at > now()`
	var args []any

	if pattern != "" {
		// Translate glob-style patterns to SQL LIKE.
		like := strings.ReplaceAll(strings.ReplaceAll(pattern, "*", "%"), "?", "_")
		args = append(args, like)
		query += ` AND key LIKE $` + itoa(len(args))
	}
	if entryType != "" {
		args = append(args, entryType)
		query += ` AND type = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrap(err, "postgres: scan key")
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrap(rows.Err(), "postgres: list keys iterate")
}

func (s *PostgresStore) ClearEntries(ctx context.Context, entryType string) (int, error) {
	var tag pgconn.CommandTag
	var err error
	if entryType != "" {
		tag, err = s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE type = $1`, entryType)
	} else {
		tag, err = s.pool.Exec(ctx, `DELETE FROM cache_entries`)
	}
	if err != nil {
		return 0, eris.Wrap(err, "postgres: clear entries")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DeleteExpiredEntries(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired entries")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CreateRequest(ctx context.Context, req *model.AsyncRequest, ttlHours int) error {
	resultJSON, additionalJSON, err := marshalRequestFields(req)
	if err != nil {
		return err
	}
	expires := req.CreatedAt.Add(time.Duration(ttlHours) * time.Hour)
	_, err = s.pool.Exec(ctx,
		`INSERT INTO async_requests
		   (id, status, company_domain, request_type, result, error, additional_data, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		req.RequestID, string(req.Status), req.CompanyDomain, req.RequestType,
		resultJSON, nullable(req.Error), additionalJSON,
		req.CreatedAt.UTC(), req.UpdatedAt.UTC(), expires.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert request %s", req.RequestID)
}

func (s *PostgresStore) GetRequest(ctx context.Context, requestID string) (*model.AsyncRequest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, company_domain, request_type, result, error, additional_data, created_at, updated_at
		 FROM async_requests WHERE id = $1 AND expires_at > now()`,
		requestID,
	)
	req, err := scanRequestPg(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get request %s", requestID)
	}
	return req, nil
}

func (s *PostgresStore) UpdateRequest(ctx context.Context, req *model.AsyncRequest) error {
	resultJSON, additionalJSON, err := marshalRequestFields(req)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE async_requests
		 SET status = $1, result = $2, error = $3, additional_data = $4, updated_at = $5
		 WHERE id = $6`,
		string(req.Status), resultJSON, nullable(req.Error), additionalJSON,
		req.UpdatedAt.UTC(), req.RequestID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update request %s", req.RequestID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: request %s not found", req.RequestID)
	}
	return nil
}

func (s *PostgresStore) ListRequests(ctx context.Context, filter RequestFilter) ([]model.AsyncRequest, error) {
	query := `SELECT id, status, company_domain, request_type, result, error, additional_data, created_at, updated_at
	          FROM async_requests WHERE expires_at > now()`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + itoa(len(args))
	}
	if filter.CompanyDomain != "" {
		args = append(args, filter.CompanyDomain)
		query += ` AND company_domain = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list requests")
	}
	defer rows.Close()

	var reqs []model.AsyncRequest
	for rows.Next() {
		req, err := scanRequestPg(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan request")
		}
		reqs = append(reqs, *req)
	}
	return reqs, eris.Wrap(rows.Err(), "postgres: list requests iterate")
}

// scanRequestPg decodes a request row; shared between QueryRow and Rows.
func scanRequestPg(scan func(dest ...any) error) (*model.AsyncRequest, error) {
	return scanRequest(scan)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
