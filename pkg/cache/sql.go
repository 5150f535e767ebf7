package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/Sternrassler/dav-paginator/pkg/logging"
	"github.com/Sternrassler/dav-paginator/pkg/record"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// TableName is the table holding result rows.
const TableName = "dav_page_cache"

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url_hash TEXT NOT NULL,
	token TEXT NOT NULL,
	insert_time INTEGER NOT NULL,
	result_index INTEGER NOT NULL,
	result_value TEXT NOT NULL,
	UNIQUE (url_hash, token, result_index)
)`
	createIndexSQL = `CREATE INDEX IF NOT EXISTS ` + TableName + `_insert_time ON ` + TableName + ` (insert_time)`

	insertRowSQL = `INSERT INTO ` + TableName + ` (url_hash, token, insert_time, result_index, result_value) VALUES (?, ?, ?, ?, ?)`

	selectPageSQL = `SELECT result_index, result_value FROM ` + TableName + `
WHERE url_hash = ? AND token = ? AND insert_time >= ? AND result_index >= ? AND result_index < ?
ORDER BY result_index`

	existsSQL = `SELECT 1 FROM ` + TableName + ` WHERE url_hash = ? AND token = ? AND insert_time >= ? LIMIT 1`

	deleteSetSQL     = `DELETE FROM ` + TableName + ` WHERE url_hash = ? AND token = ?`
	deleteExpiredSQL = `DELETE FROM ` + TableName + ` WHERE insert_time < ?`
	deleteAllSQL     = `DELETE FROM ` + TableName
)

// OpenSQLite opens (or creates) a SQLite database file for the page cache.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// SQLCache stores result sets as rows of a relational table.
type SQLCache struct {
	db     *sql.DB
	config Config
	logger zerolog.Logger
}

// NewSQLCache creates a page cache on db. Call Migrate before first use.
func NewSQLCache(db *sql.DB, cfg Config) *SQLCache {
	if db == nil {
		panic("sql db cannot be nil")
	}
	cfg = cfg.withDefaults()
	return &SQLCache{
		db:     db,
		config: cfg,
		logger: cfg.Logger.With().Str(logging.FieldBackend, backendSQL).Logger(),
	}
}

// Migrate creates the table and its indexes if they do not exist.
func (c *SQLCache) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createTableSQL, createIndexSQL} {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", TableName, err)
		}
	}
	return nil
}

// sqlBatchSize is the number of rows written per transaction.
const sqlBatchSize = 100

// Store implements Cache. Rows are buffered and written in batches, each in
// its own short transaction, so no write lock is held while records is
// enumerated. On failure the rows written so far are deleted.
func (c *SQLCache) Store(ctx context.Context, key string, records iter.Seq2[record.Record, error]) (string, int, error) {
	token, err := c.config.Tokens.Token()
	if err != nil {
		Errors.WithLabelValues(backendSQL, "store").Inc()
		return "", 0, err
	}
	hash := HashKey(key)
	now := c.config.Clock.Now().Unix()

	count, err := c.storeRows(ctx, hash, token, now, records)
	if err != nil {
		Errors.WithLabelValues(backendSQL, "store").Inc()
		c.discard(ctx, hash, token)
		return "", 0, err
	}

	RowsStored.WithLabelValues(backendSQL).Add(float64(count))
	logging.ResultSet(c.logger, hash, token).Debug().
		Int(logging.FieldCount, count).
		Msg("Result set stored")

	return token, count, nil
}

func (c *SQLCache) storeRows(ctx context.Context, hash, token string, now int64, records iter.Seq2[record.Record, error]) (int, error) {
	batch := make([]string, 0, sqlBatchSize)
	count := 0
	for rec, err := range records {
		if err != nil {
			return count, fmt.Errorf("enumerate record %d: %w", count, err)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return count, fmt.Errorf("marshal record %d: %w", count, err)
		}
		batch = append(batch, string(data))
		count++
		if len(batch) == sqlBatchSize {
			if err := c.insertBatch(ctx, hash, token, now, count-len(batch), batch); err != nil {
				return count, err
			}
			batch = batch[:0]
		}
	}
	if err := c.insertBatch(ctx, hash, token, now, count-len(batch), batch); err != nil {
		return count, err
	}
	return count, nil
}

// insertBatch writes values as rows first, first+1, ... in one transaction.
func (c *SQLCache) insertBatch(ctx context.Context, hash, token string, now int64, first int, values []string) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRowSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, hash, token, now, first+i, v); err != nil {
			return fmt.Errorf("insert record %d: %w", first+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// discard removes the rows of a failed store. It runs even if ctx is done.
func (c *SQLCache) discard(ctx context.Context, hash, token string) {
	if _, err := c.db.ExecContext(context.WithoutCancel(ctx), deleteSetSQL, hash, token); err != nil {
		Errors.WithLabelValues(backendSQL, "discard").Inc()
		logging.ResultSet(c.logger, hash, token).Warn().
			Err(err).
			Msg("Partial result set not removed")
	}
}

// Get implements Cache.
func (c *SQLCache) Get(ctx context.Context, key, token string, offset, count int) ([]record.Record, error) {
	if offset < 0 {
		offset = 0
	}
	out := make([]record.Record, 0)
	if count <= 0 {
		return out, nil
	}
	count = clampCount(offset, count)

	hash := HashKey(key)
	cutoff := expiryCutoff(c.config.Clock.Now(), c.config.TTL)

	rows, err := c.db.QueryContext(ctx, selectPageSQL, hash, token, cutoff, offset, offset+count)
	if err != nil {
		Errors.WithLabelValues(backendSQL, "get").Inc()
		return nil, fmt.Errorf("select page: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		row := Row{URLHash: hash, Token: token}
		if err := rows.Scan(&row.Index, &row.Value); err != nil {
			Errors.WithLabelValues(backendSQL, "get").Inc()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec, err := decodeRow(row)
		if err != nil {
			Errors.WithLabelValues(backendSQL, "decode").Inc()
			logging.ResultSet(c.logger, hash, token).Warn().
				Err(err).
				Int("index", row.Index).
				Msg("Corrupt cache row")
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		Errors.WithLabelValues(backendSQL, "get").Inc()
		return nil, fmt.Errorf("iterate page: %w", err)
	}

	if len(out) == 0 {
		Misses.WithLabelValues(backendSQL).Inc()
	} else {
		RowsServed.WithLabelValues(backendSQL).Add(float64(len(out)))
	}
	logging.ResultSet(c.logger, hash, token).Debug().
		Int(logging.FieldOffset, offset).
		Int(logging.FieldCount, len(out)).
		Msg("Page read")

	return out, nil
}

// Exists implements Cache. An empty result set stores no rows and therefore
// never exists.
func (c *SQLCache) Exists(ctx context.Context, key, token string) (bool, error) {
	cutoff := expiryCutoff(c.config.Clock.Now(), c.config.TTL)

	var one int
	err := c.db.QueryRowContext(ctx, existsSQL, HashKey(key), token, cutoff).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		Errors.WithLabelValues(backendSQL, "exists").Inc()
		return false, fmt.Errorf("check token: %w", err)
	}
	return true, nil
}

// Cleanup implements Cache.
func (c *SQLCache) Cleanup(ctx context.Context) (int64, error) {
	start := time.Now()
	cutoff := expiryCutoff(c.config.Clock.Now(), c.config.TTL)

	res, err := c.db.ExecContext(ctx, deleteExpiredSQL, cutoff)
	if err != nil {
		Errors.WithLabelValues(backendSQL, "cleanup").Inc()
		return 0, fmt.Errorf("delete expired rows: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		Errors.WithLabelValues(backendSQL, "cleanup").Inc()
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	CleanupDeleted.WithLabelValues(backendSQL).Add(float64(deleted))
	if deleted > 0 {
		c.logger.Info().
			Int64("deleted", deleted).
			Dur(logging.FieldDuration, time.Since(start)).
			Msg("Expired rows deleted")
	}
	return deleted, nil
}

// Clear implements Cache.
func (c *SQLCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, deleteAllSQL); err != nil {
		Errors.WithLabelValues(backendSQL, "clear").Inc()
		return fmt.Errorf("clear %s: %w", TableName, err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (c *SQLCache) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
