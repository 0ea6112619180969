// Package sqlite provides a SQLite-backed storage driver. Records live in a
// plain history table and their embeddings in a sqlite-vec vec0 virtual table
// keyed by the same sequence id, so both are written in one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/switchyard/pkg/logger"
	"github.com/papercomputeco/switchyard/pkg/storage"
	"github.com/papercomputeco/switchyard/pkg/storage/sqlhistory"
)

// Driver implements storage.Driver using SQLite with sqlite-vec. The history
// statements are built with ent's SQL dialect; the vec0 table has no ent
// counterpart and is addressed directly.
type Driver struct {
	drv        *entsql.Driver
	queries    *sqlhistory.Queries
	dimensions int
	logger     *slog.Logger
}

// Config holds configuration for the SQLite driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// It must match the value the database was created with.
	Dimensions int
}

// NewDriver opens (creating if needed) the SQLite database at c.DBPath.
// A nil log discards driver logs.
func NewDriver(ctx context.Context, c Config, log *slog.Logger) (*Driver, error) {
	log = logger.OrNop(log)

	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	if c.Dimensions <= 0 {
		return nil, errors.New("sqlite embedding dimensions must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite serializes writers anyway, and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	d := &Driver{
		drv:        entsql.OpenDB(dialect.SQLite, db),
		queries:    sqlhistory.NewQueries(dialect.SQLite, false),
		dimensions: c.Dimensions,
		logger:     log,
	}

	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := d.queries.EnsureDimensions(ctx, d.drv, d.dimensions); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("sqlite storage driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return d, nil
}

func (d *Driver) migrate(ctx context.Context) error {
	// vec0 virtual tables are outside what ent's migrator can inspect, so the
	// SQLite layout is created with plain DDL matching sqlhistory.Tables.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS history (
			seq     INTEGER PRIMARY KEY,
			role    TEXT NOT NULL CHECK (role IN ('user', 'agent')),
			content TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS history_vec USING vec0(embedding float[%d])`, d.dimensions),
	}

	for _, stmt := range stmts {
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}

	return nil
}

// Append stores a record and its embedding under the next sequence id.
func (d *Driver) Append(ctx context.Context, role storage.Role, content string, embedding []float32) (storage.Record, error) {
	if err := storage.CheckEmbedding(role, embedding, d.dimensions); err != nil {
		return storage.Record{}, err
	}

	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return storage.Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := d.queries.NextSeq(ctx, tx)
	if err != nil {
		return storage.Record{}, err
	}

	rec := storage.Record{Seq: seq, Role: role, Content: content}
	if err := d.queries.Insert(ctx, tx, rec, nil); err != nil {
		return storage.Record{}, err
	}

	if err := tx.Exec(ctx,
		`INSERT INTO history_vec(rowid, embedding) VALUES (?, ?)`,
		[]any{seq, storage.SerializeFloat32(embedding)}, nil,
	); err != nil {
		return storage.Record{}, fmt.Errorf("inserting embedding %d: %w", seq, err)
	}

	if err := tx.Commit(); err != nil {
		return storage.Record{}, fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("appended record to sqlite",
		"seq", seq,
		"role", role,
	)

	return rec, nil
}

// History returns every record in sequence order.
func (d *Driver) History(ctx context.Context) ([]storage.Record, error) {
	return d.queries.History(ctx, d.drv)
}

// Turns returns every record with its stored embedding in sequence order.
func (d *Driver) Turns(ctx context.Context) ([]storage.Turn, error) {
	// Collect records first so the cursor is closed before issuing the
	// embedding lookups (the pool holds a single connection).
	records, err := d.History(ctx)
	if err != nil {
		return nil, err
	}

	turns := make([]storage.Turn, 0, len(records))
	for _, rec := range records {
		blob, err := d.embedding(ctx, rec.Seq)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.MissingEmbeddingError{Seq: rec.Seq}
		}
		if err != nil {
			return nil, fmt.Errorf("reading embedding %d: %w", rec.Seq, err)
		}

		emb, err := storage.DeserializeFloat32(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding %d: %w", rec.Seq, err)
		}

		turns = append(turns, storage.Turn{Record: rec, Embedding: emb})
	}

	return turns, nil
}

func (d *Driver) embedding(ctx context.Context, seq int64) ([]byte, error) {
	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, `SELECT embedding FROM history_vec WHERE rowid = ?`, []any{seq}, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var blob []byte
	if err := entsql.ScanOne(rows, &blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// Dimensions returns the embedding size.
func (d *Driver) Dimensions() int {
	return d.dimensions
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.drv.Close()
}

var _ storage.Driver = (*Driver)(nil)
