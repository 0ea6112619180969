// Package sqlhistory holds the relational layout of the structured log and
// the ent SQL builders shared by the database-backed drivers.
//
// Every statement runs through an ent dialect.ExecQuerier, so the same
// queries serve a driver connection and a transaction opened on it.
package sqlhistory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/papercomputeco/switchyard/pkg/storage"
	"github.com/papercomputeco/switchyard/pkg/vector"
)

const (
	// HistoryTableName is the table of conversation records.
	HistoryTableName = "history"

	// MetaTableName is the key/value table holding store settings.
	MetaTableName = "history_meta"

	dimensionsKey = "dimensions"
)

var (
	// HistoryColumns holds the columns for the "history" table.
	HistoryColumns = []*schema.Column{
		{Name: "seq", Type: field.TypeInt64},
		{Name: "role", Type: field.TypeEnum, Enums: []string{string(storage.RoleUser), string(storage.RoleAgent)}},
		{Name: "content", Type: field.TypeString, Size: math.MaxInt32},
		{Name: "embedding", Type: field.TypeBytes},
	}
	// HistoryTable holds the schema information for the "history" table.
	HistoryTable = &schema.Table{
		Name:       HistoryTableName,
		Columns:    HistoryColumns,
		PrimaryKey: []*schema.Column{HistoryColumns[0]},
	}

	// MetaColumns holds the columns for the "history_meta" table.
	MetaColumns = []*schema.Column{
		{Name: "key", Type: field.TypeString},
		{Name: "value", Type: field.TypeString},
	}
	// MetaTable holds the schema information for the "history_meta" table.
	MetaTable = &schema.Table{
		Name:       MetaTableName,
		Columns:    MetaColumns,
		PrimaryKey: []*schema.Column{MetaColumns[0]},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		HistoryTable,
		MetaTable,
	}
)

// Migrate creates or updates Tables on drv.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("preparing migration: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Queries builds and runs the structured log statements for one dialect.
type Queries struct {
	builder *entsql.DialectBuilder

	// inline reports whether embeddings are stored in the history table.
	// Drivers with a dedicated vector table keep them elsewhere.
	inline bool
}

// NewQueries returns Queries for the named ent dialect. When inline is set,
// Insert and Turns read and write the embedding column of the history table.
func NewQueries(dialectName string, inline bool) *Queries {
	return &Queries{
		builder: entsql.Dialect(dialectName),
		inline:  inline,
	}
}

// NextSeq returns the sequence id the next record will be stored under:
// one past the largest stored id, or 1 for an empty log.
func (q *Queries) NextSeq(ctx context.Context, ex dialect.ExecQuerier) (int64, error) {
	query, args := q.builder.
		Select(entsql.Max("seq")).
		From(q.builder.Table(HistoryTableName)).
		Query()

	rows := &entsql.Rows{}
	if err := ex.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("allocating sequence id: %w", err)
	}
	defer rows.Close()

	var last sql.NullInt64
	if err := entsql.ScanOne(rows, &last); err != nil {
		return 0, fmt.Errorf("allocating sequence id: %w", err)
	}

	return last.Int64 + 1, nil
}

// Insert stores rec. The embedding is written only for inline Queries.
func (q *Queries) Insert(ctx context.Context, ex dialect.ExecQuerier, rec storage.Record, embedding []float32) error {
	insert := q.builder.
		Insert(HistoryTableName).
		Columns("seq", "role", "content").
		Values(rec.Seq, string(rec.Role), rec.Content)
	if q.inline {
		insert.Set("embedding", storage.SerializeFloat32(embedding))
	}

	query, args := insert.Query()
	if err := ex.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("inserting record %d: %w", rec.Seq, err)
	}
	return nil
}

// History returns every record in sequence order.
func (q *Queries) History(ctx context.Context, ex dialect.ExecQuerier) ([]storage.Record, error) {
	turns, err := q.scan(ctx, ex, false)
	if err != nil {
		return nil, err
	}

	records := make([]storage.Record, len(turns))
	for i, t := range turns {
		records[i] = t.Record
	}
	return records, nil
}

// Turns returns every record with its inline embedding in sequence order.
// It is only meaningful for inline Queries.
func (q *Queries) Turns(ctx context.Context, ex dialect.ExecQuerier) ([]storage.Turn, error) {
	if !q.inline {
		return nil, errors.New("embeddings are not stored in the history table")
	}
	return q.scan(ctx, ex, true)
}

func (q *Queries) scan(ctx context.Context, ex dialect.ExecQuerier, withEmbeddings bool) ([]storage.Turn, error) {
	columns := []string{"seq", "role", "content"}
	if withEmbeddings {
		columns = append(columns, "embedding")
	}

	query, args := q.builder.
		Select(columns...).
		From(q.builder.Table(HistoryTableName)).
		OrderBy(entsql.Asc("seq")).
		Query()

	rows := &entsql.Rows{}
	if err := ex.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	turns := make([]storage.Turn, 0)
	for rows.Next() {
		var (
			t    storage.Turn
			role string
			blob []byte
		)

		dest := []any{&t.Seq, &role, &t.Content}
		if withEmbeddings {
			dest = append(dest, &blob)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		t.Role = storage.Role(role)

		if withEmbeddings {
			if len(blob) == 0 {
				return nil, storage.MissingEmbeddingError{Seq: t.Seq}
			}
			emb, err := storage.DeserializeFloat32(blob)
			if err != nil {
				return nil, fmt.Errorf("decoding embedding %d: %w", t.Seq, err)
			}
			t.Embedding = emb
		}

		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}

	return turns, nil
}

// EnsureDimensions records dims for a new store, or verifies that an
// existing store was created with the same dimensions.
func (q *Queries) EnsureDimensions(ctx context.Context, ex dialect.ExecQuerier, dims int) error {
	query, args := q.builder.
		Insert(MetaTableName).
		Columns("key", "value").
		Values(dimensionsKey, strconv.Itoa(dims)).
		OnConflict(entsql.ConflictColumns("key"), entsql.DoNothing()).
		Query()
	if err := ex.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("storing dimensions: %w", err)
	}

	query, args = q.builder.
		Select("value").
		From(q.builder.Table(MetaTableName)).
		Where(entsql.EQ("key", dimensionsKey)).
		Query()

	rows := &entsql.Rows{}
	if err := ex.Query(ctx, query, args, rows); err != nil {
		return fmt.Errorf("reading dimensions: %w", err)
	}
	defer rows.Close()

	stored, err := entsql.ScanString(rows)
	if err != nil {
		return fmt.Errorf("reading dimensions: %w", err)
	}

	n, err := strconv.Atoi(stored)
	if err != nil {
		return fmt.Errorf("parsing stored dimensions %q: %w", stored, err)
	}

	if n != dims {
		return fmt.Errorf("opening store: %w", vector.DimensionMismatchError{Want: n, Got: dims})
	}

	return nil
}

// DeleteAll removes every record, keeping the stored settings.
func (q *Queries) DeleteAll(ctx context.Context, ex dialect.ExecQuerier) error {
	query, args := q.builder.Delete(HistoryTableName).Query()
	if err := ex.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("deleting history: %w", err)
	}
	return nil
}
