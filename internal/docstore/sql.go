package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/scribe/internal/apperr"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB implements Store on top of database/sql.
type DB struct {
	conn    *sql.DB
	dialect *dialect
	newID   func() string
}

var _ Store = (*DB)(nil)

// Open connects to the database for driver, pings it and applies the schema.
func Open(driver, dsn string) (*DB, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	full, err := d.dsn(dsn)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(d.sqlDriver, full)
	if err != nil {
		return nil, fmt.Errorf("docstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}
	if _, err := conn.Exec(d.schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: apply schema: %w", err)
	}
	return &DB{conn: conn, dialect: d, newID: uuid.NewString}, nil
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.dialect.name
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Create stores fields under a generated id.
func (db *DB) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	id := db.newID()
	doc := make(Fields, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	doc["id"] = id
	if err := db.CreateWithID(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID stores fields under id, failing if the key already exists.
func (db *DB) CreateWithID(ctx context.Context, collection, id string, fields Fields) error {
	if collection == "" || id == "" {
		return fmt.Errorf("docstore: collection and id are required")
	}
	data, err := encode(fields)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, db.dialect.insertSQL(), collection, id, string(data))
	if err != nil {
		if db.dialect.duplicate(err) {
			return fmt.Errorf("docstore: create %s/%s: %w", collection, id, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("docstore: create %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get reads a single document.
func (db *DB) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	var data string
	err := db.conn.QueryRowContext(ctx, db.dialect.getSQL(), collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("docstore: get %s/%s: %w", collection, id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("docstore: get %s/%s: %w", collection, id, err)
	}
	return &Snapshot{ID: id, raw: []byte(data)}, nil
}

// Query returns every document in collection matching q.
func (db *DB) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	query, args := db.dialect.querySQL(q)
	rows, err := db.conn.QueryContext(ctx, query, append([]any{collection}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
	}
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("docstore: scan %s: %w", collection, err)
		}
		out = append(out, Snapshot{ID: id, raw: []byte(data)})
	}
	return out, rows.Err()
}

// Update merges patch into an existing document.
func (db *DB) Update(ctx context.Context, collection, id string, patch Fields) error {
	data, err := encode(patch)
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx, db.dialect.updateSQL(), string(data), collection, id)
	if err != nil {
		return fmt.Errorf("docstore: update %s/%s: %w", collection, id, err)
	}
	return requireRow(res, "update", collection, id)
}

// Delete removes a document permanently.
func (db *DB) Delete(ctx context.Context, collection, id string) error {
	res, err := db.conn.ExecContext(ctx, db.dialect.deleteSQL(), collection, id)
	if err != nil {
		return fmt.Errorf("docstore: delete %s/%s: %w", collection, id, err)
	}
	return requireRow(res, "delete", collection, id)
}

func requireRow(res sql.Result, op, collection, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("docstore: %s %s/%s: %w", op, collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("docstore: %s %s/%s: %w", op, collection, id, apperr.ErrNotFound)
	}
	return nil
}
