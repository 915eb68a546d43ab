// Package docstore provides a schemaless, collection-keyed document store
// backed by SQLite, MySQL or PostgreSQL.
//
// Documents are JSON objects addressed by (collection, id). The store offers
// only key-level operations plus a single-field equality query with ordering;
// it enforces no access rules of its own.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
)

// Fields is the body of a document. time.Time values are stored in a
// fixed-width UTC layout so that ordering on them is chronological.
type Fields map[string]any

// Store is the document store contract consumed by the service layers.
type Store interface {
	// Create stores fields under a freshly generated id and returns it.
	// The id is also written into the document under the "id" field.
	Create(ctx context.Context, collection string, fields Fields) (string, error)
	// CreateWithID stores fields under id. It fails with apperr.ErrAlreadyExists
	// when the key is taken.
	CreateWithID(ctx context.Context, collection, id string, fields Fields) error
	// Get returns the document or apperr.ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Snapshot, error)
	// Query returns all documents of collection matching q.
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	// Update merges patch into the stored document (top-level keys replace).
	Update(ctx context.Context, collection, id string, patch Fields) error
	// Delete removes the document or returns apperr.ErrNotFound.
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// Snapshot is a document read from the store.
type Snapshot struct {
	ID  string
	raw []byte
}

// DataTo decodes the document into v.
func (s *Snapshot) DataTo(v any) error {
	if err := json.Unmarshal(s.raw, v); err != nil {
		return fmt.Errorf("docstore: decode %s: %w", s.ID, err)
	}
	return nil
}

// Direction orders query results.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Query is an equality filter on one field plus an optional ordering field.
// Ties are broken by document id in the same direction.
type Query struct {
	field   string
	value   string
	orderBy string
	dir     Direction
}

// Where starts a query matching documents whose field equals value.
func Where(field, value string) Query {
	return Query{field: field, value: value}
}

// OrderBy sets the ordering field.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.orderBy = field
	q.dir = dir
	return q
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validField(name string) error {
	if !fieldPattern.MatchString(name) {
		return fmt.Errorf("docstore: invalid field name %q", name)
	}
	return nil
}

func (q Query) validate() error {
	if q.field != "" {
		if err := validField(q.field); err != nil {
			return err
		}
	}
	if q.orderBy != "" {
		return validField(q.orderBy)
	}
	return nil
}
