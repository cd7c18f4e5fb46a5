// Package docstore is the uniform surface over the remote document database.
// Services never touch the Firestore client directly: they speak this
// interface, which also has a disabled no-op form (no credentials configured)
// and an in-memory form used by tests.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrDisabled is returned by every operation of the disabled store.
	// Callers treat it as "operation did not happen", never as a failure
	// worth surfacing to the user.
	ErrDisabled = errors.New("docstore: backend not configured")

	// ErrNotFound is returned by Update/Delete on a missing document.
	// Get reports absence as (false, nil) instead.
	ErrNotFound = errors.New("docstore: document not found")
)

// Filter is a single field predicate. Op is one of "==", "!=", "<", "<=",
// ">", ">=", "array-contains".
type Filter struct {
	Field string
	Op    string
	Value any
}

// Query addresses a collection by slash-separated path.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Desc       bool
	Limit      int
}

// Doc is one query result. Decode unmarshals the document body into out.
type Doc struct {
	ID     string
	decode func(out any) error
}

func (d Doc) Decode(out any) error { return d.decode(out) }

// WriteOp is one operation of an atomic batch. Exactly one of Value, Fields
// or Delete is used.
type WriteOp struct {
	Path   string
	Value  any
	Fields map[string]any
	Delete bool
}

// Tx is the view inside RunTransaction. Reads must come before writes.
type Tx interface {
	Get(path string, out any) (bool, error)
	Docs(q Query) ([]Doc, error)
	Set(path string, value any) error
	Update(path string, fields map[string]any) error
	Delete(path string) error
}

// Store is the document database contract. Paths are slash-separated, with
// an even number of segments for documents and odd for collections, mirroring
// the remote layout (users/{uid}/rooms/{roomId}, challenges/{id}, ...).
type Store interface {
	Get(ctx context.Context, path string, out any) (bool, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	Batch(ctx context.Context, ops []WriteOp) error
	Query(ctx context.Context, q Query) ([]Doc, error)
	Subscribe(ctx context.Context, q Query, onChange func(docs []Doc)) (stop func(), err error)
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// Update sentinels. The Firestore store translates these to its native
// primitives; the memory store implements the same semantics directly.

type arrayUnionValue struct{ Values []any }

// ArrayUnion appends values to an array field without re-reading the
// document, skipping values already present.
func ArrayUnion(values ...any) any { return arrayUnionValue{Values: values} }

type incrementValue struct{ N int64 }

// Increment atomically adds n to a numeric field.
func Increment(n int64) any { return incrementValue{N: n} }

type serverTimestampValue struct{}

// ServerTimestamp writes the store's own clock into the field.
func ServerTimestamp() any { return serverTimestampValue{} }
