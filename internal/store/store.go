// Package store defines the remote document store port: a string-keyed
// single-document-per-user mirror of the serialized ledger. The in-memory
// state stays authoritative; a store is an eventually-consistent copy where
// the last writer wins for the whole document.
package store

import (
	"context"
	"errors"
)

// ErrNoDocument is returned by Get when the key has never been written.
var ErrNoDocument = errors.New("document not found")

// DocumentStore is the outbound port for remote ledger persistence.
type DocumentStore interface {
	// Get fetches the document stored under key, or ErrNoDocument.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put overwrites the document under key wholesale.
	Put(ctx context.Context, key string, doc []byte) error
	// Delete removes the document under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error
}
