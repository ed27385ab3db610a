package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no document.
var ErrNotFound = errors.New("storage: key not found")

// Store is the key-value port used to persist JSON workspace documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Key builds the document key of a user under a store name.
func Key(storeName, userID string) string {
	return storeName + ":" + userID
}
