package storage

import (
	"context"
)

// Provider is the artifact content backend. Retention enforcement is
// logical and lives in the artifact manager; Delete is only called when
// a backend object is physically reclaimed.
type Provider interface {
	PutObject(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	GetObject(ctx context.Context, storageRef string) ([]byte, error)
	Delete(ctx context.Context, storageRef string) error
}
