package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for the storage package.
var ProviderSet = wire.NewSet(NewStorage)

// Supported provider names.
const (
	ProviderMinio  = "minio"
	ProviderS3     = "s3"
	ProviderMemory = "memory"
)

// Conf holds the storage backend configuration.
type Conf struct {
	Provider  string
	AccessKey string
	SecretKey string
	Endpoint  string
	Bucket    string
	Region    string
	UseTLS    bool
	BasePath  string
}

// NewStorage creates a storage provider instance from configuration.
func NewStorage(c *Conf) (Provider, error) {
	switch c.Provider {
	case ProviderMinio:
		return newMinio(c)
	case ProviderS3:
		return newS3(c)
	case ProviderMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %q", c.Provider)
	}
}

// getFullPath joins the configured base path with the object name.
func getFullPath(basePath, objectName string) string {
	if basePath == "" {
		return objectName
	}
	return path.Join(strings.TrimSuffix(basePath, "/"), objectName)
}
