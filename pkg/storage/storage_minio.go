package storage

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStorage struct {
	Client *minio.Client
	c      *Conf
}

func newMinio(c *Conf) (*MinioStorage, error) {
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseTLS,
	})
	if err != nil {
		return nil, err
	}

	return &MinioStorage{
		Client: client,
		c:      c,
	}, nil
}

func (m *MinioStorage) PutObject(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	fullPath := getFullPath(m.c.BasePath, objectName)
	_, err := m.Client.PutObject(ctx, m.c.Bucket, fullPath, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return fullPath, nil
}

func (m *MinioStorage) GetObject(ctx context.Context, storageRef string) ([]byte, error) {
	obj, err := m.Client.GetObject(ctx, m.c.Bucket, storageRef, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *MinioStorage) Delete(ctx context.Context, storageRef string) error {
	return m.Client.RemoveObject(ctx, m.c.Bucket, storageRef, minio.RemoveObjectOptions{})
}
