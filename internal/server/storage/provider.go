// Package storage is the object-storage client. Provider hides whether
// objects go to Backblaze B2 (through its S3-compatible API) or stay in
// process memory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tenantdrive/internal/server/config"
)

// ErrUploadNotFound is wrapped into provider errors about a multipart upload
// that does not exist, or no longer does.
var ErrUploadNotFound = errors.New("no such upload")

// UploadTarget is where a client sends bytes, and the token it must present.
// Headers lists request headers that were signed into UploadURL and must be
// sent with the PUT.
type UploadTarget struct {
	UploadURL          string            `json:"uploadUrl"`
	AuthorizationToken string            `json:"authorizationToken"`
	Headers            map[string]string `json:"headers,omitempty"`
}

// LargeFile identifies a multipart upload, or once finished, the object it produced.
type LargeFile struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

// DownloadAuthorization lets a client fetch one object for a limited time.
type DownloadAuthorization struct {
	AuthorizationToken string `json:"authorizationToken"`
	DownloadURL        string `json:"downloadUrl"`
}

// Provider is the object-storage API. Every error it returns matches
// common.ErrorStorageProvider and carries the provider's own message.
type Provider interface {
	GetUploadURL(ctx context.Context) (*UploadTarget, error)
	StartLargeFile(ctx context.Context, fileName, contentType string) (*LargeFile, error)
	GetUploadPartURL(ctx context.Context, fileID string, partNumber int, partSha1 string) (*UploadTarget, error)
	FinishLargeFile(ctx context.Context, fileID string, partSha1s []string) (*LargeFile, error)
	CancelLargeFile(ctx context.Context, fileID string) (bool, error)
	GetDownloadAuthorization(ctx context.Context, fileName string, validFor time.Duration) (*DownloadAuthorization, error)
	DeleteFileVersion(ctx context.Context, fileID, fileName string) error
}

// New returns the provider selected by cfg.StorageType.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.StorageType {
	case config.BackendMemory:
		return NewMemoryProvider(), nil
	case config.BackendS3:
		return NewS3Provider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
}
