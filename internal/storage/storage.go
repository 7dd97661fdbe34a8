// Package storage provides scratch and persistent file storage. It
// defines the Storage port plus implementations for local disk and S3.
// Remote media references are materialized into the scratch directory;
// local paths pass through untouched.
package storage

import (
	"context"
	"io"
	"net/url"
)

// Storage handles scratch files during captioning and optionally
// uploads finished artifacts to object storage.
type Storage interface {
	// Resolve materializes a media reference as a local path. An
	// http(s) URL is downloaded into the scratch directory; an existing
	// local path is returned as-is. The boolean reports whether the
	// returned path is a scratch copy the caller should clean up.
	Resolve(ctx context.Context, ref string) (path string, scratch bool, err error)

	// FetchText downloads a small text resource, such as a remote
	// subtitle file.
	FetchText(ctx context.Context, rawURL string) (string, error)

	// SaveScratch saves data to a scratch file and returns its path.
	// The name parameter is used as a hint for the filename.
	SaveScratch(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Cleanup removes the specified scratch files. It continues even if
	// some files fail to delete.
	Cleanup(ctx context.Context, paths []string) error

	// Upload pushes data to object storage and returns the public URL.
	// Returns ErrS3NotConfigured when no bucket is configured.
	Upload(ctx context.Context, key string, data io.Reader) (url string, err error)
}

// IsURL reports whether ref is an absolute http or https URL.
func IsURL(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
