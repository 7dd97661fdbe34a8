package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrS3NotConfigured is returned when upload is attempted without
// object storage configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// maxTextFetch bounds remote subtitle downloads.
const maxTextFetch = 10 << 20

// LocalStorage implements the Storage port on local disk. Remote
// references are downloaded into a scratch directory; uploads are not
// supported unless wrapped with S3Storage.
type LocalStorage struct {
	scratchDir string
	httpClient *http.Client
}

// NewLocalStorage creates a LocalStorage rooted at scratchDir, creating
// the directory if needed. An empty scratchDir defaults to a
// captionflow directory under os.TempDir().
func NewLocalStorage(scratchDir string) (*LocalStorage, error) {
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "captionflow")
	}

	if err := os.MkdirAll(scratchDir, 0750); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}

	return &LocalStorage{
		scratchDir: scratchDir,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

// ScratchDir returns the scratch directory path.
func (s *LocalStorage) ScratchDir() string {
	return s.scratchDir
}

// Resolve materializes a media reference as a local path. URLs are
// downloaded to scratch; existing local paths pass through.
func (s *LocalStorage) Resolve(ctx context.Context, ref string) (string, bool, error) {
	if !IsURL(ref) {
		if _, err := os.Stat(ref); err != nil {
			return "", false, fmt.Errorf("media path %s: %w", ref, err)
		}
		return ref, false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", false, fmt.Errorf("build download request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("download media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("download media: unexpected status %s", resp.Status)
	}

	name := "media"
	if base := filepath.Base(req.URL.Path); base != "." && base != "/" && base != "" {
		name = base
	}
	path, err := s.SaveScratch(ctx, name, resp.Body)
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// FetchText downloads a small text resource such as a remote subtitle
// file.
func (s *LocalStorage) FetchText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch text: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch text: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTextFetch))
	if err != nil {
		return "", fmt.Errorf("read text body: %w", err)
	}
	return string(body), nil
}

// SaveScratch saves data to a scratch file and returns the file path.
// The name is used as a base for the filename with a unique suffix.
func (s *LocalStorage) SaveScratch(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	// Keep the extension so downstream tools can sniff the format.
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	f, err := os.CreateTemp(s.scratchDir, base+"_*"+ext)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write scratch file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close scratch file: %w", err)
	}

	return fileName, nil
}

// Cleanup removes the specified scratch files. It continues even if
// some files fail to delete, returning the first error encountered.
func (s *LocalStorage) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove scratch file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Upload is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) Upload(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
