package fs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tendant/coauthors/pkg/coauthors"
)

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Directory avatar images are read from
	URLPrefix string // Public URL prefix the directory is served under
}

// Backend serves avatar images from a local directory
type Backend struct {
	baseDir   string
	urlPrefix string
}

var _ coauthors.BlobStore = (*Backend)(nil)

// New creates a filesystem backend. BaseDir must exist.
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	info, err := os.Stat(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", config.BaseDir)
	}
	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimRight(config.URLPrefix, "/"),
	}, nil
}

// GetDownloadURL returns the public URL for a file under BaseDir
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string) (string, error) {
	clean := path.Clean("/" + objectKey)[1:]
	if clean == "" {
		return "", &coauthors.StorageError{Backend: "fs", Key: objectKey, Op: "download_url", Err: errors.New("empty key")}
	}

	if _, err := os.Stat(filepath.Join(b.baseDir, filepath.FromSlash(clean))); err != nil {
		return "", &coauthors.StorageError{Backend: "fs", Key: objectKey, Op: "download_url", Err: err}
	}

	segments := strings.Split(clean, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.urlPrefix + "/" + strings.Join(segments, "/"), nil
}
