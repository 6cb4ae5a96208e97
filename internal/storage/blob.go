package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidKey = errors.New("invalid blob key")

// BlobStore archives raw uploads such as imported question files.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// ImportKey names an archived upload: imports/YYYY/MM/DD/<uuid>-<base name>.
func ImportKey(filename string, at time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return path.Join("imports", at.UTC().Format("2006/01/02"), uuid.NewString()+"-"+base)
}

// cleanKey rejects absolute keys and keys that climb out of the store root.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	k := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if strings.HasPrefix(k, "/") || k == ".." || strings.HasPrefix(k, "../") || k == "." {
		return "", ErrInvalidKey
	}
	return k, nil
}
