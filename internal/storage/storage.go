// Package storage keeps uploaded documents until a worker classifies them.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/doc-classifier/internal/common"
)

// Scheme is the URL scheme of blobs held by LocalStore.
const Scheme = "local"

// BlobStore stores uploads and hands them back as local files.
type BlobStore interface {
	// Put writes r under key and returns the blob URL.
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	// Fetch resolves a blob URL to a readable local path. cleanup must be called when done.
	Fetch(ctx context.Context, blobURL string) (localPath string, cleanup func(), err error)
	Ping(ctx context.Context) error
}

// UploadKey is the key layout for uploaded documents.
func UploadKey(taskID, filename string) string {
	return path.Join("uploads", taskID, filepath.Base(filename))
}

// LocalStore keeps blobs under root/bucket on the local filesystem.
type LocalStore struct {
	root   string
	bucket string
	logger *slog.Logger
}

func NewLocalStore(root, bucket string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bucket == "" || strings.ContainsAny(bucket, `/\`) {
		return nil, common.NewAppError("STORAGE_ERROR", fmt.Sprintf("invalid bucket %q", bucket), common.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, common.NewAppError("STORAGE_ERROR", "resolve root", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, bucket), 0o755); err != nil {
		return nil, common.NewAppError("STORAGE_ERROR", "create bucket dir", err)
	}
	return &LocalStore{root: abs, bucket: bucket, logger: logger}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := s.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", storageErr("create blob dir", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return "", storageErr("create temp blob", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", storageErr("write blob", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", storageErr("commit blob", err)
	}

	u := (&url.URL{Scheme: Scheme, Host: s.bucket, Path: "/" + key}).String()
	s.logger.Debug("blob stored", "url", u, "bytes", n)
	return u, nil
}

func (s *LocalStore) Fetch(ctx context.Context, blobURL string) (string, func(), error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	u, err := url.Parse(blobURL)
	if err != nil || u.Scheme != Scheme {
		return "", nil, common.NewAppError("STORAGE_ERROR", fmt.Sprintf("unsupported blob url %q", blobURL), common.ErrInvalidInput)
	}
	if u.Host != s.bucket {
		return "", nil, common.NewAppError("STORAGE_ERROR", fmt.Sprintf("unknown bucket %q", u.Host), common.ErrNotFound)
	}
	p, err := s.pathFor(strings.TrimPrefix(u.Path, "/"))
	if err != nil {
		return "", nil, err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", nil, common.NewAppError("STORAGE_ERROR", "blob "+blobURL, common.ErrNotFound)
		}
		return "", nil, storageErr("stat blob", err)
	}
	// blobs are already local, nothing to release
	return p, func() {}, nil
}

func (s *LocalStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st, err := os.Stat(filepath.Join(s.root, s.bucket))
	if err != nil {
		return storageErr("stat bucket", err)
	}
	if !st.IsDir() {
		return storageErr("bucket is not a directory", nil)
	}
	return nil
}

// pathFor maps a key to a file under the bucket, rejecting keys that escape it.
func (s *LocalStore) pathFor(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", common.NewAppError("STORAGE_ERROR", fmt.Sprintf("invalid key %q", key), common.ErrInvalidInput)
	}
	return filepath.Join(s.root, s.bucket, filepath.FromSlash(clean)), nil
}

func storageErr(msg string, cause error) error {
	if cause == nil {
		return common.NewAppError("STORAGE_ERROR", msg, common.ErrStorage)
	}
	return common.NewAppError("STORAGE_ERROR", msg, fmt.Errorf("%w: %v", common.ErrStorage, cause))
}
