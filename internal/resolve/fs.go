package resolve

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/viant/afs"
)

// FileInfo is the subset of file metadata the resolver needs.
type FileInfo struct {
	Exists bool
	IsDir  bool
}

// FileSystem is the read-only view of the project the resolver reads.
type FileSystem interface {
	Stat(ctx context.Context, path string) (FileInfo, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// afsFileSystem implements FileSystem on top of viant/afs, so local paths and
// any afs-supported URL scheme can back a run.
type afsFileSystem struct {
	svc afs.Service
}

// NewFileSystem returns the default afs-backed FileSystem.
func NewFileSystem() FileSystem {
	return &afsFileSystem{svc: afs.New()}
}

func (f *afsFileSystem) Stat(ctx context.Context, path string) (FileInfo, error) {
	ok, err := f.svc.Exists(ctx, path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("exists %s: %w", path, err)
	}
	if !ok {
		return FileInfo{}, nil
	}
	obj, err := f.svc.Object(ctx, path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return FileInfo{Exists: true, IsDir: obj.IsDir()}, nil
}

func (f *afsFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := f.svc.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// cachedFileSystem memoizes stat results and file contents for one run.
// The lru caches are safe for concurrent use by resolution workers.
type cachedFileSystem struct {
	next  FileSystem
	stats *lru.Cache[string, FileInfo]
	files *lru.Cache[string, []byte]
}

func newCachedFileSystem(next FileSystem, size int) (*cachedFileSystem, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	stats, err := lru.New[string, FileInfo](size)
	if err != nil {
		return nil, fmt.Errorf("stat cache: %w", err)
	}
	files, err := lru.New[string, []byte](max(size/4, 16))
	if err != nil {
		return nil, fmt.Errorf("file cache: %w", err)
	}
	return &cachedFileSystem{next: next, stats: stats, files: files}, nil
}

func (c *cachedFileSystem) Stat(ctx context.Context, path string) (FileInfo, error) {
	if info, ok := c.stats.Get(path); ok {
		return info, nil
	}
	info, err := c.next.Stat(ctx, path)
	if err != nil {
		return FileInfo{}, err
	}
	c.stats.Add(path, info)
	return info, nil
}

func (c *cachedFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if data, ok := c.files.Get(path); ok {
		return data, nil
	}
	data, err := c.next.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	c.files.Add(path, data)
	return data, nil
}
