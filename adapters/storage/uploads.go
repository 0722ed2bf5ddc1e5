package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain/repositories"
)

// DiskUploadStore keeps uploaded recordings in a directory on local disk.
//
// With retain set to zero every upload is deleted as soon as it has been
// read. With retain N > 0 read uploads stay on disk and the directory is
// pruned to the N most recently modified files.
//
// The directory is shared by concurrent requests, so a file vanishing between
// listing and removal is expected and ignored.
type DiskUploadStore struct {
	dir    string
	retain int
	logger *zap.Logger
}

var _ repositories.UploadStore = (*DiskUploadStore)(nil)

// NewDiskUploadStore creates dir if needed.
func NewDiskUploadStore(dir string, retain int, logger *zap.Logger) (*DiskUploadStore, error) {
	if dir == "" {
		return nil, errors.New("upload directory is required")
	}
	if retain < 0 {
		return nil, fmt.Errorf("retain must not be negative, got %d", retain)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &DiskUploadStore{
		dir:    dir,
		retain: retain,
		logger: logger,
	}, nil
}

// Dir returns the upload directory.
func (s *DiskUploadStore) Dir() string {
	return s.dir
}

// Retain returns how many uploads are kept after reading.
func (s *DiskUploadStore) Retain() int {
	return s.retain
}

// Save implements UploadStore
func (s *DiskUploadStore) Save(ctx context.Context, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, uuid.NewString())

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		s.remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	if err := file.Close(); err != nil {
		s.remove(path)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}

	return path, nil
}

// Consume implements UploadStore. Without retention the file is removed right
// after reading, before the caller does anything else with the bytes.
func (s *DiskUploadStore) Consume(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)

	if s.retain == 0 {
		s.remove(path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read upload file: %w", err)
	}
	return data, nil
}

// Prune implements UploadStore
func (s *DiskUploadStore) Prune(ctx context.Context, keep int) (int, error) {
	files, err := s.list()
	if err != nil {
		return 0, err
	}
	if len(files) <= keep {
		return 0, nil
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	deleted := 0
	for _, f := range files[keep:] {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if s.remove(f.path) {
			deleted++
		}
	}
	return deleted, nil
}

// SweepOlderThan deletes uploads last modified before now-maxAge.
func (s *DiskUploadStore) SweepOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	files, err := s.list()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if f.modTime.Before(cutoff) && s.remove(f.path) {
			deleted++
		}
	}
	return deleted, nil
}

type uploadFile struct {
	path    string
	modTime time.Time
}

func (s *DiskUploadStore) list() ([]uploadFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload directory: %w", err)
	}

	files := make([]uploadFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed by a concurrent request
			continue
		}
		files = append(files, uploadFile{
			path:    filepath.Join(s.dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}
	return files, nil
}

// remove deletes path and reports whether this call removed it.
func (s *DiskUploadStore) remove(path string) bool {
	err := os.Remove(path)
	if err == nil {
		return true
	}
	if !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Failed to remove upload file",
			zap.String("path", path),
			zap.Error(err))
	}
	return false
}
