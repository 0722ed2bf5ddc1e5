package repositories

import (
	"context"
	"io"
)

// UploadStore keeps uploaded recordings on disk between receipt and reading.
type UploadStore interface {
	// Save writes r to a new temporary file and returns its path.
	Save(ctx context.Context, r io.Reader) (string, error)
	// Consume reads the file at path and disposes of it according to the
	// store's retention policy, whether or not the read succeeded.
	Consume(ctx context.Context, path string) ([]byte, error)
	// Prune deletes all but the keep most recently modified files.
	Prune(ctx context.Context, keep int) (int, error)
}
