// Package storage abstracts the object store holding derived video artifacts
// (thumbnails, animated previews). Implementations are key-addressed: every
// stored object comes back as a stable key plus a public URL.
package storage

import (
	"context"
	"io"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type StoredFile struct {
	Key string
	URL string
}

// CleanupReport is the advisory result of a best-effort delete. Callers only
// ever inspect it for logging. A failed cleanup never fails the operation
// that requested it because the database is the correctness boundary and a
// dangling object is recoverable, a dangling DB reference is not.
type CleanupReport struct {
	Requested []string
	Err       error
}

func (r CleanupReport) Log() {
	if r.Err == nil || len(r.Requested) == 0 {
		return
	}

	zap.L().Warn("Artifact cleanup failed",
		zap.Strings("keys", r.Requested),
		zap.Error(r.Err),
	)
}

type Store interface {
	// UploadFromURL fetches each source URL and stores the bytes under a new
	// key. Results are order-preserving, one per input URL.
	UploadFromURL(ctx context.Context, urls []string) ([]StoredFile, error)

	// UploadFile stores raw bytes, used for user-supplied thumbnails
	UploadFile(ctx context.Context, name, contentType string, body io.Reader, size int64) (*StoredFile, error)

	// DeleteFiles removes keys best-effort. Partial failure does not fail
	// the caller, the report carries whatever went wrong.
	DeleteFiles(ctx context.Context, keys []string) CleanupReport
}

// New picks the configured implementation
func New() (Store, error) {
	if viper.GetString("storage.type") == "s3" {
		return NewS3()
	}

	return NewUploadThing(), nil
}
