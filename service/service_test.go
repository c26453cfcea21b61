package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"newtube/video-api/model"
	"newtube/video-api/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeStore is an in-memory object store double. Keys are handed out
// sequentially so tests can assert on exact values.
type fakeStore struct {
	mu      sync.Mutex
	n       int
	objects map[string]bool
	deleted []string

	failUpload bool
	failDelete bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]bool{}}
}

func (f *fakeStore) next() storage.StoredFile {
	f.n++
	key := fmt.Sprintf("k%d", f.n)
	f.objects[key] = true

	return storage.StoredFile{Key: key, URL: "https://files.test/" + key}
}

func (f *fakeStore) UploadFromURL(_ context.Context, urls []string) ([]storage.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failUpload {
		return nil, errors.New("store down")
	}

	files := make([]storage.StoredFile, len(urls))
	for i := range urls {
		files[i] = f.next()
	}

	return files, nil
}

func (f *fakeStore) UploadFile(_ context.Context, _, _ string, _ io.Reader, _ int64) (*storage.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failUpload {
		return nil, errors.New("store down")
	}

	file := f.next()
	return &file, nil
}

func (f *fakeStore) DeleteFiles(_ context.Context, keys []string) storage.CleanupReport {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, keys...)

	if f.failDelete {
		return storage.CleanupReport{Requested: keys, Err: errors.New("store down")}
	}

	for _, k := range keys {
		delete(f.objects, k)
	}

	return storage.CleanupReport{Requested: keys}
}

type fakeProvider struct {
	mu            sync.Mutex
	uploads       int
	deletedAssets []string

	failCreate bool
	failDelete bool
}

func (f *fakeProvider) CreateUpload(context.Context, string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreate {
		return "", "", errors.New("mux down")
	}

	f.uploads++
	return fmt.Sprintf("up%d", f.uploads), "https://upload.test/target", nil
}

func (f *fakeProvider) DeleteAsset(_ context.Context, assetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletedAssets = append(f.deletedAssets, assetID)

	if f.failDelete {
		return errors.New("mux down")
	}

	return nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.Video{}))

	return db
}

func testService(t *testing.T) (*Service, *fakeStore, *fakeProvider) {
	t.Helper()

	store := newFakeStore()
	provider := &fakeProvider{}

	return New(testDB(t), store, provider), store, provider
}

func seedVideo(t *testing.T, db *gorm.DB, v model.Video) model.Video {
	t.Helper()

	if v.ID == "" {
		v.ID = "vid1"
	}
	if v.UserID == "" {
		v.UserID = "user1"
	}
	require.NoError(t, db.Create(&v).Error)

	return v
}

func reload(t *testing.T, db *gorm.DB, id string) *model.Video {
	t.Helper()

	var v model.Video
	require.NoError(t, db.Where("id = ?", id).First(&v).Error)

	return &v
}

func str(s string) *string { return &s }

// Both halves of an artifact pair must always be set or cleared together
func requireConsistentPairs(t *testing.T, v *model.Video) {
	t.Helper()

	require.Equal(t, v.ThumbnailKey == nil, v.ThumbnailURL == nil, "thumbnail pair split")
	require.Equal(t, v.PreviewKey == nil, v.PreviewURL == nil, "preview pair split")
}
