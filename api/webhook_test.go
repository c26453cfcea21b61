package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"newtube/video-api/middleware"
	"newtube/video-api/model"
	"newtube/video-api/mux"
	"newtube/video-api/service"
	"newtube/video-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "whsec-test"

type stubStore struct {
	n       int
	deleted []string
	fail    bool
}

func (s *stubStore) UploadFromURL(_ context.Context, urls []string) ([]storage.StoredFile, error) {
	if s.fail {
		return nil, errors.New("store down")
	}

	files := make([]storage.StoredFile, len(urls))
	for i := range urls {
		s.n++
		key := fmt.Sprintf("k%d", s.n)
		files[i] = storage.StoredFile{Key: key, URL: "https://files.test/" + key}
	}

	return files, nil
}

func (s *stubStore) UploadFile(context.Context, string, string, io.Reader, int64) (*storage.StoredFile, error) {
	return nil, errors.New("not used")
}

func (s *stubStore) DeleteFiles(_ context.Context, keys []string) storage.CleanupReport {
	s.deleted = append(s.deleted, keys...)
	return storage.CleanupReport{Requested: keys}
}

type stubProvider struct{}

func (stubProvider) CreateUpload(context.Context, string) (string, string, error) {
	return "up1", "https://upload.test/target", nil
}

func (stubProvider) DeleteAsset(context.Context, string) error { return nil }

func testAPI(t *testing.T) (*API, *stubStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.Video{}))

	store := &stubStore{}

	a := &API{
		DB:            db,
		Videos:        service.New(db, store, stubProvider{}),
		webhookSecret: testSecret,
	}

	router := gin.New()
	router.Use(middleware.NewRequestIDMiddleware())
	router.POST("/api/mux/webhook", a.MuxWebhook)
	a.Router = router

	return a, store
}

func deliver(a *API, body []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/mux/webhook", bytes.NewReader(body))
	if header != "" {
		req.Header.Set(mux.SignatureHeader, header)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	return w
}

func signed(body []byte) string {
	return mux.Sign(body, testSecret, time.Now())
}

func TestWebhookMissingSignature(t *testing.T) {
	a, _ := testAPI(t)

	w := deliver(a, []byte(`{"type":"video.asset.created","data":{"upload_id":"U"}}`), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookBadSignature(t *testing.T) {
	a, _ := testAPI(t)

	body := []byte(`{"type":"video.asset.created","data":{"upload_id":"U"}}`)
	w := deliver(a, body, mux.Sign(body, "wrong-secret", time.Now()))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookUnparsableBody(t *testing.T) {
	a, _ := testAPI(t)

	body := []byte(`not json`)
	w := deliver(a, body, signed(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookUnknownTypeAcknowledged(t *testing.T) {
	a, _ := testAPI(t)

	body := []byte(`{"type":"video.asset.shiny.new","data":{}}`)
	w := deliver(a, body, signed(body))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookLifecycle(t *testing.T) {
	a, store := testAPI(t)

	require.NoError(t, a.DB.Create(&model.Video{
		ID:          "vid1",
		UserID:      "user1",
		MuxUploadID: "U",
		MuxStatus:   "waiting",
	}).Error)

	// created
	body := []byte(`{"type":"video.asset.created","data":{"id":"A1","upload_id":"U","status":"preparing"}}`)
	w := deliver(a, body, signed(body))
	require.Equal(t, http.StatusOK, w.Code)

	var v model.Video
	require.NoError(t, a.DB.First(&v, "id = ?", "vid1").Error)
	assert.Equal(t, "A1", v.MuxAssetID)
	assert.Equal(t, "preparing", v.MuxStatus)

	// ready
	ready := []byte(`{"type":"video.asset.ready","data":{"id":"A1","upload_id":"U","status":"ready","duration":12.5,"playback_ids":[{"id":"P1"}]}}`)
	w = deliver(a, ready, signed(ready))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, a.DB.First(&v, "id = ?", "vid1").Error)
	assert.Equal(t, "P1", v.MuxPlaybackID)
	assert.Equal(t, int64(12500), v.DurationMS)
	require.NotNil(t, v.ThumbnailKey)
	require.NotNil(t, v.ThumbnailURL)
	require.NotNil(t, v.PreviewKey)
	require.NotNil(t, v.PreviewURL)

	firstThumb, firstPreview := *v.ThumbnailKey, *v.PreviewKey

	// duplicate ready delivery, keys rotate but stay consistent
	w = deliver(a, ready, signed(ready))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, a.DB.First(&v, "id = ?", "vid1").Error)
	require.NotNil(t, v.ThumbnailKey)
	require.NotNil(t, v.PreviewKey)
	assert.NotEqual(t, firstThumb, *v.ThumbnailKey)
	assert.ElementsMatch(t, []string{firstThumb, firstPreview}, store.deleted)

	// deleted
	deleted := []byte(`{"type":"video.asset.deleted","data":{"upload_id":"U"}}`)
	w = deliver(a, deleted, signed(deleted))
	require.Equal(t, http.StatusOK, w.Code)

	err := a.DB.First(&model.Video{}, "id = ?", "vid1").Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWebhookMalformedReady(t *testing.T) {
	a, store := testAPI(t)

	require.NoError(t, a.DB.Create(&model.Video{
		ID:          "vid1",
		UserID:      "user1",
		MuxUploadID: "U",
		MuxStatus:   "preparing",
	}).Error)

	body := []byte(`{"type":"video.asset.ready","data":{"id":"A1","upload_id":"U","status":"ready"}}`)
	w := deliver(a, body, signed(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var v model.Video
	require.NoError(t, a.DB.First(&v, "id = ?", "vid1").Error)
	assert.Equal(t, "preparing", v.MuxStatus)
	assert.Nil(t, v.ThumbnailKey)
	assert.Zero(t, store.n)
}

func TestWebhookTransientFailureSignalsRetry(t *testing.T) {
	a, store := testAPI(t)
	store.fail = true

	require.NoError(t, a.DB.Create(&model.Video{
		ID:          "vid1",
		UserID:      "user1",
		MuxUploadID: "U",
	}).Error)

	body := []byte(`{"type":"video.asset.ready","data":{"id":"A1","upload_id":"U","status":"ready","playback_ids":[{"id":"P1"}]}}`)
	w := deliver(a, body, signed(body))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
