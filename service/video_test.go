package service

import (
	"context"
	"strings"
	"testing"

	"newtube/video-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateVideo(t *testing.T) {
	s, _, _ := testService(t)

	video, uploadURL, err := s.CreateVideo(context.Background(), "user1")
	require.NoError(t, err)

	assert.Equal(t, "https://upload.test/target", uploadURL)
	assert.Equal(t, "Untitled", video.Title)
	assert.Equal(t, model.VisibilityPrivate, video.Visibility)
	assert.Equal(t, "waiting", video.MuxStatus)
	assert.Equal(t, "up1", video.MuxUploadID)

	got := reload(t, s.DB, video.ID)
	assert.Equal(t, "up1", got.MuxUploadID)
}

func TestCreateVideoProviderDownLeavesNoRow(t *testing.T) {
	s, _, provider := testService(t)
	provider.failCreate = true

	_, _, err := s.CreateVideo(context.Background(), "user1")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	var count int64
	require.NoError(t, s.DB.Model(model.Video{}).Count(&count).Error)
	assert.Zero(t, count, "no waiting-forever rows without a correlation id")
}

func TestUpdateVideoMetadata(t *testing.T) {
	s, _, _ := testService(t)

	v := seedVideo(t, s.DB, model.Video{Title: "Untitled"})

	got, err := s.UpdateVideo(context.Background(), v.ID, v.UserID, VideoUpdate{
		Title:       str("My video"),
		Description: str("about things"),
		Visibility:  str(model.VisibilityPublic),
	})
	require.NoError(t, err)
	assert.Equal(t, "My video", got.Title)

	fresh := reload(t, s.DB, v.ID)
	assert.Equal(t, "My video", fresh.Title)
	assert.Equal(t, "about things", fresh.Description)
	assert.Equal(t, model.VisibilityPublic, fresh.Visibility)
}

func TestUpdateVideoNotOwned(t *testing.T) {
	s, _, _ := testService(t)

	v := seedVideo(t, s.DB, model.Video{})

	_, err := s.UpdateVideo(context.Background(), v.ID, "someone-else", VideoUpdate{Title: str("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteVideoCascades(t *testing.T) {
	s, store, provider := testService(t)

	v := seedVideo(t, s.DB, model.Video{
		MuxAssetID:   "A1",
		ThumbnailKey: str("t1"),
		ThumbnailURL: str("https://files.test/t1"),
		PreviewKey:   str("p1"),
		PreviewURL:   str("https://files.test/p1"),
	})

	require.NoError(t, s.DeleteVideo(context.Background(), v.ID, v.UserID))

	assert.ElementsMatch(t, []string{"t1", "p1"}, store.deleted)
	assert.Equal(t, []string{"A1"}, provider.deletedAssets)

	err := s.DB.Where("id = ?", v.ID).First(&model.Video{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteVideoWithoutArtifactsSkipsStore(t *testing.T) {
	s, store, _ := testService(t)

	v := seedVideo(t, s.DB, model.Video{})

	require.NoError(t, s.DeleteVideo(context.Background(), v.ID, v.UserID))
	assert.Empty(t, store.deleted)

	err := s.DB.Where("id = ?", v.ID).First(&model.Video{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteVideoSurvivesExternalFailures(t *testing.T) {
	s, store, provider := testService(t)
	store.failDelete = true
	provider.failDelete = true

	v := seedVideo(t, s.DB, model.Video{
		MuxAssetID:   "A1",
		ThumbnailKey: str("t1"),
		ThumbnailURL: str("https://files.test/t1"),
	})

	require.NoError(t, s.DeleteVideo(context.Background(), v.ID, v.UserID))

	// Row gone even though both external deletes failed
	err := s.DB.Where("id = ?", v.ID).First(&model.Video{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteVideoNotOwned(t *testing.T) {
	s, _, _ := testService(t)

	v := seedVideo(t, s.DB, model.Video{})

	err := s.DeleteVideo(context.Background(), v.ID, "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestoreThumbnail(t *testing.T) {
	s, store, _ := testService(t)

	v := seedVideo(t, s.DB, model.Video{
		MuxPlaybackID: "P1",
		ThumbnailKey:  str("old"),
		ThumbnailURL:  str("https://files.test/old"),
	})

	got, err := s.RestoreThumbnail(context.Background(), v.ID, v.UserID)
	require.NoError(t, err)

	assert.Equal(t, "k1", *got.ThumbnailKey)
	assert.Equal(t, []string{"old"}, store.deleted)

	fresh := reload(t, s.DB, v.ID)
	requireConsistentPairs(t, fresh)
	assert.Equal(t, "k1", *fresh.ThumbnailKey)
}

func TestReplaceThumbnailClearsBeforeUpload(t *testing.T) {
	s, store, _ := testService(t)

	v := seedVideo(t, s.DB, model.Video{
		ThumbnailKey: str("old"),
		ThumbnailURL: str("https://files.test/old"),
	})

	stored, err := s.ReplaceThumbnail(context.Background(), v.ID, v.UserID,
		"thumb.png", "image/png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)

	fresh := reload(t, s.DB, v.ID)
	requireConsistentPairs(t, fresh)
	assert.Equal(t, stored.Key, *fresh.ThumbnailKey)
	assert.Contains(t, store.deleted, "old")
	assert.NotContains(t, store.deleted, stored.Key)
}
