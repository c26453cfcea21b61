package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"newtube/video-api/model"
	"newtube/video-api/storage"

	"gorm.io/gorm"
)

type VideoUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CategoryID  *string `json:"category_id"`
	Visibility  *string `json:"visibility"`
}

// UpdateVideo edits content metadata, owner-scoped
func (s *Service) UpdateVideo(ctx context.Context, videoID, userID string, in VideoUpdate) (*model.Video, error) {
	video, err := s.GetVideo(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.CategoryID != nil {
		updates["category_id"] = *in.CategoryID
	}
	if in.Visibility != nil {
		updates["visibility"] = *in.Visibility
	}

	if len(updates) == 0 {
		return video, nil
	}

	err = s.DB.WithContext(ctx).
		Model(video).
		Updates(updates).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to update video, %w", err)
	}

	return video, nil
}

func (s *Service) GetVideo(ctx context.Context, videoID, userID string) (*model.Video, error) {
	var video model.Video

	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, videoID).
		First(&video).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to look up video, %w", err)
	}

	return &video, nil
}

// RestoreThumbnail throws the current thumbnail away and regenerates it from
// the provider playback id
func (s *Service) RestoreThumbnail(ctx context.Context, videoID, userID string) (*model.Video, error) {
	video, err := s.GetVideo(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	stored, err := s.Reconcile.ClearAndRestore(ctx, video, KindThumbnail)
	if err != nil {
		return nil, err
	}

	video.ThumbnailKey = &stored.Key
	video.ThumbnailURL = &stored.URL

	return video, nil
}

// ReplaceThumbnail is the user-upload path. Any pre-existing thumbnail is
// cleared before the upload proceeds, then the freshly stored object is
// adopted with the usual read-write-recheck swap so a webhook racing in
// between can't leak its key.
func (s *Service) ReplaceThumbnail(ctx context.Context, videoID, userID, name, contentType string, body io.Reader, size int64) (*storage.StoredFile, error) {
	video, err := s.GetVideo(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	if video.ThumbnailKey != nil {
		if err := s.Reconcile.Delete(ctx, video.ID, KindThumbnail); err != nil {
			return nil, err
		}
	}

	stored, err := s.Store.UploadFile(ctx, name, contentType, body, size)
	if err != nil {
		return nil, fmt.Errorf("failed to store thumbnail, %w", err)
	}

	if err := s.Reconcile.Adopt(ctx, video.ID, KindThumbnail, *stored); err != nil {
		return nil, err
	}

	return stored, nil
}
