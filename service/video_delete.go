package service

import (
	"context"
	"errors"
	"fmt"

	"newtube/video-api/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DeleteVideo is the user-triggered path. Artifact and provider asset
// cleanup are both best-effort, the row delete goes through regardless. A
// dangling external object is preferable to a row that can never be removed
// because an external dependency is down.
func (s *Service) DeleteVideo(ctx context.Context, videoID, userID string) error {
	var video model.Video

	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, videoID).
		First(&video).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("failed to look up video, %w", err)
	}

	s.Store.DeleteFiles(ctx, artifactKeys(&video)).Log()

	if video.MuxAssetID != "" {
		if err := s.Provider.DeleteAsset(ctx, video.MuxAssetID); err != nil {
			zap.L().Warn("Failed to delete provider asset",
				zap.String("assetID", video.MuxAssetID),
				zap.Error(err),
			)
		}
	}

	err = s.DB.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, videoID).
		Delete(model.Video{}).
		Error
	if err != nil {
		return fmt.Errorf("failed to delete video record, %w", err)
	}

	return nil
}

// deleteByUploadID is the provider-event path. No ownership check (the
// authenticated event is the authorization) and no provider asset delete,
// the provider already removed it.
func (s *Service) deleteByUploadID(ctx context.Context, uploadID string) error {
	var video model.Video

	err := s.DB.WithContext(ctx).
		Where("mux_upload_id = ?", uploadID).
		First(&video).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		return fmt.Errorf("failed to look up video, %w", err)
	}

	s.Store.DeleteFiles(ctx, artifactKeys(&video)).Log()

	err = s.DB.WithContext(ctx).
		Where("mux_upload_id = ?", uploadID).
		Delete(model.Video{}).
		Error
	if err != nil {
		return fmt.Errorf("failed to delete video record, %w", err)
	}

	return nil
}

func artifactKeys(v *model.Video) []string {
	var keys []string

	if v.ThumbnailKey != nil {
		keys = append(keys, *v.ThumbnailKey)
	}

	if v.PreviewKey != nil {
		keys = append(keys, *v.PreviewKey)
	}

	return keys
}
