package service

import (
	"context"
	"fmt"

	"newtube/video-api/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

// CreateVideo asks the provider for an upload target and only then inserts
// the record, already carrying the upload id the provider will echo back in
// its events. Provider failure means no row, so there are never waiting
// records with no correlation key.
func (s *Service) CreateVideo(ctx context.Context, userID string) (*model.Video, string, error) {
	uploadID, uploadURL, err := s.Provider.CreateUpload(ctx, userID)
	if err != nil {
		zap.L().Error("Failed to create provider upload", zap.Error(err))
		return nil, "", fmt.Errorf("%w, %s", ErrUpstreamUnavailable, err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, "", err
	}

	video := model.Video{
		ID:          id,
		UserID:      userID,
		Title:       "Untitled",
		Visibility:  model.VisibilityPrivate,
		MuxStatus:   "waiting",
		MuxUploadID: uploadID,
	}

	err = s.DB.WithContext(ctx).Create(&video).Error
	if err != nil {
		return nil, "", fmt.Errorf("failed to save video record, %w", err)
	}

	return &video, uploadURL, nil
}
