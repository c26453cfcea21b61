package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"newtube/video-api/model"
	"newtube/video-api/mux"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HandleEvent routes an authenticated provider event to its transition
// handler. The event set is open, anything unrecognized is acknowledged and
// ignored so new provider event types never turn into delivery failures.
//
// Every handler is idempotent under redelivery. Events correlate by upload id
// (track events by asset id), never by owner, and zero matching rows is a
// no-op since the video may have been deleted in the meantime.
func (s *Service) HandleEvent(ctx context.Context, evt *mux.Event) error {
	switch evt.Type {
	case mux.EventAssetCreated:
		return s.assetCreated(ctx, &evt.Data)
	case mux.EventAssetReady:
		return s.assetReady(ctx, &evt.Data)
	case mux.EventAssetErrored:
		return s.assetErrored(ctx, &evt.Data)
	case mux.EventAssetDeleted:
		return s.assetDeleted(ctx, &evt.Data)
	case mux.EventTrackReady:
		return s.trackReady(ctx, &evt.Data)
	default:
		zap.L().Debug("Ignoring unhandled webhook event", zap.String("type", evt.Type))
		return nil
	}
}

func (s *Service) assetCreated(ctx context.Context, data *mux.EventData) error {
	if data.UploadID == "" {
		return fmt.Errorf("%w, missing upload_id", ErrMalformedEvent)
	}

	err := s.DB.WithContext(ctx).
		Model(model.Video{}).
		Where("mux_upload_id = ?", data.UploadID).
		Updates(map[string]any{
			"mux_asset_id": data.ID,
			"mux_status":   data.Status,
		}).
		Error
	if err != nil {
		return fmt.Errorf("failed to apply created event, %w", err)
	}

	return nil
}

func (s *Service) assetReady(ctx context.Context, data *mux.EventData) error {
	if data.UploadID == "" {
		return fmt.Errorf("%w, missing upload_id", ErrMalformedEvent)
	}

	if len(data.PlaybackIDs) == 0 || data.PlaybackIDs[0].ID == "" {
		return fmt.Errorf("%w, missing playback id", ErrMalformedEvent)
	}

	playbackID := data.PlaybackIDs[0].ID

	var video model.Video

	err := s.DB.WithContext(ctx).
		Where("mux_upload_id = ?", data.UploadID).
		First(&video).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Deleted while the asset was processing
			return nil
		}

		return fmt.Errorf("failed to look up video, %w", err)
	}

	err = s.Reconcile.ReplaceBatch(ctx, video.ID,
		map[ArtifactKind]string{
			KindThumbnail: KindThumbnail.SourceURL(playbackID),
			KindPreview:   KindPreview.SourceURL(playbackID),
		},
		map[string]any{
			"mux_status":      data.Status,
			"mux_asset_id":    data.ID,
			"mux_playback_id": playbackID,
			"duration_ms":     int64(math.Round(data.Duration * 1000)),
		})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}

		return err
	}

	return nil
}

func (s *Service) assetErrored(ctx context.Context, data *mux.EventData) error {
	if data.UploadID == "" {
		return fmt.Errorf("%w, missing upload_id", ErrMalformedEvent)
	}

	err := s.DB.WithContext(ctx).
		Model(model.Video{}).
		Where("mux_upload_id = ?", data.UploadID).
		Update("mux_status", data.Status).
		Error
	if err != nil {
		return fmt.Errorf("failed to apply errored event, %w", err)
	}

	return nil
}

func (s *Service) assetDeleted(ctx context.Context, data *mux.EventData) error {
	if data.UploadID == "" {
		return fmt.Errorf("%w, missing upload_id", ErrMalformedEvent)
	}

	// The provider already removed its asset, only ours is left to clean up
	return s.deleteByUploadID(ctx, data.UploadID)
}

func (s *Service) trackReady(ctx context.Context, data *mux.EventData) error {
	if data.AssetID == "" {
		// Current event semantics treat this as non-fatal, a 400 would just
		// make the provider retry an event we can never apply
		zap.L().Warn("Track ready event without asset id, skipping")
		return nil
	}

	err := s.DB.WithContext(ctx).
		Model(model.Video{}).
		Where("mux_asset_id = ?", data.AssetID).
		Updates(map[string]any{
			"mux_track_id":     data.ID,
			"mux_track_status": data.Status,
		}).
		Error
	if err != nil {
		return fmt.Errorf("failed to apply track ready event, %w", err)
	}

	return nil
}
