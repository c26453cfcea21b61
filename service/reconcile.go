package service

import (
	"context"
	"errors"
	"fmt"

	"newtube/video-api/model"
	"newtube/video-api/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ArtifactKind names one of the derived files a video owns in the object store
type ArtifactKind string

const (
	KindThumbnail ArtifactKind = "thumbnail"
	KindPreview   ArtifactKind = "preview"
)

func (k ArtifactKind) columns() (keyCol, urlCol string) {
	if k == KindPreview {
		return "preview_key", "preview_url"
	}

	return "thumbnail_key", "thumbnail_url"
}

// SourceURL derives the deterministic provider URL the artifact is generated
// from. Same playback id always yields the same source
func (k ArtifactKind) SourceURL(playbackID string) string {
	if k == KindPreview {
		return fmt.Sprintf("https://image.mux.com/%s/animated.gif", playbackID)
	}

	return fmt.Sprintf("https://image.mux.com/%s/thumbnail.webp?width=1000&height=562&fit_mode=crop", playbackID)
}

func (k ArtifactKind) currentKey(v *model.Video) *string {
	if k == KindPreview {
		return v.PreviewKey
	}

	return v.ThumbnailKey
}

// Reconciler decides which artifact keys to keep, which to replace and which
// stale keys are safe to delete from the object store. There is no locking.
// Concurrent writers race on the record and the DB write order decides the
// final key (last writer wins). The one hard rule: a key the record still
// references is never handed to the store for deletion, which is why every
// cleanup re-reads the record right before issuing the delete.
type Reconciler struct {
	DB    *gorm.DB
	Store storage.Store
}

// Replace fetches sourceURL into the object store and makes it the current
// artifact of the given kind. The previously referenced key is deleted
// best-effort once the record points at the new one.
func (r *Reconciler) Replace(ctx context.Context, videoID string, kind ArtifactKind, sourceURL string) error {
	files, err := r.Store.UploadFromURL(ctx, []string{sourceURL})
	if err != nil {
		return fmt.Errorf("failed to store %s, %w", kind, err)
	}

	return r.Adopt(ctx, videoID, kind, files[0])
}

// Adopt makes an already-stored object the current artifact of the given
// kind. Split out of Replace because user thumbnail uploads arrive as bytes,
// not as a fetchable URL
func (r *Reconciler) Adopt(ctx context.Context, videoID string, kind ArtifactKind, file storage.StoredFile) error {
	keyCol, urlCol := kind.columns()

	prior, err := r.readKeys(ctx, videoID)
	if err != nil {
		return err
	}

	err = r.DB.WithContext(ctx).
		Model(model.Video{}).
		Where("id = ?", videoID).
		Updates(map[string]any{keyCol: file.Key, urlCol: file.URL}).
		Error
	if err != nil {
		return fmt.Errorf("failed to persist %s, %w", kind, err)
	}

	if old := kind.currentKey(prior); old != nil && *old != file.Key {
		r.deleteSuperseded(ctx, videoID, []string{*old})
	}

	return nil
}

// ReplaceBatch stores every source and swaps all pairs in one record write,
// optionally together with extra column updates so processing state and
// artifacts land atomically. Used by the ready transition which produces the
// thumbnail and the preview from the same event.
func (r *Reconciler) ReplaceBatch(ctx context.Context, videoID string, sources map[ArtifactKind]string, extra map[string]any) error {
	kinds := make([]ArtifactKind, 0, len(sources))
	urls := make([]string, 0, len(sources))

	for _, kind := range []ArtifactKind{KindThumbnail, KindPreview} {
		if src, ok := sources[kind]; ok {
			kinds = append(kinds, kind)
			urls = append(urls, src)
		}
	}

	files, err := r.Store.UploadFromURL(ctx, urls)
	if err != nil {
		return fmt.Errorf("failed to store artifacts, %w", err)
	}

	prior, err := r.readKeys(ctx, videoID)
	if err != nil {
		return err
	}

	updates := map[string]any{}
	for k, v := range extra {
		updates[k] = v
	}

	fresh := map[string]bool{}

	for i, kind := range kinds {
		keyCol, urlCol := kind.columns()
		updates[keyCol] = files[i].Key
		updates[urlCol] = files[i].URL
		fresh[files[i].Key] = true
	}

	err = r.DB.WithContext(ctx).
		Model(model.Video{}).
		Where("id = ?", videoID).
		Updates(updates).
		Error
	if err != nil {
		return fmt.Errorf("failed to persist artifacts, %w", err)
	}

	var stale []string

	for _, kind := range kinds {
		if old := kind.currentKey(prior); old != nil && !fresh[*old] {
			stale = append(stale, *old)
		}
	}

	r.deleteSuperseded(ctx, videoID, stale)
	return nil
}

// ClearAndRestore drops the current artifact and regenerates it from the
// provider playback id. The clear and the re-write commit as one transaction,
// a failed regeneration rolls the clear back so the record never rests with
// null keys. The old store object is only deleted after the commit.
func (r *Reconciler) ClearAndRestore(ctx context.Context, video *model.Video, kind ArtifactKind) (storage.StoredFile, error) {
	if video.MuxPlaybackID == "" {
		return storage.StoredFile{}, ErrNotReady
	}

	keyCol, urlCol := kind.columns()
	prior := kind.currentKey(video)

	var stored storage.StoredFile

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if prior != nil {
			err := tx.Model(model.Video{}).
				Where("id = ?", video.ID).
				Updates(map[string]any{keyCol: nil, urlCol: nil}).
				Error
			if err != nil {
				return err
			}
		}

		files, err := r.Store.UploadFromURL(ctx, []string{kind.SourceURL(video.MuxPlaybackID)})
		if err != nil {
			// Rolls the clear back, the prior pair stays persisted
			return fmt.Errorf("failed to regenerate %s, %w", kind, err)
		}

		stored = files[0]

		return tx.Model(model.Video{}).
			Where("id = ?", video.ID).
			Updates(map[string]any{keyCol: stored.Key, urlCol: stored.URL}).
			Error
	})
	if err != nil {
		return storage.StoredFile{}, err
	}

	if prior != nil && *prior != stored.Key {
		r.deleteSuperseded(ctx, video.ID, []string{*prior})
	}

	return stored, nil
}

// Delete removes the given kinds from the record and then from the store.
// The DB write comes first so no reader can observe a referenced key that is
// already gone from the store.
func (r *Reconciler) Delete(ctx context.Context, videoID string, kinds ...ArtifactKind) error {
	prior, err := r.readKeys(ctx, videoID)
	if err != nil {
		return err
	}

	updates := map[string]any{}
	var keys []string

	for _, kind := range kinds {
		keyCol, urlCol := kind.columns()
		updates[keyCol] = nil
		updates[urlCol] = nil

		if old := kind.currentKey(prior); old != nil {
			keys = append(keys, *old)
		}
	}

	if len(keys) == 0 {
		return nil
	}

	err = r.DB.WithContext(ctx).
		Model(model.Video{}).
		Where("id = ?", videoID).
		Updates(updates).
		Error
	if err != nil {
		return fmt.Errorf("failed to clear artifacts, %w", err)
	}

	r.deleteSuperseded(ctx, videoID, keys)
	return nil
}

func (r *Reconciler) readKeys(ctx context.Context, videoID string) (*model.Video, error) {
	var v model.Video

	err := r.DB.WithContext(ctx).
		Select("thumbnail_key", "preview_key").
		Where("id = ?", videoID).
		First(&v).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to read artifact keys, %w", err)
	}

	return &v, nil
}

// deleteSuperseded issues the best-effort store delete for keys that lost a
// race or got replaced. It re-reads the record first and drops any candidate
// the record still references, so a concurrent replace that just won the
// write can't have its fresh key deleted from under it.
func (r *Reconciler) deleteSuperseded(ctx context.Context, videoID string, candidates []string) {
	if len(candidates) == 0 {
		return
	}

	var cur model.Video

	err := r.DB.WithContext(ctx).
		Select("thumbnail_key", "preview_key").
		Where("id = ?", videoID).
		First(&cur).
		Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		// Can't prove the candidates are stale, leave them alone. An orphaned
		// object beats deleting a key the record might still reference
		zap.L().Warn("Skipping artifact cleanup, record unreadable", zap.Error(err))
		return
	}

	stale := candidates[:0]

	for _, k := range candidates {
		if cur.ThumbnailKey != nil && *cur.ThumbnailKey == k {
			continue
		}
		if cur.PreviewKey != nil && *cur.PreviewKey == k {
			continue
		}

		stale = append(stale, k)
	}

	r.Store.DeleteFiles(ctx, stale).Log()
}
