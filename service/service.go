package service

import (
	"context"

	"newtube/video-api/storage"

	"gorm.io/gorm"
)

// Provider is the external video-processing service. Injected so tests can
// substitute a double, the real implementation lives in the mux package.
type Provider interface {
	// CreateUpload returns the provider upload id (the correlation key echoed
	// back in every later event) and the URL the client pushes media bytes to
	CreateUpload(ctx context.Context, passthrough string) (id, url string, err error)

	// DeleteAsset is best-effort from the caller's point of view
	DeleteAsset(ctx context.Context, assetID string) error
}

type Service struct {
	DB        *gorm.DB
	Store     storage.Store
	Provider  Provider
	Reconcile *Reconciler
}

func New(db *gorm.DB, store storage.Store, provider Provider) *Service {
	return &Service{
		DB:        db,
		Store:     store,
		Provider:  provider,
		Reconcile: &Reconciler{DB: db, Store: store},
	}
}
