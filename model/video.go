// Package model defines database models
package model

type Visibility = string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Video struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"index;not null" json:"-"`

	Title       string     `json:"title"`
	Description string     `json:"description"`
	CategoryID  *string    `json:"category_id,omitzero"`
	Visibility  Visibility `gorm:"default:private" json:"visibility"`

	// Set once at creation. Every provider event before the asset id is known
	// correlates back to this record through it
	MuxUploadID    string `gorm:"uniqueIndex" json:"-"`
	MuxAssetID     string `gorm:"index" json:"-"`
	MuxStatus      string `json:"status"` // waiting/preparing/ready/errored, whatever the provider reports
	MuxPlaybackID  string `json:"playback_id"`
	MuxTrackID     string `json:"-"`
	MuxTrackStatus string `json:"track_status"`

	// Key and URL always travel together. Either both set or both null,
	// written in a single update so no reader sees a half pair
	ThumbnailKey *string `json:"-"`
	ThumbnailURL *string `json:"thumbnail_url,omitzero"`
	PreviewKey   *string `json:"-"`
	PreviewURL   *string `json:"preview_url,omitzero"`

	DurationMS int64 `json:"duration_ms"`

	// Unix second timestamps
	CreatedAt int64 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int64 `gorm:"autoUpdateTime" json:"updated_at"`
}
