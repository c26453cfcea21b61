package mux

import "encoding/json"

// Event types we react to. Mux keeps growing this set, anything not listed
// here is acknowledged and ignored by the dispatcher.
const (
	EventAssetCreated = "video.asset.created"
	EventAssetReady   = "video.asset.ready"
	EventAssetErrored = "video.asset.errored"
	EventAssetDeleted = "video.asset.deleted"
	EventTrackReady   = "video.asset.track.ready"
)

type PlaybackID struct {
	ID     string `json:"id"`
	Policy string `json:"policy"`
}

// EventData is the union of the data fields carried by the events above.
// Fields missing from a given event type simply stay zero.
type EventData struct {
	ID          string       `json:"id"`
	UploadID    string       `json:"upload_id"`
	AssetID     string       `json:"asset_id"`
	Status      string       `json:"status"`
	Duration    float64      `json:"duration"`
	PlaybackIDs []PlaybackID `json:"playback_ids"`
}

type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

func ParseEvent(body []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, err
	}

	return &evt, nil
}
