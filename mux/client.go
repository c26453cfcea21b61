// Package mux provides a client for interacting with the Mux video API.
package mux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
)

const apiBase = "https://api.mux.com"

type Client struct {
	HTTP        *http.Client
	tokenID     string
	tokenSecret string
	corsOrigin  string
}

func NewClient() *Client {
	return &Client{
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		tokenID:     viper.GetString("mux.token_id"),
		tokenSecret: viper.GetString("mux.token_secret"),
		corsOrigin:  viper.GetString("host.cors_origin"),
	}
}

type uploadResponse struct {
	Data struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"data"`
}

// CreateUpload requests a direct upload target from Mux. The returned id is
// echoed back as data.upload_id in every later lifecycle event, the URL is
// where the client pushes the media bytes.
func (m *Client) CreateUpload(ctx context.Context, passthrough string) (id, url string, err error) {
	payload := map[string]any{
		"cors_origin": m.corsOrigin,
		"new_asset_settings": map[string]any{
			"passthrough":     passthrough,
			"playback_policy": []string{"public"},
			"input": []map[string]any{
				{
					"generated_subtitles": []map[string]string{
						{"language_code": "en", "name": "English"},
					},
				},
			},
		},
	}

	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+"/video/v1/uploads", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}

	req.SetBasicAuth(m.tokenID, m.tokenSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTP.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to reach mux, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("mux returned %d, %s", resp.StatusCode, string(b))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("failed to decode mux response, %w", err)
	}

	return out.Data.ID, out.Data.URL, nil
}

// DeleteAsset removes an asset on the Mux side. A 404 is treated as success
// since the asset being gone is the desired end state.
func (m *Client) DeleteAsset(ctx context.Context, assetID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, apiBase+"/video/v1/assets/"+assetID, nil)
	if err != nil {
		return err
	}

	req.SetBasicAuth(m.tokenID, m.tokenSecret)

	resp, err := m.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach mux, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mux returned %d, %s", resp.StatusCode, string(b))
	}

	return nil
}
