package storage

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

const utBase = "https://api.uploadthing.com/v6"

type UploadThing struct {
	HTTP   *http.Client
	secret string
}

func NewUploadThing() *UploadThing {
	return &UploadThing{
		HTTP:   &http.Client{Timeout: 60 * time.Second},
		secret: viper.GetString("uploadthing.secret"),
	}
}

type utFile struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

func (u *UploadThing) post(ctx context.Context, path string, payload, out any) error {
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, utBase+path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Uploadthing-Api-Key", u.secret)

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach uploadthing, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("uploadthing returned %d, %s", resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (u *UploadThing) UploadFromURL(ctx context.Context, urls []string) ([]StoredFile, error) {
	var out struct {
		Data []utFile `json:"data"`
	}

	err := u.post(ctx, "/uploadFilesFromUrl", map[string]any{"urls": urls}, &out)
	if err != nil {
		return nil, err
	}

	if len(out.Data) != len(urls) {
		return nil, fmt.Errorf("uploadthing returned %d results for %d urls", len(out.Data), len(urls))
	}

	files := make([]StoredFile, len(out.Data))
	for i, f := range out.Data {
		if f.Error != "" || f.Key == "" {
			return nil, fmt.Errorf("uploadthing failed to ingest %q, %s", urls[i], f.Error)
		}

		files[i] = StoredFile{Key: f.Key, URL: f.URL}
	}

	return files, nil
}

func (u *UploadThing) UploadFile(ctx context.Context, name, contentType string, body io.Reader, size int64) (*StoredFile, error) {
	var presign struct {
		Data []struct {
			Key string `json:"key"`
			URL string `json:"url"`
			// Where the object is served from after the upload completes
			FileURL string `json:"fileUrl"`
		} `json:"data"`
	}

	err := u.post(ctx, "/uploadFiles", map[string]any{
		"files": []map[string]any{
			{"name": name, "size": size, "type": contentType},
		},
	}, &presign)
	if err != nil {
		return nil, err
	}

	if len(presign.Data) != 1 {
		return nil, fmt.Errorf("uploadthing returned %d presigns for 1 file", len(presign.Data))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presign.Data[0].URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to push file bytes, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload target returned %d, %s", resp.StatusCode, string(b))
	}

	return &StoredFile{Key: presign.Data[0].Key, URL: presign.Data[0].FileURL}, nil
}

func (u *UploadThing) DeleteFiles(ctx context.Context, keys []string) CleanupReport {
	if len(keys) == 0 {
		return CleanupReport{}
	}

	err := u.post(ctx, "/deleteFiles", map[string]any{"fileKeys": keys}, nil)

	return CleanupReport{Requested: keys, Err: err}
}
