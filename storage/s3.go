package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newtube/video-api/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

// S3 stores artifacts in an S3 compatible bucket. Setting s3.endpoint makes
// it work against R2 and friends. The bucket has to be publicly readable
// under s3.public_base_url since artifact URLs are handed straight to clients.
type S3 struct {
	C             *s3.Client
	HTTP          *http.Client
	Bucket        *string
	publicBaseURL string
}

func NewS3() (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("s3.access_key_id"),
			viper.GetString("s3.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("s3.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep := viper.GetString("s3.endpoint"); ep != "" {
			o.BaseEndpoint = aws.String(ep)
			o.Region = "auto"
		} else {
			o.Region = viper.GetString("s3.region")
		}
	})

	_, err = client.HeadBucket(context.TODO(), &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3{
		C:             client,
		HTTP:          &http.Client{Timeout: 60 * time.Second},
		Bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(viper.GetString("s3.public_base_url"), "/"),
	}, nil
}

func (c *S3) url(key string) string {
	return c.publicBaseURL + "/" + key
}

func (c *S3) UploadFromURL(ctx context.Context, urls []string) ([]StoredFile, error) {
	files := make([]StoredFile, len(urls))

	for i, src := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %q, %w", src, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, fmt.Errorf("source %q returned %d", src, resp.StatusCode)
		}

		// S3 wants a known length, the image endpoints don't always send
		// Content-Length so buffer through memory. Artifacts are small.
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %q, %w", src, err)
		}

		key := util.RandStr(24)

		_, err = c.C.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        c.Bucket,
			Key:           &key,
			Body:          bytes.NewReader(body),
			ContentType:   aws.String(resp.Header.Get("Content-Type")),
			ContentLength: aws.Int64(int64(len(body))),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload to S3, %w", err)
		}

		files[i] = StoredFile{Key: key, URL: c.url(key)}
	}

	return files, nil
}

func (c *S3) UploadFile(ctx context.Context, name, contentType string, body io.Reader, size int64) (*StoredFile, error) {
	key := util.RandStr(24)

	_, err := c.C.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        c.Bucket,
		Key:           &key,
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3, %w", err)
	}

	return &StoredFile{Key: key, URL: c.url(key)}, nil
}

func (c *S3) DeleteFiles(ctx context.Context, keys []string) CleanupReport {
	if len(keys) == 0 {
		return CleanupReport{}
	}

	objects := make([]types.ObjectIdentifier, len(keys))
	for i := range keys {
		objects[i] = types.ObjectIdentifier{Key: &keys[i]}
	}

	_, err := c.C.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: c.Bucket,
		Delete: &types.Delete{Objects: objects},
	})

	return CleanupReport{Requested: keys, Err: err}
}
