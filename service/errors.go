// Package service holds the video lifecycle logic: the upload broker, the
// webhook transition handlers, the artifact reconciliation engine and the
// deletion coordinator. Handlers are stateless, any of them may run
// concurrently with any other, including for the same video. The database is
// the only serialization point.
package service

import "errors"

var (
	// ErrNotFound means the record doesn't exist or the caller doesn't own it
	ErrNotFound = errors.New("video not found")

	// ErrMalformedEvent marks a webhook payload missing its correlation
	// fields. Permanent, redelivery won't fix it, the endpoint answers 400
	ErrMalformedEvent = errors.New("malformed event payload")

	// ErrUpstreamUnavailable means the provider call failed. Transient
	ErrUpstreamUnavailable = errors.New("video provider unavailable")

	// ErrNotReady means the video has no playback id yet so no artifact
	// source URLs can be derived from it
	ErrNotReady = errors.New("video is not ready yet")
)
