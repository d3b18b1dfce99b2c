// Package storage defines where finished digests are written.
package storage

import (
	"context"
	"io"
)

// ContentTypeText is the content type of a rendered digest.
const ContentTypeText = "text/plain; charset=utf-8"

// BlobStore writes an artifact, replacing any previous object at path, and
// returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}
