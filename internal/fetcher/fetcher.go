// Package fetcher defines the request/response types shared by page fetchers.
package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Request captures everything needed to fetch a URL.
type Request struct {
	URL     string
	Headers http.Header
}

// Response is the result returned by a Fetcher implementation.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request Request) (Response, error)
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, request Request) (Response, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, request Request) (Response, error) {
	return f(ctx, request)
}
