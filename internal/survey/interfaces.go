package survey

import (
	"context"
	"time"

	"github.com/staywatch/staywatch/internal/fetch"
)

// Fetcher retrieves one resource, returning nil without error when every
// attempt was exhausted.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, params map[string]string) (*fetch.Response, error)
}

// BlobStore writes raw page bodies and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// PageStore persists page metadata.
type PageStore interface {
	StorePage(ctx context.Context, record PageRecord) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// HostLimiter paces requests per host, on top of the fetcher's own
// politeness delay.
type HostLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}
