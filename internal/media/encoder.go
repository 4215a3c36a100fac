// Package media provides encoding of user-supplied binary media into the
// transport form expected by the generation API: base64 content plus a
// declared media type.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// Static errors for media encoding.
var (
	// ErrEmptyMedia is returned when the media contains no payload to encode.
	ErrEmptyMedia = errors.New("media: empty payload")
	// ErrReadFailed is returned when the media bytes cannot be read.
	ErrReadFailed = errors.New("media: read failed")
)

// Encoded is the transport-safe form of an asset: base64 content bytes
// plus the declared media type.
type Encoded struct {
	// Content is the standard base64 encoding of the raw bytes.
	Content string
	// MediaType is the sniffed MIME type, e.g. "image/png" or "video/mp4".
	MediaType string
}

// Asset is a user-supplied binary (image or video) owned by the request
// that references it. Encoding is computed once, lazily, and cached.
type Asset struct {
	name string
	raw  []byte

	once    sync.Once
	encoded Encoded
	err     error
}

// NewAsset creates an Asset from raw bytes already in memory.
// The name is a caller-supplied hint used only for logging.
func NewAsset(name string, raw []byte) *Asset {
	return &Asset{name: name, raw: raw}
}

// FromReader reads all bytes from r into a new Asset. It honors context
// cancellation before the read starts; the read itself is the suspension
// point for file-backed readers.
func FromReader(ctx context.Context, name string, r io.Reader) (*Asset, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("media: context cancelled: %w", ctx.Err())
	default:
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailed, name, err)
	}

	return NewAsset(name, raw), nil
}

// Name returns the caller-supplied name hint.
func (a *Asset) Name() string {
	return a.name
}

// Size returns the raw payload size in bytes.
func (a *Asset) Size() int {
	return len(a.raw)
}

// Encode returns the transport form of the asset. The encoding is
// deterministic and computed at most once; subsequent calls return the
// cached result (or the cached error).
func (a *Asset) Encode() (Encoded, error) {
	a.once.Do(func() {
		if len(a.raw) == 0 {
			a.err = fmt.Errorf("%w: %s", ErrEmptyMedia, a.name)
			return
		}
		a.encoded = Encoded{
			Content:   base64.StdEncoding.EncodeToString(a.raw),
			MediaType: mimetype.Detect(a.raw).String(),
		}
	})
	return a.encoded, a.err
}
