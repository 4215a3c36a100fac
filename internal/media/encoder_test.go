package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is the 8-byte PNG signature, enough for MIME sniffing.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func TestAsset_Encode(t *testing.T) {
	a := NewAsset("frame.png", pngHeader)

	enc, err := a.Encode()
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), enc.Content)
	assert.Equal(t, "image/png", enc.MediaType)
}

func TestAsset_Encode_Deterministic(t *testing.T) {
	a := NewAsset("frame.png", pngHeader)

	first, err := a.Encode()
	require.NoError(t, err)
	second, err := a.Encode()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A fresh asset over the same bytes produces the same encoding.
	b := NewAsset("copy.png", pngHeader)
	other, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, first.Content, other.Content)
}

func TestAsset_Encode_Empty(t *testing.T) {
	a := NewAsset("empty.bin", nil)

	_, err := a.Encode()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyMedia)

	// The error is cached like the success path.
	_, again := a.Encode()
	assert.ErrorIs(t, again, ErrEmptyMedia)
}

func TestFromReader(t *testing.T) {
	a, err := FromReader(context.Background(), "frame.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "frame.png", a.Name())
	assert.Equal(t, len(pngHeader), a.Size())
}

func TestFromReader_ReadError(t *testing.T) {
	_, err := FromReader(context.Background(), "broken", failingReader{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadFailed)
}

func TestFromReader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FromReader(ctx, "frame.png", bytes.NewReader(pngHeader))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk error")
}
