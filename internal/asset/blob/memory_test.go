package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPutAndOpen(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	info, err := s.Put(ctx, "abc123", strings.NewReader("deed scan"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "abc123", info.Key)
	assert.Equal(t, int64(9), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)

	got, rc, err := s.Open(ctx, "abc123")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, info, got)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "deed scan", string(data))
}

func TestMemoryPutIdempotent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first, err := s.Put(ctx, "same-key", strings.NewReader("content"), "image/png")
	require.NoError(t, err)
	second, err := s.Put(ctx, "same-key", strings.NewReader("content"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMemoryExists(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	ok, err := s.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Put(ctx, "present", strings.NewReader("x"), "")
	require.NoError(t, err)
	ok, err = s.Exists(ctx, "present")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryOpenNotFound(t *testing.T) {
	s := NewMemory()
	_, _, err := s.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
