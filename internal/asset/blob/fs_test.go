package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemRoundTrip(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	info, err := s.Put(ctx, "deadbeef", strings.NewReader("survey document"), "")
	require.NoError(t, err)
	assert.Equal(t, int64(15), info.Size)

	ok, err := s.Exists(ctx, "deadbeef")
	require.NoError(t, err)
	assert.True(t, ok)

	_, rc, err := s.Open(ctx, "deadbeef")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "survey document", string(data))
}

func TestFilesystemPutIdempotent(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := s.Put(ctx, "cafe01", strings.NewReader("bytes"), "")
	require.NoError(t, err)
	second, err := s.Put(ctx, "cafe01", strings.NewReader("bytes"), "")
	require.NoError(t, err)
	assert.Equal(t, first.Size, second.Size)
}

func TestFilesystemRejectsPathKeys(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../escape", strings.NewReader("x"), "")
	assert.Error(t, err)
}

func TestFilesystemOpenNotFound(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Open(context.Background(), "0000")
	assert.ErrorIs(t, err, ErrNotFound)
}
