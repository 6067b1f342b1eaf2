package naming

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNamespace answers Exists from a set and can be told to report every
// name as taken for the first n calls.
type fakeNamespace struct {
	taken    map[string]bool
	busyFor  int
	calls    int
	failWith error
}

func (f *fakeNamespace) Exists(_ context.Context, name string) (bool, error) {
	f.calls++
	if f.failWith != nil {
		return false, f.failWith
	}
	if f.calls <= f.busyFor {
		return true, nil
	}
	return f.taken[name], nil
}

func TestRandomString(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		s, err := RandomString(NameLength)
		require.NoError(t, err)
		assert.NotEmpty(t, s)
		assert.False(t, strings.ContainsAny(s, `/\-+=`), s)
		assert.False(t, seen[s], "duplicate random string")
		seen[s] = true
	}
}

func TestDeletionToken_LongerThanNames(t *testing.T) {
	tok, err := DeletionToken()
	require.NoError(t, err)
	name, err := RandomString(NameLength)
	require.NoError(t, err)
	// 20 bytes encode to 27 base64 characters, 16 bytes to 22, minus stripped '-'.
	assert.LessOrEqual(t, len(tok), 27)
	assert.Greater(t, len(tok), 15)
	assert.LessOrEqual(t, len(name), 22)
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":                ".jpg",
		"image/png":                 ".png",
		"IMAGE/PNG":                 ".png",
		"image/gif":                 ".gif",
		"video/mp4":                 ".mp4",
		"video/webm":                ".webm",
		"audio/mp4":                 ".m4a",
		"audio/mp3":                 ".mp3",
		"audio/mpeg; charset=utf-8": ".mp3",
	}
	for ct, want := range tests {
		got, ok := Extension(ct)
		assert.True(t, ok, ct)
		assert.Equal(t, want, got, ct)
	}

	for _, ct := range []string{"", "text/plain", "application/octet-stream"} {
		_, ok := Extension(ct)
		assert.False(t, ok, ct)
	}
}

func TestAllocate_ReturnsFreeName(t *testing.T) {
	ns := &fakeNamespace{taken: map[string]bool{}}
	a := NewAllocator(NameLength)

	name, err := a.Allocate(context.Background(), ns, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))

	taken, err := ns.Exists(context.Background(), name)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestAllocate_RetriesOnCollision(t *testing.T) {
	ns := &fakeNamespace{taken: map[string]bool{}, busyFor: 2}

	name, err := NewAllocator(0).Allocate(context.Background(), ns, "video/mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".mp4"))
	assert.Equal(t, 3, ns.calls)
}

func TestAllocate_Exhausted(t *testing.T) {
	ns := &fakeNamespace{busyFor: 1 << 20}

	_, err := NewAllocator(NameLength).Allocate(context.Background(), ns, "image/gif")
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestAllocate_UnknownContentTypeTouchesNothing(t *testing.T) {
	ns := &fakeNamespace{}

	_, err := NewAllocator(NameLength).Allocate(context.Background(), ns, "text/plain")
	assert.ErrorIs(t, err, ErrUnknownContentType)
	assert.Zero(t, ns.calls)
}

func TestAllocate_CheckError(t *testing.T) {
	boom := errors.New("disk gone")
	ns := &fakeNamespace{failWith: boom}

	_, err := NewAllocator(NameLength).Allocate(context.Background(), ns, "image/png")
	assert.ErrorIs(t, err, boom)
}
