package objecturl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/logger"
)

func testSource(name string) domain.MediaSource {
	return domain.NewMediaSource(name, "audio/mpeg", []byte("ID3 fake bytes"))
}

func TestManager_AcquireResolveRelease(t *testing.T) {
	m := NewManager(logger.NewTestLogger())

	url, err := m.Acquire(testSource("a.mp3"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url.String(), Scheme))
	assert.Equal(t, 1, m.Live())

	src, err := m.Resolve(url)
	require.NoError(t, err)
	assert.Equal(t, "a.mp3", src.Name)

	m.Release(url)
	assert.Equal(t, 0, m.Live())

	_, err = m.Resolve(url)
	assert.ErrorIs(t, err, domain.ErrUnknownObjectURL)
}

func TestManager_ReleaseIsIdempotent(t *testing.T) {
	m := NewManager(logger.NewTestLogger())

	url, err := m.Acquire(testSource("a.mp3"))
	require.NoError(t, err)

	m.Release(url)
	m.Release(url)
	m.Release(domain.NoObjectURL)
	m.Release("blob:truestream/not-issued")

	acquired, released := m.Stats()
	assert.Equal(t, uint64(1), acquired)
	assert.Equal(t, uint64(1), released)
	assert.Equal(t, 0, m.Live())
}

func TestManager_SingleOutstandingHandle(t *testing.T) {
	m := NewManager(logger.NewTestLogger())

	first, err := m.Acquire(testSource("a.mp3"))
	require.NoError(t, err)

	_, err = m.Acquire(testSource("b.mp3"))
	assert.ErrorIs(t, err, domain.ErrObjectURLOutstanding)

	m.Release(first)
	second, err := m.Acquire(testSource("b.mp3"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "handles are never reused")
}

func TestManager_RejectsEmptySource(t *testing.T) {
	m := NewManager(logger.NewTestLogger())

	_, err := m.Acquire(domain.NewMediaSource("empty.mp3", "audio/mpeg", nil))
	assert.ErrorIs(t, err, domain.ErrEmptySource)
	assert.Equal(t, 0, m.Live())
}

func TestManager_ResolveForeignScheme(t *testing.T) {
	m := NewManager(logger.NewTestLogger())

	_, err := m.Resolve("https://example.com/a.mp3")
	assert.ErrorIs(t, err, domain.ErrUnknownObjectURL)
}

func TestManager_ManyCyclesLeaveNothingLive(t *testing.T) {
	m := NewManager(logger.NewTestLogger())

	for i := 0; i < 50; i++ {
		url, err := m.Acquire(testSource("loop.mp3"))
		require.NoError(t, err)
		m.Release(url)
	}

	acquired, released := m.Stats()
	assert.Equal(t, acquired, released)
	assert.Equal(t, 0, m.Live())
}
