package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/truestream/internal/logger"
	"github.com/tejashwikalptaru/truestream/internal/ports"
	"github.com/tejashwikalptaru/truestream/internal/testutil"
)

func TestTicker_RunsOncePerRequest(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	tk := NewTicker(logger.NewTestLogger(), time.Millisecond)
	defer tk.Close()

	var calls atomic.Int32
	tk.RequestFrame(func(time.Time) { calls.Add(1) })

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), tk.Fired())
}

func TestTicker_RearmFromCallback(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	tk := NewTicker(logger.NewTestLogger(), time.Millisecond)
	defer tk.Close()

	var calls atomic.Int32
	var frame func(time.Time)
	frame = func(time.Time) {
		if calls.Add(1) < 5 {
			tk.RequestFrame(frame)
		}
	}
	tk.RequestFrame(frame)

	require.Eventually(t, func() bool { return calls.Load() == 5 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, tk.Pending())
}

func TestTicker_Cancel(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	tk := NewTicker(logger.NewTestLogger(), 5*time.Millisecond)
	defer tk.Close()

	var calls atomic.Int32
	id := tk.RequestFrame(func(time.Time) { calls.Add(1) })
	tk.CancelFrame(id)
	tk.CancelFrame(id)
	tk.CancelFrame(12345)

	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTicker_CloseDropsPending(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	tk := NewTicker(logger.NewTestLogger(), time.Hour)
	var calls atomic.Int32
	tk.RequestFrame(func(time.Time) { calls.Add(1) })

	require.NoError(t, tk.Close())
	require.NoError(t, tk.Close())
	assert.Equal(t, 0, tk.Pending())
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, ports.FrameID(0), tk.RequestFrame(func(time.Time) { calls.Add(1) }))
}

func TestManual_StepRunsQueuedOnly(t *testing.T) {
	start := time.Unix(0, 0)
	m := NewManual(start)

	var seen []time.Time
	var frame func(time.Time)
	frame = func(now time.Time) {
		seen = append(seen, now)
		m.RequestFrame(frame)
	}
	m.RequestFrame(frame)

	assert.Equal(t, 1, m.Step())
	assert.Equal(t, 1, m.Pending(), "re-armed callback waits for the next step")
	assert.Equal(t, 3, m.Advance(3))
	require.Len(t, seen, 4)
	assert.Equal(t, start.Add(DefaultFrameInterval), seen[0])
	assert.Equal(t, start.Add(4*DefaultFrameInterval), m.Now())
}

func TestManual_CancelAndTake(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var calls int
	a := m.RequestFrame(func(time.Time) { calls++ })
	m.RequestFrame(func(time.Time) { calls += 10 })

	m.CancelFrame(a)
	fns := m.Take()
	require.Len(t, fns, 1)
	assert.Equal(t, 0, m.Pending())

	for _, fn := range fns {
		fn(m.Now())
	}
	assert.Equal(t, 10, calls)
	assert.Equal(t, 0, m.Step())
}
