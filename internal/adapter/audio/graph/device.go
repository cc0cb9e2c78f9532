package graph

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// deviceLatency is how much audio the playback ring holds, in seconds.
const deviceLatency = 0.25

// DeviceOutput plays audio on the default playback device through miniaudio.
// Samples are queued as s16le in a ring buffer that the device callback drains;
// when the ring is full the newest samples are dropped.
type DeviceOutput struct {
	logger *slog.Logger

	mu      sync.Mutex
	mctx    *malgo.AllocatedContext
	device  *malgo.Device
	ring    *ringbuffer.RingBuffer
	scratch []byte
}

// NewDeviceOutput creates an output bound to the default playback device.
// The device is opened by Start.
func NewDeviceOutput(logger *slog.Logger) *DeviceOutput {
	return &DeviceOutput{logger: logger}
}

// DeviceOutputFactory returns an OutputFactory producing DeviceOutputs.
func DeviceOutputFactory(logger *slog.Logger) OutputFactory {
	return func() (ports.AudioOutput, error) {
		return NewDeviceOutput(logger), nil
	}
}

// Start opens and starts the playback device for format.
func (o *DeviceOutput) Start(format ports.PCMFormat) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.device != nil {
		return nil
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return fmt.Errorf("invalid output format %+v", format)
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		o.logger.Debug("miniaudio", slog.String("message", message))
	})
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	ring := ringbuffer.New(int(float64(format.SampleRate*format.Channels*2) * deviceLatency))

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			n, _ := ring.Read(out)
			for i := n; i < len(out); i++ {
				out[i] = 0
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("start playback device: %w", err)
	}

	o.mctx = mctx
	o.device = device
	o.ring = ring
	o.logger.Info("playback device started",
		slog.Int("sample_rate", format.SampleRate),
		slog.Int("channels", format.Channels))
	return nil
}

// WritePCM queues samples for the device.
func (o *DeviceOutput) WritePCM(samples []float32) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ring == nil {
		return
	}
	need := len(samples) * 2
	if cap(o.scratch) < need {
		o.scratch = make([]byte, need)
	}
	b := o.scratch[:need]
	for i, v := range samples {
		s := math.Max(-1, math.Min(1, float64(v)))
		binary.LittleEndian.PutUint16(b[2*i:], uint16(int16(s*math.MaxInt16)))
	}

	free := o.ring.Free()
	free -= free % 2
	if len(b) > free {
		b = b[:free]
	}
	if len(b) > 0 {
		_, _ = o.ring.Write(b)
	}
}

// Stop stops and releases the device.
func (o *DeviceOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.device == nil {
		return nil
	}
	err := o.device.Stop()
	o.device.Uninit()
	_ = o.mctx.Uninit()
	o.mctx.Free()
	o.device = nil
	o.mctx = nil
	o.ring = nil
	o.logger.Info("playback device stopped")
	return err
}

var _ ports.AudioOutput = (*DeviceOutput)(nil)
