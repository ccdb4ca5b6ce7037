//go:build cgo

package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	appLog "daybrief/internal/log"
)

// NewPlayer returns a miniaudio-backed Player.
func NewPlayer() Player {
	return &malgoPlayer{}
}

type malgoPlayer struct {
	mu sync.Mutex
}

// Play opens the default output device, plays pcm to the end and releases
// the device again.
func (p *malgoPlayer) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		appLog.Debug("malgo", "message", message)
	})
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		_ = audioCtx.Uninit()
		audioCtx.Free()
	}()

	const channels = 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.SampleRate = uint32(sampleRate)
	cfg.Playback.Format = format
	cfg.Playback.Channels = channels
	cfg.Alsa.NoMMap = 1
	cfg.PeriodSizeInFrames = uint32(sampleRate) / 10
	cfg.Periods = 4

	var (
		bufMu sync.Mutex
		buf   = pcm
		done  = make(chan struct{})
		once  sync.Once
	)
	onData := func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame
		bufMu.Lock()
		defer bufMu.Unlock()

		n := copy(pOutput[:min(need, len(pOutput))], buf)
		buf = buf[n:]
		// Silence the remainder of a short final period.
		clear(pOutput[n:])
		if len(buf) == 0 {
			once.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(audioCtx.Context, cfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("start playback device: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		_ = device.Stop()
		return ctx.Err()
	}

	if err := device.Stop(); err != nil {
		return fmt.Errorf("stop playback device: %w", err)
	}
	return nil
}
