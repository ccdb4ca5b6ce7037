// Package speech reads the briefing aloud.
package speech

import (
	"context"
	"errors"
	"os"

	"daybrief/internal/config"
	appLog "daybrief/internal/log"
)

var (
	// ErrUnavailable means no speech backend is configured or reachable.
	ErrUnavailable = errors.New("speech unavailable")
	// ErrPlaybackUnavailable means audio was produced but cannot be played
	// on this build (no audio device support compiled in).
	ErrPlaybackUnavailable = errors.New("audio playback unavailable")
)

// Sink speaks a narrative. Implementations block until playback finishes or
// ctx is done.
type Sink interface {
	Speak(ctx context.Context, text string) error
}

// Player plays mono signed 16-bit little-endian PCM.
type Player interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
}

// Nop is a Sink that discards everything.
type Nop struct{}

// Speak implements Sink.
func (Nop) Speak(context.Context, string) error { return nil }

// FromConfig builds the sink selected by cfg. Disabled speech or provider
// "none" yields Nop.
func FromConfig(cfg config.SpeechConfig) Sink {
	if !cfg.Enabled || cfg.Provider == config.SpeechNone {
		return Nop{}
	}

	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		appLog.Debug("speech api key not set", "env", cfg.APIKeyEnv)
	}
	return NewDeepgram(apiKey,
		WithVoice(cfg.Voice),
		WithSampleRate(cfg.SampleRate),
		WithPlayer(NewPlayer()),
	)
}
