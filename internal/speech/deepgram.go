package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	appLog "daybrief/internal/log"
)

const (
	defaultSpeakURL   = "wss://api.deepgram.com/v1/speak"
	defaultVoice      = "aura-asteria-en"
	defaultSampleRate = 24000
	defaultTimeout    = 60 * time.Second
)

type speakMsg struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = speakMsg{Type: "Flush"}
	closeMsg = speakMsg{Type: "Close"}
)

// Deepgram synthesizes speech over Deepgram's streaming /v1/speak websocket
// and hands the collected audio to a Player.
type Deepgram struct {
	apiKey     string
	endpoint   string
	voice      string
	sampleRate int
	timeout    time.Duration
	dialer     *websocket.Dialer
	player     Player
}

// DeepgramOption customizes a Deepgram sink.
type DeepgramOption func(*Deepgram)

// WithVoice selects the Deepgram voice model.
func WithVoice(v string) DeepgramOption {
	return func(d *Deepgram) {
		if v != "" {
			d.voice = v
		}
	}
}

// WithSampleRate sets the linear16 sample rate requested from Deepgram.
func WithSampleRate(rate int) DeepgramOption {
	return func(d *Deepgram) {
		if rate > 0 {
			d.sampleRate = rate
		}
	}
}

// WithEndpoint overrides the websocket URL.
func WithEndpoint(u string) DeepgramOption {
	return func(d *Deepgram) { d.endpoint = u }
}

// WithDialer overrides the websocket dialer.
func WithDialer(dialer *websocket.Dialer) DeepgramOption {
	return func(d *Deepgram) { d.dialer = dialer }
}

// WithPlayer sets the audio player.
func WithPlayer(p Player) DeepgramOption {
	return func(d *Deepgram) { d.player = p }
}

// WithSpeakTimeout bounds synthesis when ctx has no deadline.
func WithSpeakTimeout(t time.Duration) DeepgramOption {
	return func(d *Deepgram) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// NewDeepgram creates a Deepgram sink. An empty apiKey makes every Speak
// return ErrUnavailable.
func NewDeepgram(apiKey string, opts ...DeepgramOption) *Deepgram {
	d := &Deepgram{
		apiKey:     apiKey,
		endpoint:   defaultSpeakURL,
		voice:      defaultVoice,
		sampleRate: defaultSampleRate,
		timeout:    defaultTimeout,
		dialer:     websocket.DefaultDialer,
		player:     NewPlayer(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Speak synthesizes text and plays it.
func (d *Deepgram) Speak(ctx context.Context, text string) error {
	if d.apiKey == "" {
		return fmt.Errorf("deepgram api key not set: %w", ErrUnavailable)
	}
	if text == "" {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	pcm, err := d.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	appLog.Debug("speech synthesized", "bytes", len(pcm), "sample_rate", d.sampleRate)

	if d.player == nil {
		return ErrPlaybackUnavailable
	}
	return d.player.Play(ctx, pcm, d.sampleRate)
}

// Synthesize sends text as one Speak + Flush and returns the raw linear16
// audio received before the Flushed acknowledgement.
func (d *Deepgram) Synthesize(ctx context.Context, text string) ([]byte, error) {
	u, err := d.speakURL()
	if err != nil {
		return nil, err
	}

	conn, resp, err := d.dialer.DialContext(ctx, u, http.Header{"Authorization": {"token " + d.apiKey}})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("open deepgram socket (status %s): %w", resp.Status, errors.Join(ErrUnavailable, err))
		}
		return nil, fmt.Errorf("open deepgram socket: %w", errors.Join(ErrUnavailable, err))
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		// Unblocks ReadMessage.
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := conn.WriteJSON(speakMsg{Type: "Speak", Text: text}); err != nil {
		return nil, fmt.Errorf("send speak message: %w", err)
	}
	if err := conn.WriteJSON(flushMsg); err != nil {
		return nil, fmt.Errorf("send flush message: %w", err)
	}

	var audio []byte
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("read deepgram message: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			audio = append(audio, msg...)
		case websocket.TextMessage:
			var parsed struct {
				Type        string `json:"type"`
				Description string `json:"description"`
			}
			if err := json.Unmarshal(msg, &parsed); err != nil {
				appLog.Debug("ignoring malformed deepgram message", "error", err)
				continue
			}
			switch parsed.Type {
			case "Flushed":
				if err := conn.WriteJSON(closeMsg); err != nil {
					appLog.Debug("deepgram close message failed", "error", err)
				}
				if len(audio) == 0 {
					return nil, errors.New("deepgram returned no audio")
				}
				return audio, nil
			case "Error":
				return nil, fmt.Errorf("deepgram error: %s", parsed.Description)
			}
		}
	}
}

func (d *Deepgram) speakURL() (string, error) {
	u, err := url.Parse(d.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse speak endpoint: %w", err)
	}
	q := u.Query()
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(d.sampleRate))
	q.Set("model", d.voice)
	q.Set("container", "none")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
