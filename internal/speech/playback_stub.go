//go:build !cgo

package speech

import "context"

// NewPlayer returns a Player that always fails; audio output needs cgo.
func NewPlayer() Player {
	return stubPlayer{}
}

type stubPlayer struct{}

func (stubPlayer) Play(context.Context, []byte, int) error {
	return ErrPlaybackUnavailable
}
