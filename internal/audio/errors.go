package audio

import "fmt"

// DecodeError reports an audio payload that could not be turned into a
// playable clip, including payloads that decode to zero duration.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s audio: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// PlaybackError reports a failure of the output device or the player state
// machine.
type PlaybackError struct {
	Op  string
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.Op, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
