package speech

import (
	"context"
	"errors"
)

var (
	ErrUnavailable = errors.New("speech service unavailable")
	ErrBlankText   = errors.New("nothing to speak")
)

type Audio struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Speaker turns text into playable audio. Callers own the speaker and must
// Close it.
type Speaker interface {
	Speak(ctx context.Context, text string) (Audio, error)
	Close() error
}

// Recognizer turns a recorded utterance into text.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Disabled is used when speech is switched off in the configuration.
type Disabled struct{}

func (Disabled) Speak(context.Context, string) (Audio, error) {
	return Audio{}, ErrUnavailable
}

func (Disabled) Recognize(context.Context, []byte, string) (string, error) {
	return "", ErrUnavailable
}

func (Disabled) Close() error { return nil }
