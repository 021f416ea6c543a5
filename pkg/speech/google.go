package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/google/uuid"
	"github.com/smith3v/tg-phrasebook/pkg/config"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

// Synthesizer is the part of the Cloud TTS client GoogleSpeaker needs.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) ([]byte, error)
	Close() error
}

type ClientFactory func(ctx context.Context) (Synthesizer, error)

type cloudClient struct {
	client *texttospeech.Client
}

func (c *cloudClient) Synthesize(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) ([]byte, error) {
	resp, err := c.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.AudioContent, nil
}

func (c *cloudClient) Close() error {
	return c.client.Close()
}

// NewCloudClient connects with the application default credentials.
func NewCloudClient(ctx context.Context) (Synthesizer, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &cloudClient{client: client}, nil
}

// GoogleSpeaker synthesises MP3 audio with Cloud Text-to-Speech. Calls are
// serialised. After a failure the client is dropped and the next call
// re-initialises it once before giving up with ErrUnavailable.
type GoogleSpeaker struct {
	mu      sync.Mutex
	cfg     config.TTSConfig
	factory ClientFactory
	client  Synthesizer
	closed  bool
}

func NewGoogleSpeaker(ctx context.Context, cfg config.TTSConfig, factory ClientFactory) *GoogleSpeaker {
	if factory == nil {
		factory = NewCloudClient
	}
	s := &GoogleSpeaker{cfg: cfg, factory: factory}
	client, err := factory(ctx)
	if err != nil {
		logger.Warn("text-to-speech not ready, will retry on first use", "error", err)
	} else {
		s.client = client
	}
	return s
}

func (s *GoogleSpeaker) Speak(ctx context.Context, text string) (Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Audio{}, ErrBlankText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Audio{}, ErrUnavailable
	}
	if s.client == nil {
		client, err := s.factory(ctx)
		if err != nil {
			logger.Error("failed to re-initialise text-to-speech", "error", err)
			return Audio{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		logger.Info("text-to-speech re-initialised")
		s.client = client
	}

	data, err := s.client.Synthesize(ctx, s.request(text))
	if err != nil {
		logger.Error("speech synthesis failed", "error", err)
		if closeErr := s.client.Close(); closeErr != nil {
			logger.Debug("failed to close text-to-speech client", "error", closeErr)
		}
		s.client = nil
		return Audio{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return Audio{
		Data:     data,
		MIMEType: "audio/mpeg",
		Filename: uuid.NewString() + ".mp3",
	}, nil
}

func (s *GoogleSpeaker) request(text string) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: s.cfg.LanguageCode,
			Name:         s.cfg.VoiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  s.cfg.SpeakingRate,
		},
	}
}

func (s *GoogleSpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
