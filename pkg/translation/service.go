package translation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/async"
	"github.com/smith3v/tg-phrasebook/pkg/config"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

type Direction int

const (
	SourceToTarget Direction = iota
	TargetToSource
)

func (d Direction) String() string {
	if d == TargetToSource {
		return "target-to-source"
	}
	return "source-to-target"
}

// Origin says which stage produced a translation.
type Origin string

const (
	OriginNone       Origin = "none"
	OriginDictionary Origin = "dictionary"
	OriginFallback   Origin = "fallback"
)

type Result struct {
	Text   string
	Origin Origin
}

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Pinger is implemented by translators that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	dict       *Dictionary
	fallback   Translator
	sourceLang string
	targetLang string

	mu    sync.Mutex
	ready *async.Future[struct{}]
}

func NewService(dict *Dictionary, fallback Translator, sourceLang, targetLang string) *Service {
	return &Service{
		dict:       dict,
		fallback:   fallback,
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
}

// NewServiceFromConfig uses the built-in dictionary and, when a fallback URL
// is configured, a LibreTranslate client.
func NewServiceFromConfig(cfg config.TranslationConfig) *Service {
	var fallback Translator
	if strings.TrimSpace(cfg.FallbackURL) != "" {
		fallback = NewLibreTranslate(cfg.FallbackURL, cfg.APIKey, time.Duration(cfg.TimeoutSeconds)*time.Second)
	}
	return NewService(DefaultDictionary(), fallback, cfg.SourceLang, cfg.TargetLang)
}

// Translate looks text up in the dictionary, then asks the fallback. Without
// a match the input is returned unchanged with OriginNone. A fallback error
// is returned together with that unchanged result.
func (s *Service) Translate(ctx context.Context, text string, dir Direction) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{Origin: OriginNone}, nil
	}
	if value, ok := s.dict.Lookup(text, dir); ok {
		return Result{Text: value, Origin: OriginDictionary}, nil
	}
	unchanged := Result{Text: text, Origin: OriginNone}
	if s.fallback == nil {
		return unchanged, nil
	}

	from, to := s.sourceLang, s.targetLang
	if dir == TargetToSource {
		from, to = to, from
	}
	translated, err := s.fallback.Translate(ctx, strings.TrimSpace(text), from, to)
	if err != nil {
		logger.Warn("fallback translation failed", "direction", dir.String(), "error", err)
		return unchanged, err
	}
	return Result{Text: translated, Origin: OriginFallback}, nil
}

// Ready returns a future that completes once the fallback answers. A
// dictionary-only service is ready at once. After a failed check the next
// call starts a new one.
func (s *Service) Ready(ctx context.Context) *async.Future[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready != nil {
		_, done, err := s.ready.Peek()
		if !done || err == nil {
			return s.ready
		}
		logger.Info("retrying translation readiness check after failure", "error", err)
	}

	pinger, ok := s.fallback.(Pinger)
	if !ok {
		f := async.NewFuture[struct{}]()
		f.Resolve(struct{}{})
		s.ready = f
		return f
	}
	s.ready = async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, pinger.Ping(ctx)
	})
	return s.ready
}

func (s *Service) HasFallback() bool {
	return s.fallback != nil
}

// Languages returns the configured source and target language codes.
func (s *Service) Languages() (string, string) {
	return s.sourceLang, s.targetLang
}
