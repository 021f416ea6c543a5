package translation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/config"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

type stubTranslator struct {
	calls int
	from  string
	to    string
	reply string
	err   error
}

func (s *stubTranslator) Translate(_ context.Context, _ string, from, to string) (string, error) {
	s.calls++
	s.from, s.to = from, to
	return s.reply, s.err
}

func TestDictionaryLookupBothDirections(t *testing.T) {
	dict := DefaultDictionary()
	tests := []struct {
		text string
		dir  Direction
		want string
		ok   bool
	}{
		{"  Good Morning ", SourceToTarget, "buenos días", true},
		{"¿Cómo estás?", TargetToSource, "how are you?", true},
		{"hola", TargetToSource, "hello", true},
		{"gracias", TargetToSource, "thank you", true},
		{"spaceship", SourceToTarget, "", false},
	}
	for _, tt := range tests {
		got, ok := dict.Lookup(tt.text, tt.dir)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("Lookup(%q, %s) = %q, %v; want %q, %v", tt.text, tt.dir, got, ok, tt.want, tt.ok)
		}
	}
}

func TestServicePrefersDictionary(t *testing.T) {
	fallback := &stubTranslator{reply: "unused"}
	svc := NewService(DefaultDictionary(), fallback, "en", "es")

	got, err := svc.Translate(context.Background(), "Dog", SourceToTarget)
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != (Result{Text: "perro", Origin: OriginDictionary}) {
		t.Fatalf("unexpected result %+v", got)
	}
	if fallback.calls != 0 {
		t.Fatalf("expected fallback not to be called, got %d calls", fallback.calls)
	}
}

func TestServiceFallbackSwapsLanguages(t *testing.T) {
	fallback := &stubTranslator{reply: "the red house"}
	svc := NewService(DefaultDictionary(), fallback, "en", "es")

	got, err := svc.Translate(context.Background(), "la casa roja", TargetToSource)
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got.Origin != OriginFallback || got.Text != "the red house" {
		t.Fatalf("unexpected result %+v", got)
	}
	if fallback.from != "es" || fallback.to != "en" {
		t.Fatalf("expected es->en, got %s->%s", fallback.from, fallback.to)
	}
}

func TestServiceWithoutMatchReturnsInput(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)
	svc := NewService(DefaultDictionary(), nil, "en", "es")
	got, err := svc.Translate(context.Background(), "spaceship", SourceToTarget)
	if err != nil || got != (Result{Text: "spaceship", Origin: OriginNone}) {
		t.Fatalf("unexpected result %+v, %v", got, err)
	}

	boom := errors.New("offline")
	svc = NewService(DefaultDictionary(), &stubTranslator{err: boom}, "en", "es")
	got, err = svc.Translate(context.Background(), "spaceship", SourceToTarget)
	if !errors.Is(err, boom) || got.Text != "spaceship" || got.Origin != OriginNone {
		t.Fatalf("expected unchanged text with error, got %+v, %v", got, err)
	}

	got, err = svc.Translate(context.Background(), "   ", SourceToTarget)
	if err != nil || got.Text != "" {
		t.Fatalf("expected empty result for blank input, got %+v, %v", got, err)
	}
}

func newLibreServer(t *testing.T, healthy *atomic.Bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/languages", func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"code":"en"},{"code":"es"}]`))
	})
	mux.HandleFunc("/translate", func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad request"}`))
			return
		}
		if req.Q == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"model not loaded"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"translatedText": req.Source + ">" + req.Target + ":" + req.Q,
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestLibreTranslateClient(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := newLibreServer(t, &healthy)
	client := NewLibreTranslate(server.URL+"/", "", time.Second)

	got, err := client.Translate(context.Background(), "la mesa", "es", "en")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "es>en:la mesa" {
		t.Fatalf("unexpected translation %q", got)
	}

	if _, err := client.Translate(context.Background(), "fail", "es", "en"); err == nil {
		t.Fatal("expected error from failing translate")
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}

func TestReadyRetriesAfterFailure(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)
	var healthy atomic.Bool
	server := newLibreServer(t, &healthy)
	svc := NewServiceFromConfig(config.TranslationConfig{
		SourceLang:     "en",
		TargetLang:     "es",
		FallbackURL:    server.URL,
		TimeoutSeconds: 1,
	})

	ctx := context.Background()
	first := svc.Ready(ctx)
	if _, err := first.Wait(ctx); err == nil {
		t.Fatal("expected readiness to fail while the server is unhealthy")
	}

	healthy.Store(true)
	second := svc.Ready(ctx)
	if second == first {
		t.Fatal("expected a new readiness check after failure")
	}
	if _, err := second.Wait(ctx); err != nil {
		t.Fatalf("expected readiness after recovery, got %v", err)
	}
	if svc.Ready(ctx) != second {
		t.Fatal("expected completed readiness to be reused")
	}
}

func TestReadyWithoutFallbackIsImmediate(t *testing.T) {
	svc := NewServiceFromConfig(config.TranslationConfig{SourceLang: "en", TargetLang: "es"})
	if svc.HasFallback() {
		t.Fatal("expected no fallback without a URL")
	}
	select {
	case <-svc.Ready(context.Background()).Done():
	default:
		t.Fatal("expected dictionary-only service to be ready")
	}
}
