package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeEndpoint spins up a LibreTranslate-shaped test server. translated is
// returned for /translate, detected for /detect; a non-2xx status simulates a
// broken mirror. calls counts every request hitting the endpoint.
func newFakeEndpoint(t *testing.T, translated, detected string, status int, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		switch r.URL.Path {
		case "/translate":
			json.NewEncoder(w).Encode(map[string]string{"translatedText": translated})
		case "/detect":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"language": detected, "confidence": 92.5},
			})
		case "/languages":
			json.NewEncoder(w).Encode([]map[string]string{
				{"code": "en", "name": "English"},
				{"code": "hi", "name": "Hindi"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestPoolTranslateFirstProviderWins(t *testing.T) {
	var first, second atomic.Int64
	srv1 := newFakeEndpoint(t, "hello", "hi", http.StatusOK, &first)
	defer srv1.Close()
	srv2 := newFakeEndpoint(t, "wrong", "hi", http.StatusOK, &second)
	defer srv2.Close()

	pool, err := NewPoolFromEndpoints([]Endpoint{
		{Name: "one", URL: srv1.URL, Detect: true},
		{Name: "two", URL: srv2.URL, Detect: true},
	}, nil)
	require.NoError(t, err)

	got := pool.Translate(context.Background(), "namaste", "hi", "en")
	assert.Equal(t, "hello", got)
	assert.Equal(t, int64(1), first.Load())
	assert.Equal(t, int64(0), second.Load(), "second endpoint must not be called when the first succeeds")
}

func TestPoolTranslateFailsOverInOrder(t *testing.T) {
	var first, second atomic.Int64
	srv1 := newFakeEndpoint(t, "", "", http.StatusInternalServerError, &first)
	defer srv1.Close()
	srv2 := newFakeEndpoint(t, "hello", "hi", http.StatusOK, &second)
	defer srv2.Close()

	pool, err := NewPoolFromEndpoints([]Endpoint{
		{Name: "down", URL: srv1.URL, Detect: true},
		{Name: "up", URL: srv2.URL, Detect: true},
	}, nil)
	require.NoError(t, err)

	got := pool.Translate(context.Background(), "namaste", "hi", "en")
	assert.Equal(t, "hello", got)
	assert.Equal(t, int64(1), first.Load())
	assert.Equal(t, int64(1), second.Load())
}

func TestPoolTranslateAllProvidersDownReturnsOriginal(t *testing.T) {
	var calls atomic.Int64
	srv := newFakeEndpoint(t, "", "", http.StatusBadGateway, &calls)
	defer srv.Close()

	pool, err := NewPoolFromEndpoints([]Endpoint{
		{Name: "down1", URL: srv.URL, Detect: true},
		{Name: "down2", URL: srv.URL, Detect: true},
		{Name: "unreachable", URL: "http://127.0.0.1:1", Detect: true},
	}, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		got := pool.Translate(context.Background(), "namaste duniya", "hi", "en")
		assert.Equal(t, "namaste duniya", got)
	})
}

func TestPoolTranslateShortCircuits(t *testing.T) {
	var calls atomic.Int64
	srv := newFakeEndpoint(t, "should-not-see-this", "en", http.StatusOK, &calls)
	defer srv.Close()

	pool, err := NewPoolFromEndpoints([]Endpoint{{Name: "only", URL: srv.URL, Detect: true}}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	// Same source and target: no network call.
	assert.Equal(t, "hello", pool.Translate(ctx, "hello", "en", "en"))
	// Empty and whitespace-only text: no network call.
	assert.Equal(t, "", pool.Translate(ctx, "", "hi", "en"))
	assert.Equal(t, "   ", pool.Translate(ctx, "   ", "hi", "en"))

	assert.Equal(t, int64(0), calls.Load())
}

func TestPoolDetect(t *testing.T) {
	var calls atomic.Int64
	srv := newFakeEndpoint(t, "", "HI", http.StatusOK, &calls)
	defer srv.Close()

	pool, err := NewPoolFromEndpoints([]Endpoint{{Name: "only", URL: srv.URL, Detect: true}}, nil)
	require.NoError(t, err)

	got := pool.Detect(context.Background(), "namaste")
	assert.Equal(t, "hi", got, "detected codes are lowercased")
}

func TestPoolDetectSkipsTranslateOnlyEndpoints(t *testing.T) {
	var translateOnly, detectCapable atomic.Int64
	srv1 := newFakeEndpoint(t, "x", "xx", http.StatusOK, &translateOnly)
	defer srv1.Close()
	srv2 := newFakeEndpoint(t, "x", "ta", http.StatusOK, &detectCapable)
	defer srv2.Close()

	pool, err := NewPoolFromEndpoints([]Endpoint{
		{Name: "translate-only", URL: srv1.URL, Detect: false},
		{Name: "detects", URL: srv2.URL, Detect: true},
	}, nil)
	require.NoError(t, err)

	got := pool.Detect(context.Background(), "vanakkam")
	assert.Equal(t, "ta", got)
	assert.Equal(t, int64(0), translateOnly.Load())
	assert.Equal(t, int64(1), detectCapable.Load())
}

func TestPoolDetectAllDownReturnsDefault(t *testing.T) {
	var calls atomic.Int64
	srv := newFakeEndpoint(t, "", "", http.StatusServiceUnavailable, &calls)
	defer srv.Close()

	pool, err := NewPoolFromEndpoints([]Endpoint{{Name: "down", URL: srv.URL, Detect: true}}, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.Equal(t, DefaultLanguage, pool.Detect(context.Background(), "namaste"))
	})

	// Empty text resolves without the network.
	calls.Store(0)
	assert.Equal(t, DefaultLanguage, pool.Detect(context.Background(), "  "))
	assert.Equal(t, int64(0), calls.Load())
}

func TestPoolCheckHealthCountsHealthyProviders(t *testing.T) {
	var up, down atomic.Int64
	srvUp := newFakeEndpoint(t, "x", "hi", http.StatusOK, &up)
	defer srvUp.Close()
	srvDown := newFakeEndpoint(t, "", "", http.StatusBadGateway, &down)
	defer srvDown.Close()

	pool, err := NewPoolFromEndpoints([]Endpoint{
		{Name: "up", URL: srvUp.URL, Detect: true},
		{Name: "down", URL: srvDown.URL, Detect: true},
		{Name: "unreachable", URL: "http://127.0.0.1:1", Detect: true},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, pool.CheckHealth(context.Background()))
	assert.Equal(t, int64(1), up.Load())
}

func TestClientCheckHealthRequiresLanguageList(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{})
	}))
	defer empty.Close()

	client := NewLibreClient("empty", empty.URL, 0, true, nil)
	assert.Error(t, client.CheckHealth(context.Background()))
}

func TestClientSupportedLanguages(t *testing.T) {
	var calls atomic.Int64
	srv := newFakeEndpoint(t, "", "", http.StatusOK, &calls)
	defer srv.Close()

	client := NewLibreClient("fake", srv.URL, 0, true, nil)
	codes, err := client.SupportedLanguages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "hi"}, codes)

	require.NoError(t, client.CheckHealth(context.Background()))
}

func TestDefaultEndpointsOrder(t *testing.T) {
	endpoints := DefaultEndpoints()
	require.Len(t, endpoints, 3)
	assert.Equal(t, "libretranslate-de", endpoints[0].Name)
	assert.True(t, endpoints[0].Detect)
}

func TestEndpointNameDerivation(t *testing.T) {
	assert.Equal(t, "translate.example.com", endpointName("https://translate.example.com/api"))
	assert.Equal(t, "localhost", endpointName("http://localhost:5000"))
}
