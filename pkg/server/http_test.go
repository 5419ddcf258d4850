package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlastlabs/yatra/pkg/agent"
	"github.com/atlastlabs/yatra/pkg/session"
	"github.com/atlastlabs/yatra/pkg/store"
	"github.com/atlastlabs/yatra/pkg/translate"
)

// stubCompletion always answers with the same reply.
type stubCompletion struct {
	reply string
}

func (s *stubCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, nil
}

func (s *stubCompletion) Name() string { return "stub" }

// recordingStore captures writes and can be forced to fail reads.
type recordingStore struct {
	exchanges []store.ExchangeRecord
	readErr   error
}

func (r *recordingStore) Record(ctx context.Context, userQuery, botReply string) error {
	r.exchanges = append(r.exchanges, store.ExchangeRecord{
		ID:        int64(len(r.exchanges) + 1),
		UserQuery: userQuery,
		BotReply:  botReply,
		CreatedAt: time.Now(),
	})
	return nil
}

func (r *recordingStore) AllRecords(ctx context.Context) ([]store.ExchangeRecord, error) {
	if r.readErr != nil {
		return []store.ExchangeRecord{}, r.readErr
	}
	return r.exchanges, nil
}

func (r *recordingStore) Close() error { return nil }

func logrusDiscard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(records store.Store) *HTTPServer {
	sessions := session.NewManager(func() *agent.Assistant {
		return agent.NewAssistant(agent.Config{
			Pool:       translate.NewPool(nil, nil),
			Completion: &stubCompletion{reply: "Hi there!"},
			Mode:       agent.ReplyCanonical,
		})
	}, 0, nil)

	return NewHTTPServer(sessions, records, logrusDiscard(), 0)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		reader = new(bytes.Buffer)
		require.NoError(t, json.NewEncoder(reader).Encode(body))
	} else {
		reader = new(bytes.Buffer)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGreetRoutes(t *testing.T) {
	srv := newTestServer(&recordingStore{})
	handler := srv.Handler()

	for _, path := range []string{"/", "/greet"} {
		rec := doJSON(t, handler, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, agent.Greeting, payload["message"])
	}
}

func TestChatReturnsReplyAndSessionID(t *testing.T) {
	records := &recordingStore{}
	srv := newTestServer(records)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/chat", map[string]string{"message": "Hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Response  string `json:"response"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "Hi there!", payload.Response)
	assert.NotEmpty(t, payload.SessionID)

	// The exchange was persisted.
	require.Len(t, records.exchanges, 1)
	assert.Equal(t, "Hello", records.exchanges[0].UserQuery)
	assert.Equal(t, "Hi there!", records.exchanges[0].BotReply)
}

func TestChatEmptyMessageRejectedWithoutStoreWrite(t *testing.T) {
	records := &recordingStore{}
	srv := newTestServer(records)
	handler := srv.Handler()

	for _, body := range []interface{}{
		map[string]string{"message": ""},
		map[string]string{"message": "   "},
		nil,
	} {
		rec := doJSON(t, handler, http.MethodPost, "/chat", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var payload struct {
			Response string `json:"response"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, emptyMessageReply, payload.Response)
	}

	assert.Empty(t, records.exchanges, "empty input must not reach the store")
}

func TestChatReusesSession(t *testing.T) {
	srv := newTestServer(&recordingStore{})
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/chat", map[string]string{"message": "Hello"})
	var first struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = doJSON(t, handler, http.MethodPost, "/chat", map[string]string{
		"message":    "And again",
		"session_id": first.SessionID,
	})
	var second struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestHistoryReturnsRecords(t *testing.T) {
	records := &recordingStore{}
	require.NoError(t, records.Record(context.Background(), "q1", "r1"))

	srv := newTestServer(records)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload []store.ExchangeRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload, 1)
	assert.Equal(t, "q1", payload[0].UserQuery)
}

func TestHistoryUnavailableReturnsError(t *testing.T) {
	srv := newTestServer(&recordingStore{readErr: fmt.Errorf("store down")})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/history", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload["error"])
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&recordingStore{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "healthy", payload["status"])
}

func TestUnknownPathIs404(t *testing.T) {
	srv := newTestServer(&recordingStore{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
