package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSendgridNotifierPostsMail(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewSendgridNotifier("test-key", "Tutor", "noreply@example.com")
	n.host = srv.URL

	err := n.Send(context.Background(), Message{
		Subject: "New lead - Dana",
		Body:    "phone: 050",
		To:      "teacher@example.com",
		ReplyTo: "dana@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "noreply@example.com", got["from"].(map[string]any)["email"])
	assert.Equal(t, "dana@example.com", got["reply_to"].(map[string]any)["email"])
}

func TestSendgridNotifierReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	n := NewSendgridNotifier("bad", "", "noreply@example.com")
	n.host = srv.URL

	err := n.Send(context.Background(), Message{Subject: "x", Body: "y", To: "teacher@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestSendgridNotifierRequiresRecipient(t *testing.T) {
	n := NewSendgridNotifier("key", "", "noreply@example.com")
	assert.Error(t, n.Send(context.Background(), Message{Subject: "x"}))
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Send(context.Background(), Message{Subject: "hello", To: "a@b.c"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].ContextMap()["subject"])
}
