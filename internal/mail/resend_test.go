package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendSend(t *testing.T) {
	t.Run("successful plain text send", func(t *testing.T) {
		var gotPath string
		var gotPayload resendPayload

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"id":"msg_123"}`))
		}))
		defer server.Close()

		transport := NewResend(ResendConfig{
			APIKey:    "test-key",
			FromEmail: "no-reply@mailflow.dev",
			FromName:  "Mailflow",
			BaseURL:   server.URL,
		}, discardLogger())

		err := transport.Send(context.Background(), &Message{
			To:      "a@x.com",
			Subject: "Hello",
			Body:    "World",
		})
		require.NoError(t, err)

		assert.Equal(t, "/emails", gotPath)
		assert.Equal(t, "Mailflow <no-reply@mailflow.dev>", gotPayload.From)
		assert.Equal(t, []string{"a@x.com"}, gotPayload.To)
		assert.Equal(t, "World", gotPayload.Text)
		assert.Empty(t, gotPayload.HTML)
	})

	t.Run("html content goes to html field", func(t *testing.T) {
		var gotPayload resendPayload

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		transport := NewResend(ResendConfig{
			APIKey:    "test-key",
			FromEmail: "no-reply@mailflow.dev",
			BaseURL:   server.URL,
		}, discardLogger())

		err := transport.Send(context.Background(), &Message{
			To:          "a@x.com",
			Subject:     "Hello",
			Body:        "<p>World</p>",
			ContentType: ContentTypeHTML,
		})
		require.NoError(t, err)

		assert.Equal(t, "<p>World</p>", gotPayload.HTML)
		assert.Empty(t, gotPayload.Text)
	})

	t.Run("rate limit response is retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		transport := NewResend(ResendConfig{
			APIKey:    "test-key",
			FromEmail: "no-reply@mailflow.dev",
			BaseURL:   server.URL,
		}, discardLogger())

		err := transport.Send(context.Background(), &Message{To: "a@x.com", Subject: "s", Body: "b"})
		require.Error(t, err)

		var sendErr *SendError
		require.ErrorAs(t, err, &sendErr)
		assert.Equal(t, "resend", sendErr.Provider)
		assert.True(t, sendErr.Retryable())
	})
}
