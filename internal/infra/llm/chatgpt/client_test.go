package chatgpt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateChatCompletion(t *testing.T) {
	t.Parallel()

	var (
		received ChatCompletionRequest
		path     string
		auth     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[{"message":{"role":"assistant","content":"  [] "},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":1,"total_tokens":13}}`))
	}))
	defer srv.Close()

	client, err := NewClient("secret", srv.URL+"/", time.Second)
	require.NoError(t, err)

	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model:    "sonar",
		Messages: []Message{{Role: "user", Content: "events?"}},
	})
	require.NoError(t, err)
	require.Equal(t, "[]", resp.Content())
	require.Equal(t, 12, resp.Usage.PromptTokens)
	require.Equal(t, "sonar", received.Model)
	require.Equal(t, "/chat/completions", path)
	require.Equal(t, "Bearer secret", auth)
}

func TestCreateChatCompletionStatusError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status    int
		temporary bool
	}{
		{status: http.StatusTooManyRequests, temporary: true},
		{status: http.StatusBadGateway, temporary: true},
		{status: http.StatusUnauthorized, temporary: false},
		{status: http.StatusBadRequest, temporary: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			client, err := NewClient("secret", srv.URL, time.Second)
			require.NoError(t, err)
			_, err = client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			require.Equal(t, tc.status, statusErr.StatusCode)
			require.Equal(t, tc.temporary, statusErr.Temporary())
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(" ", "", 0)
	require.Error(t, err)
}
