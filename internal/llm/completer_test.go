package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comigor/resume-chat/internal/config"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		BaseURL:     baseURL,
		APIKey:      "sk-test",
		Model:       "amazon/nova-lite-v1:free",
		Timeout:     2 * time.Second,
		MaxTokens:   500,
		Temperature: 0.3,
		AppURL:      "https://portfolio.example.com",
		AppTitle:    "Portfolio",
	}
}

func newCompleter(t *testing.T, handler http.HandlerFunc, mutate ...func(*config.LLMConfig)) *ChatCompleter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := testConfig(srv.URL + "/v1")
	for _, m := range mutate {
		m(&cfg)
	}
	return NewChatCompleter(NewClient(cfg), cfg)
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id": "gen-1",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
}

func TestComplete_SendsFixedParametersAndHeaders(t *testing.T) {
	c := newCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.Equal(t, "https://portfolio.example.com", r.Header.Get("HTTP-Referer"))
		require.Equal(t, "Portfolio", r.Header.Get("X-Title"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "amazon/nova-lite-v1:free", body["model"])
		require.EqualValues(t, 500, body["max_tokens"])
		require.InDelta(t, 0.3, body["temperature"], 1e-6)

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		require.Equal(t, "system", msgs[0].(map[string]any)["role"])
		require.Equal(t, "RESUME", msgs[0].(map[string]any)["content"])
		require.Equal(t, "user", msgs[1].(map[string]any)["role"])
		require.Equal(t, "What is your email?", msgs[1].(map[string]any)["content"])

		writeCompletion(w, "  My email is bagatejuily15@gmail.com.\n")
	})

	out, err := c.Complete(context.Background(), "RESUME", "What is your email?")
	require.NoError(t, err)
	require.Equal(t, "My email is bagatejuily15@gmail.com.", out)
}

func TestComplete_RemoteStatus(t *testing.T) {
	c := newCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","code":429}}`))
	})

	_, err := c.Complete(context.Background(), "sys", "hi")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestComplete_RemoteStatusWithoutErrorBody(t *testing.T) {
	c := newCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := c.Complete(context.Background(), "sys", "hi")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestComplete_Timeout(t *testing.T) {
	c := newCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}, func(cfg *config.LLMConfig) { cfg.Timeout = 50 * time.Millisecond })

	_, err := c.Complete(context.Background(), "sys", "hi")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestComplete_Transport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig(url + "/v1")
	c := NewChatCompleter(NewClient(cfg), cfg)

	_, err := c.Complete(context.Background(), "sys", "hi")
	require.ErrorIs(t, err, ErrTransport)
}

func TestComplete_Malformed(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"gen-1","choices":[]}`))
		},
		"empty content": func(w http.ResponseWriter, r *http.Request) {
			writeCompletion(w, "   ")
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newCompleter(t, h)
			_, err := c.Complete(context.Background(), "sys", "hi")
			require.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

type mockLLM struct {
	resp   openai.ChatCompletionResponse
	models openai.ModelsList
	err    error
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return m.resp, m.err
}

func (m *mockLLM) ListModels(ctx context.Context) (openai.ModelsList, error) {
	return m.models, m.err
}

func TestClassify_ContextDeadline(t *testing.T) {
	c := NewChatCompleter(&mockLLM{err: context.DeadlineExceeded}, testConfig("http://unused"))
	_, err := c.Complete(context.Background(), "sys", "hi")
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClassify_CallerCanceled(t *testing.T) {
	c := NewChatCompleter(&mockLLM{err: context.Canceled}, testConfig("http://unused"))
	_, err := c.Complete(context.Background(), "sys", "hi")
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrTransport)
	require.NotErrorIs(t, err, ErrTimeout)
}

func TestListFreeModels(t *testing.T) {
	client := &mockLLM{models: openai.ModelsList{Models: []openai.Model{
		{ID: "amazon/nova-lite-v1:free"},
		{ID: "openai/gpt-4o"},
		{ID: "meta-llama/llama-3.1-8b-instruct:free"},
	}}}

	ids, err := ListFreeModels(context.Background(), client)
	require.NoError(t, err)
	require.Equal(t, []string{"amazon/nova-lite-v1:free", "meta-llama/llama-3.1-8b-instruct:free"}, ids)

	_, err = ListFreeModels(context.Background(), &mockLLM{err: errors.New("dial tcp: refused")})
	require.ErrorIs(t, err, ErrTransport)
}

func TestListFreeModels_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"a:free"},{"id":"b"}]}`))
	}))
	defer srv.Close()

	ids, err := ListFreeModels(context.Background(), NewClient(testConfig(srv.URL+"/v1")))
	require.NoError(t, err)
	require.Equal(t, []string{"a:free"}, ids)
}
