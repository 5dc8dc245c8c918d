package llm

import (
	"net/http"

	"github.com/comigor/resume-chat/internal/config"
	"github.com/sashabaranov/go-openai"
)

// NewClient creates an OpenAI-compatible client bounded by cfg.Timeout that
// attaches the attribution headers the remote service expects.
func NewClient(cfg config.LLMConfig) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	headers := http.Header{}
	if cfg.AppURL != "" {
		headers.Set("HTTP-Referer", cfg.AppURL)
	}
	if cfg.AppTitle != "" {
		headers.Set("X-Title", cfg.AppTitle)
	}
	config.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &headerTransport{base: http.DefaultTransport, headers: headers},
	}

	return openai.NewClientWithConfig(config)
}

type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header[k] = v
	}
	return t.base.RoundTrip(req)
}
