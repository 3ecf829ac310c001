package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/observability"
	"github.com/rhuss/chatrelay/pkg/provider"
)

// Config configures the upstream connection.
type Config struct {
	APIKey string

	// BaseURL overrides the OpenAI API endpoint, e.g. http://localhost:8090/v1.
	BaseURL string

	// Model is used when a request does not name one.
	Model string

	// HeaderTimeout bounds the wait for the upstream response headers. It
	// does not limit the duration of the stream itself.
	HeaderTimeout time.Duration
}

// Provider streams chat completions from an OpenAI compatible API.
type Provider struct {
	client *openai.Client
	model  string
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Provider.
func New(cfg Config) *Provider {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.HeaderTimeout
	oc.HTTPClient = &http.Client{Transport: transport}

	return &Provider{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}
}

// Stream opens a streaming chat completion. Errors returned before the
// stream is open are *api.APIError values.
func (p *Provider) Stream(ctx context.Context, req *provider.Request) (provider.ChunkSource, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	chatReq, err := buildRequest(model, req)
	if err != nil {
		return nil, err
	}

	debug.Log("provider", "opening stream",
		"model", model,
		"messages", len(chatReq.Messages),
		"tools", len(chatReq.Tools),
	)

	start := time.Now()
	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	observability.ProviderLatency.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ProviderRequestsTotal.WithLabelValues(model, "error").Inc()
		return nil, mapError(err)
	}
	observability.ProviderRequestsTotal.WithLabelValues(model, "ok").Inc()

	return &chunkSource{stream: stream, model: model}, nil
}
