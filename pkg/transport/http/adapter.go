package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/observability"
	"github.com/rhuss/chatrelay/pkg/transport"
)

// Route paths served by the adapter.
const (
	RootPath   = "/"
	HealthPath = "/health"
	ChatPath   = "/api/chat"
)

// Adapter serves the chat API over HTTP.
// It routes requests to the appropriate handler and streams responses.
type Adapter struct {
	streamer transport.ChatStreamer
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
	logger   *slog.Logger
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	Validation  api.ValidationConfig

	// CORSOrigins lists the allowed browser origins; "*" allows any.
	CORSOrigins []string

	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string

	Logger *slog.Logger
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
		Validation:  api.DefaultValidationConfig(),
		CORSOrigins: []string{"*"},
		MetricsPath: "/metrics",
		Logger:      slog.Default(),
	}
}

// NewAdapter creates an HTTP adapter for the given ChatStreamer.
// Middleware is applied to the streamer in the given order.
func NewAdapter(streamer transport.ChatStreamer, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		streamer = transport.Chain(middlewares...)(streamer)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &Adapter{
		streamer: streamer,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
		logger:   cfg.Logger,
	}

	a.mux.HandleFunc("GET /{$}", a.handleRoot)
	a.mux.HandleFunc("GET "+HealthPath, a.handleHealth)
	a.mux.HandleFunc("POST "+ChatPath, a.handleChat)
	if cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	return a
}

// InFlight returns the registry of streams currently being written.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for metrics, request ID propagation and CORS.
func (a *Adapter) Handler() http.Handler {
	routes := []string{RootPath, HealthPath, ChatPath}
	if a.config.MetricsPath != "" {
		routes = append(routes, a.config.MetricsPath)
	}

	var h http.Handler = a.mux
	h = corsMiddleware(a.config.CORSOrigins)(h)
	h = httpRequestIDMiddleware(h)
	h = observability.MetricsMiddleware(routes)(h)
	return h
}

// httpRequestIDMiddleware takes the request ID from the X-Request-ID header
// or generates one, stores it in the request context and echoes it in the
// response headers.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(transport.RequestIDHeader)
		if id == "" {
			id = transport.NewRequestID()
		}
		w.Header().Set(transport.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

func (a *Adapter) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}

func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Healthy!"})
}

// handleChat handles POST /api/chat.
func (a *Adapter) handleChat(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	proto, apiErr := api.ParseProtocol(r.URL.Query().Get("protocol"))
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	if apiErr := api.ValidateChatRequest(&req, a.config.Validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	a.streamChat(w, r, &req, proto)
}

// streamChat opens the stream and writes every output as it is produced.
// Leaving the loop early stops the sequence, which releases the upstream.
func (a *Adapter) streamChat(w http.ResponseWriter, r *http.Request, req *api.ChatRequest, proto api.Protocol) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	requestID := transport.RequestIDFromContext(ctx)
	untrack := a.inflight.Track(requestID, cancel)
	defer untrack()

	seq, err := a.streamer.Stream(ctx, req, proto)
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}

	fw := newFrameWriter(w)
	for out, err := range seq {
		if err != nil {
			a.writeStreamError(w, fw, requestID, err)
			return
		}
		if err := fw.WriteFrame(out); err != nil {
			debug.Log("transport", "client write failed", "request_id", requestID, "error", err)
			return
		}
	}
	fw.Finish()
}

// writeStreamError writes a JSON error when nothing was streamed yet.
// Once output has been sent the response is truncated instead.
func (a *Adapter) writeStreamError(w http.ResponseWriter, fw *frameWriter, requestID string, err error) {
	apiErr := transport.AsAPIError(err)
	if !fw.Started() {
		transport.WriteAPIError(w, apiErr)
		return
	}
	a.logger.Warn("stream truncated",
		slog.String("request_id", requestID),
		slog.Int("frames", fw.Frames()),
		slog.String("error_type", string(apiErr.Type)),
		slog.String("error", err.Error()),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
