package http

import (
	"context"
	"io"
	"iter"
	"net"
	gohttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/transport"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	return ln
}

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	srv := NewServer(newMockStreamer("0:\"hi\"\n"))
	ln := listen(t)
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeOn(ctx, ln) }()

	resp, err := gohttp.Post("http://"+addr+ChatPath, "application/json", strings.NewReader(helloBody))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusOK)
	}
	if string(body) != "0:\"hi\"\n" {
		t.Errorf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeOn returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerGracefulShutdownWaitsForStream(t *testing.T) {
	slow := transport.ChatStreamerFunc(func(ctx context.Context, _ *api.ChatRequest, _ api.Protocol) (iter.Seq2[string, error], error) {
		return func(yield func(string, error) bool) {
			select {
			case <-time.After(200 * time.Millisecond):
				yield("0:\"done\"\n", nil)
			case <-ctx.Done():
				yield("", ctx.Err())
			}
		}, nil
	})

	srv := NewServer(slow, WithShutdownTimeout(5*time.Second))
	ln := listen(t)
	addr := ln.Addr().String()
	go srv.ServeOn(context.Background(), ln)

	bodyCh := make(chan string, 1)
	go func() {
		resp, err := gohttp.Post("http://"+addr+ChatPath, "application/json", strings.NewReader(helloBody))
		if err != nil {
			bodyCh <- "error: " + err.Error()
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		bodyCh <- string(b)
	}()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}

	if got := <-bodyCh; got != "0:\"done\"\n" {
		t.Errorf("slow stream body = %q", got)
	}
}

func TestServerShutdownDeadlineCancelsStreams(t *testing.T) {
	started := make(chan struct{})
	canceled := make(chan struct{})
	blocking := transport.ChatStreamerFunc(func(ctx context.Context, _ *api.ChatRequest, _ api.Protocol) (iter.Seq2[string, error], error) {
		return func(yield func(string, error) bool) {
			if !yield("0:\"a\"\n", nil) {
				return
			}
			close(started)
			<-ctx.Done()
			close(canceled)
		}, nil
	})

	srv := NewServer(blocking)
	ln := listen(t)
	go srv.ServeOn(context.Background(), ln)

	go func() {
		resp, err := gohttp.Post("http://"+ln.Addr().String()+ChatPath, "application/json", strings.NewReader(helloBody))
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := srv.Shutdown(ctx); err == nil {
		t.Error("expected a deadline error from Shutdown")
	}

	select {
	case <-canceled:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight stream was not canceled")
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	srv := NewServer(newMockStreamer(),
		WithAddr(":9999"),
		WithMaxBodySize(1024),
		WithTimeouts(5*time.Second, 0),
		WithShutdownTimeout(10*time.Second),
		WithCORSOrigins([]string{"http://localhost:3000"}),
		WithMetricsPath(""),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.config.MaxBodySize != 1024 {
		t.Errorf("max body size = %d, want %d", srv.config.MaxBodySize, 1024)
	}
	if srv.config.ReadTimeout != 5*time.Second || srv.httpServer.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v", srv.config.ReadTimeout)
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, 10*time.Second)
	}
	if srv.config.MetricsPath != "" {
		t.Errorf("metrics path = %q", srv.config.MetricsPath)
	}
}
