package http

import (
	"fmt"
	"io"
	"net/http"
)

// DataStreamHeader marks responses that follow the data stream protocol.
const DataStreamHeader = "x-vercel-ai-data-stream"

// frameWriter writes stream outputs to the client, flushing after each one.
// Headers are committed with the first frame so that an error before it
// can still be answered with a JSON error response.
type frameWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	frames  int
}

func newFrameWriter(w http.ResponseWriter) *frameWriter {
	return &frameWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

func (f *frameWriter) start() {
	if f.started {
		return
	}
	h := f.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set(DataStreamHeader, "v1")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	f.w.WriteHeader(http.StatusOK)
	f.started = true
}

// WriteFrame writes s and flushes it to the client.
func (f *frameWriter) WriteFrame(s string) error {
	f.start()
	if _, err := io.WriteString(f.w, s); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	f.frames++
	if err := f.rc.Flush(); err != nil {
		return fmt.Errorf("flushing frame: %w", err)
	}
	return nil
}

// Finish commits the headers of a stream that produced no output.
func (f *frameWriter) Finish() {
	f.start()
}

// Started reports whether the response headers have been written.
func (f *frameWriter) Started() bool {
	return f.started
}

// Frames returns the number of frames written.
func (f *frameWriter) Frames() int {
	return f.frames
}
