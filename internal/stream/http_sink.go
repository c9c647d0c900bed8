package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"sync"
	"time"
)

// HTTPSink serves the most recent frame. GET / and /frame.jpg return it as a
// single JPEG, GET /stream pushes every new frame as MJPEG
// (multipart/x-mixed-replace).
type HTTPSink struct {
	log *slog.Logger

	mu      sync.Mutex
	frame   []byte
	seq     uint64
	updated chan struct{}

	done      chan struct{}
	closeOnce sync.Once
	srv       *http.Server
	ln        net.Listener
}

// NewHTTPSink returns a sink that is not yet listening; use Handler to mount
// it or Start to serve it.
func NewHTTPSink(logger *slog.Logger) *HTTPSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPSink{
		log:     logger,
		updated: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Send copies frame and wakes every streaming client.
func (s *HTTPSink) Send(_ context.Context, seq uint64, frame []byte) error {
	s.mu.Lock()
	s.frame = bytes.Clone(frame)
	s.seq = seq
	close(s.updated)
	s.updated = make(chan struct{})
	s.mu.Unlock()
	return nil
}

// latest returns the current frame, its sequence number and a channel closed
// on the next Send.
func (s *HTTPSink) latest() ([]byte, uint64, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.seq, s.updated
}

// Handler returns the HTTP routes of the sink.
func (s *HTTPSink) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.serveFrame)
	mux.HandleFunc("GET /frame.jpg", s.serveFrame)
	mux.HandleFunc("GET /stream", s.serveStream)
	return mux
}

func (s *HTTPSink) serveFrame(w http.ResponseWriter, r *http.Request) {
	frame, seq, _ := s.latest()
	if frame == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame)))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(seq, 10))
	_, _ = w.Write(frame)
}

func (s *HTTPSink) serveStream(w http.ResponseWriter, r *http.Request) {
	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	s.log.Debug("mjpeg client connected", slog.String("remote", r.RemoteAddr))
	defer s.log.Debug("mjpeg client disconnected", slog.String("remote", r.RemoteAddr))

	var sent uint64
	for {
		frame, seq, updated := s.latest()
		if frame != nil && seq != sent {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Type", "image/jpeg")
			header.Set("Content-Length", strconv.Itoa(len(frame)))
			header.Set("X-Frame-Seq", strconv.FormatUint(seq, 10))
			part, err := mw.CreatePart(header)
			if err != nil {
				return
			}
			if _, err := part.Write(frame); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			sent = seq
		}
		select {
		case <-updated:
		case <-r.Context().Done():
			return
		case <-s.done:
			_ = mw.Close()
			return
		}
	}
}

// Start listens on bind and serves Handler in the background.
func (s *HTTPSink) Start(bind string) error {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("stream: listen on %s: %w", bind, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("serving frames", slog.String("url", "http://"+ln.Addr().String()+"/"))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http sink stopped", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *HTTPSink) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Close ends all streams and shuts the server down.
func (s *HTTPSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.srv == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = s.srv.Shutdown(ctx)
	})
	return err
}
