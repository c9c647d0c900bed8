package stream_test

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jackzfdai/wifi-camera/internal/config"
	"github.com/jackzfdai/wifi-camera/internal/stream"
)

func TestFileSinkWritesFrames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	sink, err := stream.NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	defer sink.Close()

	payload := []byte{0xff, 0xd8, 1, 2, 3, 0xff, 0xd9}
	if err := sink.Send(t.Context(), 42, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	path := sink.FramePath(42)
	if filepath.Base(path) != "frame-00000042.jpg" {
		t.Fatalf("unexpected frame path %q", path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("frame contents differ: %x", got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}
}

func TestFileSinkLocksDirectory(t *testing.T) {
	dir := t.TempDir()
	first, err := stream.NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if _, err := stream.NewFileSink(dir); !errors.Is(err, stream.ErrOutputLocked) {
		t.Fatalf("expected ErrOutputLocked, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	second, err := stream.NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink after unlock: %v", err)
	}
	second.Close()
}

func TestHTTPSinkServesLatestFrame(t *testing.T) {
	sink := stream.NewHTTPSink(nil)
	ts := httptest.NewServer(sink.Handler())
	defer ts.Close()
	defer sink.Close()

	resp, err := http.Get(ts.URL + "/frame.jpg")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first frame, got %d", resp.StatusCode)
	}

	frame := []byte{0xff, 0xd8, 9, 0xff, 0xd9}
	sink.Send(t.Context(), 7, frame)
	// The sink keeps its own copy.
	frame[2] = 0

	resp, err = http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.Equal(body, []byte{0xff, 0xd8, 9, 0xff, 0xd9}) {
		t.Fatalf("unexpected body %x", body)
	}
	if resp.Header.Get("X-Frame-Seq") != "7" {
		t.Fatalf("unexpected seq header %q", resp.Header.Get("X-Frame-Seq"))
	}
}

func TestHTTPSinkStreamsMJPEG(t *testing.T) {
	sink := stream.NewHTTPSink(nil)
	ts := httptest.NewServer(sink.Handler())
	defer ts.Close()
	defer sink.Close()

	sink.Send(t.Context(), 1, []byte("first"))

	req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.URL+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /stream: %v", err)
	}
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" {
		t.Fatalf("unexpected content type %q: %v", resp.Header.Get("Content-Type"), err)
	}
	mr := multipart.NewReader(resp.Body, params["boundary"])

	readPart := func() (string, string) {
		t.Helper()
		part, err := mr.NextPart()
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		// The closing boundary of a part is only written with the next
		// one, so read exactly Content-Length bytes.
		n, err := strconv.Atoi(part.Header.Get("Content-Length"))
		if err != nil {
			t.Fatalf("part length: %v", err)
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(part, data); err != nil {
			t.Fatalf("read part: %v", err)
		}
		return part.Header.Get("X-Frame-Seq"), string(data)
	}

	if seq, data := readPart(); seq != "1" || data != "first" {
		t.Fatalf("unexpected first part %s %q", seq, data)
	}
	sink.Send(t.Context(), 2, []byte("second"))
	if seq, data := readPart(); seq != "2" || data != "second" {
		t.Fatalf("unexpected second part %s %q", seq, data)
	}
}

func TestHTTPSinkStartAndClose(t *testing.T) {
	sink := stream.NewHTTPSink(nil)
	if sink.Addr() != "" {
		t.Fatal("expected no address before Start")
	}
	if err := sink.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sink.Send(t.Context(), 1, []byte{1})

	resp, err := http.Get("http://" + sink.Addr() + "/frame.jpg")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestOpenSink(t *testing.T) {
	cfg := config.Default().Stream
	cfg.Sink = config.SinkDiscard
	sink, err := stream.OpenSink(cfg, nil)
	if err != nil {
		t.Fatalf("OpenSink discard: %v", err)
	}
	if err := sink.Send(t.Context(), 1, nil); err != nil {
		t.Fatalf("discard Send: %v", err)
	}

	cfg.Sink = config.SinkFile
	cfg.OutputDir = t.TempDir()
	sink, err = stream.OpenSink(cfg, nil)
	if err != nil {
		t.Fatalf("OpenSink file: %v", err)
	}
	sink.Close()

	cfg.Sink = "udp"
	if _, err := stream.OpenSink(cfg, nil); err == nil {
		t.Fatal("expected error for unknown sink")
	}
}
