package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/privatepub/internal/infrastructure/config"
	"github.com/nerrad567/privatepub/internal/pubsub"
)

// capturedRequest is what the fake broker saw.
type capturedRequest struct {
	method      string
	path        string
	contentType string
	message     string
}

// fakeBroker starts an httptest server that records publishes and replies with status.
func fakeBroker(t *testing.T, status int) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()

	requests := make(chan capturedRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		requests <- capturedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			message:     r.PostForm.Get("message"),
		}
		w.WriteHeader(status)
		w.Write([]byte(`[{"successful":true}]`)) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)

	return srv, requests
}

func TestPublishMessage_NoServer(t *testing.T) {
	p := New(config.PubSubConfig{SecretToken: "abc"}, nil)

	resp, err := p.PublishTo(context.Background(), "/chat", pubsub.Data("hi"))
	if !errors.Is(err, ErrNoServer) {
		t.Fatalf("PublishTo() error = %v, want ErrNoServer", err)
	}
	if !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("error %v should match config.ErrConfiguration", err)
	}
	if resp != nil {
		t.Errorf("resp = %+v, want nil", resp)
	}
}

func TestPublishMessage_InvalidServer(t *testing.T) {
	tests := []string{
		"ftp://broker.example.com/faye",
		"localhost:9292",
		"http://",
		"http://%zz",
	}

	for _, server := range tests {
		p := New(config.PubSubConfig{Server: server}, nil)
		_, err := p.PublishTo(context.Background(), "/chat", pubsub.Data(nil))
		if !errors.Is(err, config.ErrConfiguration) {
			t.Errorf("server %q: error = %v, want configuration error", server, err)
		}
	}
}

func TestPublishMessage_RoundTrip(t *testing.T) {
	srv, requests := fakeBroker(t, http.StatusOK)
	p := New(config.PubSubConfig{Server: srv.URL + "/faye", SecretToken: "abc"}, nil)

	msg := p.Build("/chat", pubsub.Data(map[string]any{"text": "hello"}))
	resp, err := p.PublishMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("PublishMessage() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK || !resp.OK() {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if string(resp.Body) != `[{"successful":true}]` {
		t.Errorf("Body = %s", resp.Body)
	}

	got := <-requests
	if got.method != http.MethodPost {
		t.Errorf("method = %s, want POST", got.method)
	}
	if got.path != "/faye" {
		t.Errorf("path = %s, want /faye", got.path)
	}
	if got.contentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %s", got.contentType)
	}

	var decoded pubsub.Message
	if err := json.Unmarshal([]byte(got.message), &decoded); err != nil {
		t.Fatalf("decoding message field: %v", err)
	}
	if !reflect.DeepEqual(&decoded, msg) {
		t.Errorf("broker received %+v, want %+v", decoded, *msg)
	}
	if decoded.Ext.PrivatePubToken != "abc" {
		t.Errorf("token = %q, want abc", decoded.Ext.PrivatePubToken)
	}
}

func TestPublishMessage_DefaultPath(t *testing.T) {
	srv, requests := fakeBroker(t, http.StatusOK)
	p := New(config.PubSubConfig{Server: srv.URL + "?ignored=1"}, nil)

	if _, err := p.PublishTo(context.Background(), "/chat", pubsub.Script("1+1")); err != nil {
		t.Fatalf("PublishTo() error = %v", err)
	}

	if got := <-requests; got.path != "/" {
		t.Errorf("path = %q, want /", got.path)
	}
}

func TestPublishMessage_NonSuccessStatus(t *testing.T) {
	srv, _ := fakeBroker(t, http.StatusInternalServerError)

	lenient := New(config.PubSubConfig{Server: srv.URL}, nil)
	resp, err := lenient.PublishTo(context.Background(), "/chat", pubsub.Data(1))
	if err != nil {
		t.Fatalf("lenient PublishTo() error = %v, want nil", err)
	}
	if resp.OK() {
		t.Error("OK() = true for a 500 response")
	}
}

func TestPublishMessage_StrictStatus(t *testing.T) {
	srv, _ := fakeBroker(t, http.StatusForbidden)

	strict := New(config.PubSubConfig{Server: srv.URL, StrictStatus: true}, nil)
	resp, err := strict.PublishTo(context.Background(), "/chat", pubsub.Data(1))
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("strict PublishTo() error = %v, want ErrUnexpectedStatus", err)
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("resp = %+v, want the 403 response", resp)
	}
}

func TestPublishMessage_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	server := srv.URL
	srv.Close()

	p := New(config.PubSubConfig{Server: server}, nil)
	_, err := p.PublishTo(context.Background(), "/chat", pubsub.Data(1))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("PublishTo() error = %v, want ErrTransport", err)
	}
}

func TestPublishMessage_CancelledContext(t *testing.T) {
	srv, _ := fakeBroker(t, http.StatusOK)
	p := New(config.PubSubConfig{Server: srv.URL}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.PublishTo(ctx, "/chat", pubsub.Data(1))
	if !errors.Is(err, ErrTransport) || !errors.Is(err, context.Canceled) {
		t.Fatalf("PublishTo() error = %v, want ErrTransport wrapping context.Canceled", err)
	}
}

func TestPublishMessage_TLS(t *testing.T) {
	var gotMessage string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMessage = r.FormValue("message")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(config.PubSubConfig{Server: srv.URL + "/faye"}, nil)
	trusted := srv.Client().Transport.(*http.Transport).TLSClientConfig.RootCAs
	p.client.Transport.(*http.Transport).TLSClientConfig.RootCAs = trusted

	if _, err := p.PublishTo(context.Background(), "/secure", pubsub.Data("x")); err != nil {
		t.Fatalf("PublishTo() over TLS error = %v", err)
	}
	if gotMessage == "" {
		t.Error("TLS broker received no message field")
	}
}

func TestPublisher_Observers(t *testing.T) {
	srv, _ := fakeBroker(t, http.StatusAccepted)
	p := New(config.PubSubConfig{Server: srv.URL}, nil)

	var mu sync.Mutex
	var results []Result
	p.AddObserver(ObserverFunc(func(_ context.Context, r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}))

	if _, err := p.PublishTo(context.Background(), "/chat", pubsub.Data(1)); err != nil {
		t.Fatalf("PublishTo() error = %v", err)
	}
	noServer := New(config.PubSubConfig{}, nil)
	noServer.AddObserver(ObserverFunc(func(_ context.Context, r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}))
	noServer.PublishTo(context.Background(), "/other", pubsub.Data(1)) //nolint:errcheck // error asserted via observer

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 2 {
		t.Fatalf("observed %d results, want 2", len(results))
	}
	if results[0].Channel != "/chat" || results[0].StatusCode != http.StatusAccepted || results[0].Err != nil {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Channel != "/other" || !errors.Is(results[1].Err, ErrNoServer) {
		t.Errorf("second result = %+v", results[1])
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:9292/faye", "http://localhost:9292/faye"},
		{"http://localhost:9292", "http://localhost:9292/"},
		{"https://faye.example.com/faye?x=1#frag", "https://faye.example.com/faye"},
	}

	for _, tt := range tests {
		got, err := endpointURL(tt.server)
		if err != nil {
			t.Errorf("endpointURL(%q) error = %v", tt.server, err)
			continue
		}
		if got != tt.want {
			t.Errorf("endpointURL(%q) = %q, want %q", tt.server, got, tt.want)
		}
	}
}

type recordedPublish struct {
	channel string
	status  int
	err     error
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedPublish
}

func (f *fakeRecorder) RecordPublish(channel string, statusCode int, _ time.Duration, err error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedPublish{channel, statusCode, err})
	f.mu.Unlock()
}

func TestRecorderObserver(t *testing.T) {
	srv, _ := fakeBroker(t, http.StatusOK)
	p := New(config.PubSubConfig{Server: srv.URL}, nil)
	rec := &fakeRecorder{}
	p.AddObserver(RecorderObserver(rec))

	if _, err := p.PublishTo(context.Background(), "/metrics", pubsub.Data(1)); err != nil {
		t.Fatalf("PublishTo() error = %v", err)
	}

	if len(rec.calls) != 1 || rec.calls[0] != (recordedPublish{"/metrics", http.StatusOK, nil}) {
		t.Errorf("recorded = %+v", rec.calls)
	}
}
