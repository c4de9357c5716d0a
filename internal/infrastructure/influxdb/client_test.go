package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/privatepub/internal/infrastructure/config"
	"github.com/nerrad567/privatepub/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records line protocol written to /api/v2/write.
type fakeInflux struct {
	mu    sync.Mutex
	lines []string
	query []string
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		f.mu.Lock()
		f.query = append(f.query, r.URL.RawQuery)
		for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			if line != "" {
				f.lines = append(f.lines, line)
			}
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "privatepub-dev-token",
		Org:           "privatepub",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connectFake(t *testing.T, mutate func(*config.InfluxDBConfig)) (*influxdb.Client, *fakeInflux) {
	t.Helper()

	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, fake
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client, _ := connectFake(t, nil)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := influxdb.Connect(testConfig(url))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := influxdb.Connect(testConfig(srv.URL))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.BatchSize = -5
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false with default batch settings")
	}
}

// =============================================================================
// Write Tests
// =============================================================================

// closeAndCollect flushes the client and returns every line written.
func closeAndCollect(t *testing.T, client *influxdb.Client, fake *fakeInflux) []string {
	t.Helper()
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return fake.written()
}

func TestRecordPublish(t *testing.T) {
	client, fake := connectFake(t, nil)

	client.RecordPublish("/chat", 200, 12*time.Millisecond, nil)
	client.RecordPublish("/chat", 0, time.Millisecond, errors.New("refused"))

	lines := closeAndCollect(t, client, fake)
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "privatepub_publish,outcome=ok ") {
		t.Errorf("line 0 = %q", lines[0])
	}
	for _, field := range []string{`channel="/chat"`, "status=200i", "duration_ms=12"} {
		if !strings.Contains(lines[0], field) {
			t.Errorf("line 0 %q missing %s", lines[0], field)
		}
	}
	if !strings.HasPrefix(lines[1], "privatepub_publish,outcome=error ") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if q := fake.query[0]; !strings.Contains(q, "bucket=telemetry") || !strings.Contains(q, "org=privatepub") {
		t.Errorf("write query = %q", q)
	}
}

func TestRecordTickets(t *testing.T) {
	client, fake := connectFake(t, nil)

	client.RecordTicket()
	client.RecordVerification("expired")

	lines := closeAndCollect(t, client, fake)
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "privatepub_ticket,action=issued count=1i") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "privatepub_ticket,action=verified,result=expired count=1i") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestRecordEvent(t *testing.T) {
	client, fake := connectFake(t, nil)

	client.RecordEvent("subscribe", "/chat")
	client.RecordEvent("handshake", "")

	lines := closeAndCollect(t, client, fake)
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "privatepub_lifecycle,event=subscribe ") || !strings.Contains(lines[0], `channel="/chat"`) {
		t.Errorf("line 0 = %q", lines[0])
	}
	if strings.Contains(lines[1], "channel=") {
		t.Errorf("handshake should carry no channel: %q", lines[1])
	}
}

func TestConfiguredMeasurements(t *testing.T) {
	client, fake := connectFake(t, func(cfg *config.InfluxDBConfig) {
		cfg.Measurements = config.InfluxMeasurements{Publish: "pp_pub", Lifecycle: "pp_life"}
	})

	client.RecordPublish("/c", 200, time.Millisecond, nil)
	client.RecordTicket()
	client.RecordEvent("disconnect", "")

	lines := closeAndCollect(t, client, fake)
	want := []string{"pp_pub,", influxdb.DefaultTicketMeasurement + ",", "pp_life,"}
	if len(lines) != len(want) {
		t.Fatalf("wrote %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestClose(t *testing.T) {
	client, fake := connectFake(t, nil)

	client.RecordEvent("disconnect", "")
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if len(fake.written()) != 1 {
		t.Error("Close() should flush pending points")
	}

	client.RecordTicket()
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if len(fake.written()) != 1 {
		t.Error("writes after Close() must be dropped")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close() = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}
