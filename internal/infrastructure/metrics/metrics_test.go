package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RecordPublish("/chat", 200, 5*time.Millisecond, nil)
	m.RecordPublish("/chat", 200, 7*time.Millisecond, nil)
	m.RecordPublish("/chat", 0, 0, errors.New("refused"))
	m.RecordEvent("subscribe", "/chat")
	m.RecordEvent("handshake", "")
	m.RecordTicket()
	m.RecordVerification("expired")

	body := scrape(t, m)

	want := []string{
		`privatepub_publish_total{outcome="ok"} 2`,
		`privatepub_publish_total{outcome="error"} 1`,
		`privatepub_publish_duration_seconds_count 2`,
		`privatepub_lifecycle_events_total{event="subscribe"} 1`,
		`privatepub_lifecycle_events_total{event="handshake"} 1`,
		`privatepub_tickets_issued_total 1`,
		`privatepub_ticket_verifications_total{result="expired"} 1`,
		`go_goroutines`,
	}
	for _, line := range want {
		if !strings.Contains(body, line) {
			t.Errorf("scrape missing %q", line)
		}
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordTicket()

	if strings.Contains(scrape(t, b), "privatepub_tickets_issued_total 1") {
		t.Error("registries should not share counters")
	}
}
