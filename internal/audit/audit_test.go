package audit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/seemly-ai/seemly/internal/pipeline"
	"github.com/seemly-ai/seemly/internal/policy"
	"github.com/seemly-ai/seemly/internal/signal"
)

func TestBuildEvent(t *testing.T) {
	res := pipeline.Result{
		Verdict: policy.Verdict{
			Outcome: policy.OutcomeUnsafe,
			Reasons: []string{"Weapon detected"},
		},
		Signals: signal.Set{
			Image: []signal.ImageSignal{{Category: signal.ImageWeapon, Score: 0.7}},
		},
		Degraded: []string{"ocr"},
		Timings:  pipeline.Timings{OCRMs: 12, ImageMs: 80, TotalMs: 95},
	}

	ev := BuildEvent("req-1", "proj-a", res)
	if ev.RequestID != "req-1" || ev.ProjectID != "proj-a" {
		t.Fatalf("identity fields wrong: %+v", ev)
	}
	if ev.Outcome != "UNSAFE" || !ev.Unsafe() {
		t.Fatalf("outcome = %q", ev.Outcome)
	}
	if ev.Scores["image.weapon"] != 0.7 {
		t.Fatalf("scores = %v", ev.Scores)
	}
	if ev.TimingMs.Total != 95 {
		t.Fatalf("timing = %+v", ev.TimingMs)
	}
}

func TestBuildEventSafeHasEmptyReasons(t *testing.T) {
	ev := BuildEvent("req-2", "", pipeline.Result{
		Verdict: policy.Verdict{Outcome: policy.OutcomeSafe},
	})
	if ev.Unsafe() {
		t.Fatal("SAFE event reported unsafe")
	}
	// Reasons serializes as [] rather than null.
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"reasons":[]`) {
		t.Fatalf("payload = %s", data)
	}
}

func TestFileSinkWritesJSONL(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "audit.jsonl")

	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("file sink: %v", err)
	}

	ev1 := &Event{Version: "1", Timestamp: time.Now(), RequestID: "req-1", Outcome: "SAFE", Reasons: []string{}}
	ev2 := &Event{Version: "1", Timestamp: time.Now(), RequestID: "req-2", Outcome: "UNSAFE", Reasons: []string{"Weapon detected"}}

	if err := sink.Deliver(context.Background(), ev1); err != nil {
		t.Fatalf("deliver 1: %v", err)
	}
	if err := sink.Deliver(context.Background(), ev2); err != nil {
		t.Fatalf("deliver 2: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close sink: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var decoded Event
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("unmarshal jsonl line: %v", err)
	}
	if decoded.RequestID != "req-2" || decoded.Outcome != "UNSAFE" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestWebhookSinkHandlesNon2xx(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("fail"))
	}))

	sink, err := NewWebhookSink(srv.URL, map[string]string{"X-Test": "1"}, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("webhook sink: %v", err)
	}
	ev := &Event{Version: "1", Timestamp: time.Now(), RequestID: "req-1", Outcome: "SAFE"}
	if err := sink.Deliver(context.Background(), ev); err == nil {
		t.Fatalf("expected non-2xx to return error")
	} else if !strings.Contains(err.Error(), "status") {
		t.Fatalf("error should mention status, got %v", err)
	}
}

func TestWebhookSinkRetriesTransientFailure(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	sink, err := NewWebhookSink(srv.URL, nil, time.Second)
	if err != nil {
		t.Fatalf("webhook sink: %v", err)
	}
	ev := &Event{Version: "1", Timestamp: time.Now(), RequestID: "req-1", Outcome: "SAFE"}
	if err := sink.Deliver(context.Background(), ev); err != nil {
		t.Fatalf("deliver after retries: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestEmitterDropsWhenQueueFull(t *testing.T) {
	wait := make(chan struct{})
	sink := &blockingSink{wait: wait}
	em := NewEmitter(EmitterConfig{QueueSize: 1, Workers: 1, ShutdownTimeout: time.Second}, []Sink{sink})

	ev := &Event{Version: "1", Timestamp: time.Now(), RequestID: "r1", Outcome: "SAFE"}
	em.Emit(context.Background(), ev)
	em.Emit(context.Background(), ev)
	em.Emit(context.Background(), ev)

	metrics := em.MetricsSnapshot()
	if metrics.Dropped() == 0 {
		t.Fatalf("expected dropped events when queue is full")
	}

	close(wait)
	em.Close(context.Background())
}

func TestEmitterWebhookIntegration(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Event
	)
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err == nil {
			mu.Lock()
			received = append(received, ev)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	}))

	sink, err := NewWebhookSink(srv.URL, nil, time.Second)
	if err != nil {
		t.Fatalf("webhook sink: %v", err)
	}
	em := NewEmitter(EmitterConfig{QueueSize: 8, Workers: 1, ShutdownTimeout: time.Second}, []Sink{sink})
	defer em.Close(context.Background())

	ev := &Event{Version: "1", Timestamp: time.Now(), RequestID: "integration", Outcome: "UNSAFE", Reasons: []string{"Weapon detected"}}
	for i := 0; i < 5; i++ {
		em.Emit(context.Background(), ev)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		if len(received) >= 5 {
			mu.Unlock()
			break
		}
		mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for webhook events, got %d", len(received))
		}
		time.Sleep(20 * time.Millisecond)
	}

	metrics := em.MetricsSnapshot()
	if metrics.SinkSuccess(sink.Name()) == 0 {
		t.Fatalf("expected sink success counter to increase")
	}
	if metrics.Dropped() != 0 {
		t.Fatalf("did not expect dropped events, got %d", metrics.Dropped())
	}
}

type blockingSink struct {
	wait chan struct{}
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Deliver(context.Context, *Event) error {
	<-s.wait
	return nil
}

func (s *blockingSink) Close(context.Context) error {
	if s.wait != nil {
		select {
		case <-s.wait:
		default:
			close(s.wait)
		}
	}
	return nil
}

func newTestServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping: cannot open listener: %v", err)
	}
	srv := httptest.NewUnstartedServer(h)
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}
