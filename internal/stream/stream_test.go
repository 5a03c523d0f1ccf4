package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/framewise/composure/internal/composition"
	"github.com/framewise/composure/internal/detect"
	"github.com/framewise/composure/internal/geometry"
	"github.com/framewise/composure/internal/pipeline"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/results"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d (have %d)", n, h.ClientCount())
}

func sampleEvaluation(t *testing.T) pipeline.Evaluation {
	t.Helper()
	obs := detect.Observation{
		Bounds:     geometry.Rect{X: 0.3, Y: 0.3, W: 0.2, H: 0.3},
		Kind:       detect.KindFace,
		Confidence: 0.9,
	}
	frame := geometry.Size{Width: 1000, Height: 1000}
	result, err := composition.Evaluate(composition.RuleOfThirds, obs, frame, nil, composition.DefaultTuning())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return pipeline.Evaluation{Seq: 7, Observation: obs, Result: result}
}

func TestBroadcastReachesClient(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv)
	defer conn.Close()
	waitForClients(t, h, 1)

	if n := h.Broadcast(sampleEvaluation(t)); n != 1 {
		t.Fatalf("Broadcast delivered to %d clients, want 1", n)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("unmarshal %q: %v", payload, err)
	}
	if doc["composition"] != "rule_of_thirds" {
		t.Fatalf("composition = %v, want rule_of_thirds", doc["composition"])
	}
	if _, ok := doc["score"]; !ok {
		t.Fatal("payload missing score")
	}
	if _, ok := doc["context"]; !ok {
		t.Fatal("payload missing context")
	}
}

func TestBroadcastFansOut(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()
	defer h.Close()

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()
	waitForClients(t, h, 2)

	if n := h.Broadcast(sampleEvaluation(t)); n != 2 {
		t.Fatalf("Broadcast delivered to %d clients, want 2", n)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
}

func TestEnqueueDropsOldest(t *testing.T) {
	c := &client{send: make(chan []byte, 2)}

	c.enqueue([]byte("a"))
	c.enqueue([]byte("b"))
	c.enqueue([]byte("c")) // evicts "a"

	if got := string(<-c.send); got != "b" {
		t.Fatalf("first queued = %q, want b", got)
	}
	if got := string(<-c.send); got != "c" {
		t.Fatalf("second queued = %q, want c", got)
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv)
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)
}

func TestCloseRejectsNewConnections(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	h.Close()
	h.Close() // idempotent

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/results"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("dial should fail after Close")
	}
}
