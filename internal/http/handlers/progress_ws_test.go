package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"reelforge/internal/generation"
)

func TestProgressWSStreamsUntilComplete(t *testing.T) {
	stream := &stubStream{events: []generation.StreamEvent{
		{Type: generation.StreamEventConnected},
		{Type: generation.StreamEventProgress, Snapshot: &generation.Snapshot{ProjectID: "p1", TotalJobs: 2, RunningCount: 1, CompletedCount: 1, Percent: 50}},
		{Type: generation.StreamEventComplete, Snapshot: &generation.Snapshot{ProjectID: "p1", TotalJobs: 2, CompletedCount: 2, Percent: 100, Done: true}},
	}}
	app := newTestApp(nil, nil, nil, stream)
	server := httptest.NewServer(newTestRouter(app))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/projects/p1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var types []string
	for {
		var ev generation.StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		types = append(types, ev.Type)
		if ev.Type == generation.StreamEventComplete {
			if ev.Snapshot == nil || !ev.Snapshot.Done {
				t.Fatalf("complete event snapshot = %+v", ev.Snapshot)
			}
		}
	}

	want := []string{
		generation.StreamEventConnected,
		generation.StreamEventProgress,
		generation.StreamEventComplete,
	}
	if len(types) != len(want) {
		t.Fatalf("received %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("received %v, want %v", types, want)
		}
	}
}
