package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"taskdeck-cli/internal/model"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collectStatuses(t *testing.T, ch <-chan Status, timeout time.Duration) []Status {
	t.Helper()
	var got []Status
	deadline := time.After(timeout)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, s)
		case <-deadline:
			t.Fatalf("timed out waiting for status stream to close; got %v", got)
		}
	}
}

func TestWSChannelDeliversEventsThenCloses(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("topic"); got != "tasks" {
			t.Errorf("topic query: got %q", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"insert","after":{"id":"t1","projectId":"p1","assignedTo":["u1"]}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"delete","before":{"id":"t1","projectId":"p1"}}`))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		// Give the client a moment to read the close frame.
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	var events []model.ChangeEvent
	c := NewWSChannel(wsURL(srv))
	statusCh, err := c.Subscribe(context.Background(), "tasks", func(ev model.ChangeEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	statuses := collectStatuses(t, statusCh, 5*time.Second)
	want := []Status{StatusConnecting, StatusSubscribed, StatusClosed}
	if len(statuses) != len(want) {
		t.Fatalf("statuses: got %v want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("statuses: got %v want %v", statuses, want)
		}
	}

	// The malformed frame is skipped; the two valid events arrive in order.
	if len(events) != 2 || events[0].Op != model.OpInsert || events[1].Op != model.OpDelete {
		t.Fatalf("events: got %+v", events)
	}
	if events[0].After == nil || !events[0].After.AssignedToUser("u1") {
		t.Fatalf("insert payload: got %+v", events[0].After)
	}
}

func TestWSChannelDialFailureReportsError(t *testing.T) {
	c := NewWSChannel("ws://127.0.0.1:1/feed") // nothing listens here
	statusCh, err := c.Subscribe(context.Background(), "tasks", func(model.ChangeEvent) {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	statuses := collectStatuses(t, statusCh, 5*time.Second)
	if len(statuses) != 2 || statuses[0] != StatusConnecting || statuses[1].Terminal() == false {
		t.Fatalf("expected connecting then a terminal status, got %v", statuses)
	}
}

func TestWSChannelUnsubscribeReportsClosed(t *testing.T) {
	upgrader := websocket.Upgrader{}
	connected := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		close(connected)
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := NewWSChannel(wsURL(srv))
	statusCh, err := c.Subscribe(context.Background(), "tasks", func(model.ChangeEvent) {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	<-connected
	if err := c.Unsubscribe(); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	statuses := collectStatuses(t, statusCh, 5*time.Second)
	if len(statuses) == 0 || statuses[len(statuses)-1] != StatusClosed {
		t.Fatalf("expected trailing closed status, got %v", statuses)
	}
}
