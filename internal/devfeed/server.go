// Package devfeed is a local development fixture: a websocket server that
// replays task change events from a JSONL file, so `taskdeck watch` and the
// reconnect path can be exercised without a hosted backend.
package devfeed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"taskdeck-cli/internal/model"
)

type Server struct {
	Addr       string
	EventsPath string

	// Interval paces replayed events; default 1s.
	Interval time.Duration
	// Loop restarts the file from the top instead of closing the stream.
	Loop bool

	upgrader websocket.Upgrader
}

// LoadEvents parses a JSONL file of change events, skipping blank lines.
func LoadEvents(path string) ([]model.ChangeEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []model.ChangeEvent
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev model.ChangeEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("devfeed: %s:%d: %w", path, line, err)
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListenAndServe serves /feed until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	// Dev fixture on localhost; any origin may connect.
	s.upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	mux := http.NewServeMux()
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		s.handleFeed(ctx, w, r)
	})

	srv := &http.Server{Addr: s.Addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleFeed(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		return
	}
	defer conn.Close()

	// Re-read per connection so the file can be edited between runs.
	events, err := LoadEvents(s.EventsPath)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
		return
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		for _, ev := range events {
			select {
			case <-ctx.Done():
				return
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
			frame, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
		if !s.Loop {
			break
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed done"))
}
