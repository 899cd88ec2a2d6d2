package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func waitForClients(t *testing.T, s *Stream, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d clients, have %d", n, s.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamBroadcast(t *testing.T) {
	stream := NewStream()
	defer stream.Close()

	srv := httptest.NewServer(stream)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForClients(t, stream, 1)

	sum := summaryWith(9, 2, 3)
	if err := stream.Publish(context.Background(), sum); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got TurnSummary
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Turn != 9 || got.SpeciesCount != 2 || len(got.Species) != 2 {
		t.Errorf("received %+v, want turn 9 with 2 species", got)
	}
}

func TestStreamDropsDisconnected(t *testing.T) {
	stream := NewStream()
	defer stream.Close()

	srv := httptest.NewServer(stream)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForClients(t, stream, 1)

	conn.Close()
	waitForClients(t, stream, 0)
}

func TestStreamPublishAfterClose(t *testing.T) {
	stream := NewStream()
	stream.Close()

	err := stream.Publish(context.Background(), TurnSummary{Turn: 1})
	if !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Publish after Close = %v, want ErrStreamClosed", err)
	}

	// Close is idempotent
	if err := stream.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
