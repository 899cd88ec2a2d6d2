package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrStreamClosed is returned when publishing to a closed stream.
var ErrStreamClosed = errors.New("stream closed")

const (
	streamQueueSize    = 256
	streamWriteTimeout = 10 * time.Second
)

// Stream broadcasts turn summaries as JSON to connected websocket observers.
// Observers are read-only; anything they send is discarded.
type Stream struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader

	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewStream creates a stream and starts its broadcaster goroutine.
func NewStream() *Stream {
	s := &Stream{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, streamQueueSize),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// ServeHTTP upgrades the request to a websocket and registers the observer
// until it disconnects.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("stream upgrade failed", "error", err)
		return
	}

	select {
	case s.register <- conn:
	case <-s.done:
		conn.Close()
		return
	}

	// Drain until the observer goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	select {
	case s.unregister <- conn:
	case <-s.done:
	}
}

// Publish queues a summary for every connected observer.
func (s *Stream) Publish(ctx context.Context, sum TurnSummary) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return err
	}

	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}

	select {
	case s.broadcast <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStreamClosed
	}
}

// Clients returns the number of connected observers.
func (s *Stream) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Stream) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return

		case conn := <-s.register:
			s.mu.Lock()
			s.clients[conn] = true
			s.mu.Unlock()

		case conn := <-s.unregister:
			s.drop(conn)

		case data := <-s.broadcast:
			s.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				conns = append(conns, conn)
			}
			s.mu.RUnlock()

			for _, conn := range conns {
				conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					s.drop(conn)
				}
			}
		}
	}
}

func (s *Stream) drop(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
	}
}

// Close disconnects every observer and stops the broadcaster.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		s.mu.Lock()
		for conn := range s.clients {
			conn.Close()
			delete(s.clients, conn)
		}
		s.mu.Unlock()
	})
	return nil
}
