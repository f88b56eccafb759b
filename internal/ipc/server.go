package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"launcher/internal/logx"
)

const writeTimeout = 5 * time.Second

// Server accepts UI connections over websocket, answers their requests and
// pushes events to all of them.
type Server struct {
	Dispatcher *Dispatcher
	Logger     logx.Logger

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// NewServer returns a server dispatching to d.
func NewServer(d *Dispatcher, logger logx.Logger) *Server {
	return &Server{
		Dispatcher: d,
		Logger:     logx.OrDiscard(logger),
		conns:      map[string]*websocket.Conn{},
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.Logger.Printf("ipc: accept: %v", err)
		return
	}
	id := uuid.NewString()
	s.track(id, conn)
	defer s.terminate(id, conn)
	s.Logger.Printf("ipc: connection %s opened", id)

	ctx := r.Context()
	var inflight sync.WaitGroup
	defer inflight.Wait()
	for {
		var msg Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				s.Logger.Printf("ipc: connection %s: %v", id, err)
			}
			return
		}
		if msg.Type != TypeRequest {
			s.Logger.Printf("ipc: connection %s sent %q frame; ignoring", id, msg.Type)
			continue
		}

		inflight.Add(1)
		go func(req Message) {
			defer inflight.Done()
			resp := s.Dispatcher.Dispatch(ctx, req)
			if err := s.write(ctx, conn, resp); err != nil {
				s.Logger.Printf("ipc: respond to %s on %s: %v", req.Method, id, err)
			}
		}(msg)
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func (s *Server) track(id string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		s.conns = map[string]*websocket.Conn{}
	}
	s.conns[id] = conn
}

func (s *Server) terminate(id string, conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
	conn.CloseNow()
	s.Logger.Printf("ipc: connection %s closed", id)
}

// Connections reports how many UIs are attached.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Broadcast pushes an event to every connection. Connections that cannot
// take it are dropped.
func (s *Server) Broadcast(event string, data any) {
	msg := Message{Type: TypeEvent, ID: uuid.NewString(), Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			s.Logger.Printf("ipc: encode %s event: %v", event, err)
			return
		}
		msg.Data = raw
	}

	s.mu.Lock()
	conns := make(map[string]*websocket.Conn, len(s.conns))
	for id, conn := range s.conns {
		conns[id] = conn
	}
	s.mu.Unlock()

	for id, conn := range conns {
		if err := s.write(context.Background(), conn, msg); err != nil {
			s.Logger.Printf("ipc: send %s to %s: %v", event, id, err)
			s.terminate(id, conn)
		}
	}
}

// ShowError forwards an error dialog to every attached UI.
func (s *Server) ShowError(title, message string) {
	s.Broadcast(EventErrorDialog, ErrorDialog{Title: title, Message: message})
}

// ListenAndServe serves s on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
