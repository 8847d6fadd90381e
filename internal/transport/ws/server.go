package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/world"
)

const (
	outQueue     = 256
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader

	// writers counts live writer goroutines.
	writers atomic.Int32
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // browser clients come from any origin
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.world.Ready() {
			_ = writePacket(conn, protocol.MessagePacket(protocol.MsgServerStarting))
			closeConn(conn, websocket.CloseNormalClosure)
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan protocol.Packet, outQueue)
		done := make(chan struct{})
		s.writers.Add(1)
		go s.writeLoop(ctx, conn, out, done)

		respCh := make(chan world.ConnectResponse, 1)
		s.world.Connect() <- world.ConnectRequest{Out: out, Resp: respCh}
		resp := <-respCh
		if resp.Rejected != nil {
			// The world already queued the notice and the close.
			<-done
			return
		}
		sessionID := resp.SessionID

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				s.logClose(sessionID, err)
				break
			}
			if mt != websocket.TextMessage {
				s.log.Printf("session %s: ignoring binary frame (%d bytes)", sessionID, len(msg))
				continue
			}
			s.world.Inbox() <- world.Envelope{SessionID: sessionID, Raw: msg}
		}

		// Cleanup.
		s.world.Leave() <- sessionID
	}
}

// writeLoop drains out until a Close packet, a write error or the handler returning.
// It never closes out; the world owns it.
func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan protocol.Packet, done chan<- struct{}) {
	defer s.writers.Add(-1)
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-out:
			if p.Close {
				closeConn(conn, websocket.CloseNormalClosure)
				return
			}
			if err := writePacket(conn, p); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (s *Server) logClose(sessionID string, err error) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if s.world.Config().IsCleanClose(ce.Code) {
			return
		}
		s.log.Printf("session %s: closed with code %d %q", sessionID, ce.Code, ce.Text)
		return
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	s.log.Printf("session %s: read: %v", sessionID, err)
}

func writePacket(conn *websocket.Conn, p protocol.Packet) error {
	mt := websocket.TextMessage
	if p.Binary {
		mt = websocket.BinaryMessage
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(mt, p.Data)
}

func closeConn(conn *websocket.Conn, code int) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(time.Second))
}
