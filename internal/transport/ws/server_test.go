package ws

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"privatestarving.io/internal/config"
	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/catalogs"
	"privatestarving.io/internal/sim/world"
)

func newWorld(t *testing.T, mutate func(*config.Config)) *world.World {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	require.NoError(t, err)
	cfg := config.Defaults()
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := world.New(cfg, cats)
	require.NoError(t, err)
	w.SetLogger(log.New(io.Discard, "", 0))
	return w
}

func startWorld(t *testing.T, w *world.World) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, w.Ready, 2*time.Second, 5*time.Millisecond)
}

func dial(t *testing.T, w *world.World) *websocket.Conn {
	t.Helper()
	return dialServer(t, NewServer(w, log.New(io.Discard, "", 0)))
}

func dialServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return mt, msg
}

func requireClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "err=%v", err)
}

func TestServer_RejectsWhileStarting(t *testing.T) {
	w := newWorld(t, nil)
	conn := dial(t, w)

	mt, msg := read(t, conn)
	require.Equal(t, websocket.TextMessage, mt)
	require.Equal(t, `[4,"Server is starting!"]`, string(msg))
	requireClosed(t, conn)
}

func TestServer_HandshakeAndLeave(t *testing.T) {
	w := newWorld(t, nil)
	startWorld(t, w)
	conn := dial(t, w)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`["24","alice",2]`)))
	mt, msg := read(t, conn)
	require.Equal(t, websocket.TextMessage, mt)
	require.True(t, strings.HasPrefix(string(msg), `[3,1,40,[[1,"alice",2]]`), "handshake=%s", msg)

	// The starter loadout follows as a binary inventory frame.
	for {
		mt, msg = read(t, conn)
		if mt == websocket.BinaryMessage {
			require.Equal(t, byte(protocol.BinInventory), msg[0])
			break
		}
	}
	require.Equal(t, 1, w.PlayerCount())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return w.PlayerCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestServer_FullServerGetsLocalizedNoticeThenClose(t *testing.T) {
	w := newWorld(t, func(c *config.Config) { c.MaxPlayers = 1 })
	startWorld(t, w)

	first := dial(t, w)
	require.NoError(t, first.WriteMessage(websocket.TextMessage, []byte(`["24","a",0]`)))
	_, msg := read(t, first)
	require.True(t, strings.HasPrefix(string(msg), "[3,"))

	second := dial(t, w)
	mt, msg := read(t, second)
	require.Equal(t, websocket.BinaryMessage, mt)
	require.Equal(t, []byte{protocol.BinLocalized, byte(protocol.LocalizedFull)}, msg)
	requireClosed(t, second)
	require.Equal(t, 1, w.PlayerCount())
}

func TestServer_VersionMismatchClosesAfterNotice(t *testing.T) {
	w := newWorld(t, nil)
	startWorld(t, w)
	conn := dial(t, w)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`["25","x",0]`)))
	_, msg := read(t, conn)
	require.Equal(t, `[4,"You have too new version!"]`, string(msg))
	requireClosed(t, conn)
	require.Equal(t, 0, w.PlayerCount())
}

func TestServer_WriterExitsAfterCleanClose(t *testing.T) {
	w := newWorld(t, nil)
	startWorld(t, w)
	s := NewServer(w, log.New(io.Discard, "", 0))

	var conns []*websocket.Conn
	for i := 0; i < 5; i++ {
		conn := dialServer(t, s)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`["24","p",0]`)))
		_, msg := read(t, conn)
		require.True(t, strings.HasPrefix(string(msg), "[3,"))
		conns = append(conns, conn)
	}
	require.Equal(t, int32(5), s.writers.Load())

	for _, conn := range conns {
		require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	}
	require.Eventually(t, func() bool { return s.writers.Load() == 0 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return w.PlayerCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}
