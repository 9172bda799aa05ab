package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin is enforced by the auth middleware's bearer token, not here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const streamWriteTimeout = 10 * time.Second

// StreamSnapshots pushes debounced snapshots over a websocket until the
// client disconnects. Each client is an independent emitter subscriber;
// closing one does not affect the others.
func StreamSnapshots(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := trackerFor(c, app)
		if t == nil {
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			app.Logger().Errorf("websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		snapshots, cancel := t.ObserveSnapshot()
		defer cancel()

		// Initial state first so the client never renders empty.
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(t.Snapshot()); err != nil {
			return
		}

		// Reader goroutine notices the client going away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteJSON(snap); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
