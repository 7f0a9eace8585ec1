package hub

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the feed is read-only progress; any dashboard origin may listen
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades to a read-only progress feed. The greeting is written
// before the socket joins the hub, so Publish never races it.
func WSHandler(h *Hub, runs RunLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logf("[hub] ws upgrade from %s: %v", c.ClientIP(), err)
			return
		}

		for _, line := range h.greeting("websocket", runs) {
			if err := ws.WriteMessage(websocket.TextMessage, line); err != nil {
				_ = ws.Close()
				return
			}
		}
		h.AddWS(ws)
		h.logf("[hub] ws client connected: %s", c.ClientIP())

		// listeners never send; a read error means they went away
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		h.RemoveWS(ws)
		h.logf("[hub] ws client disconnected: %s", c.ClientIP())
	}
}
