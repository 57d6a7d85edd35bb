package controllers

import (
	"net/http"
	"time"

	"github.com/ciclus/rd-dashboard/middlewares"
	"github.com/ciclus/rd-dashboard/realtime"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origins are already filtered by the CORS layer and the token
	CheckOrigin: func(r *http.Request) bool { return true },
}

type RealtimeController struct {
	Hub *realtime.Hub
}

func NewRealtimeController(hub *realtime.Hub) *RealtimeController {
	return &RealtimeController{Hub: hub}
}

// Handler upgrades to the push channel. Clients receive change events and
// re-fetch; anything they send is ignored.
func (rc *RealtimeController) Handler(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.InfoLogger.Warnf("websocket upgrade: %v", err)
		return
	}

	userID := c.GetString(middlewares.CtxUserID)
	rc.Hub.RegisterClient(ws, userID, c.GetString(middlewares.CtxRole))
	defer rc.Hub.UnregisterClient(ws)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	utils.InfoLogger.Debugf("push client %s disconnected", userID)
}
