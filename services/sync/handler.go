package sync

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cliniq/models"
	"cliniq/utils"
)

// joinMessage is the single client-to-server frame the protocol requires: a
// role declaration sent immediately after connect.
type joinMessage struct {
	Action string      `json:"action"` // must be "join"
	Role   models.Role `json:"role"`
	UserID string      `json:"userId,omitempty"`
}

const joinDeadline = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler upgrades HTTP connections and attaches them to the hub.
type Handler struct {
	hub *Hub
}

// NewHandler creates a websocket handler bound to the hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleConnect upgrades the connection, waits for the role-join frame,
// registers the client, and starts the read/write pumps.
func (h *Handler) HandleConnect(c *gin.Context) {
	logger := utils.GetLogger()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("sync: websocket upgrade failed", zap.Error(err))
		return
	}

	// The first frame declares the role; without it the connection is dropped.
	_ = ws.SetReadDeadline(time.Now().Add(joinDeadline))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return
	}
	var join joinMessage
	if err := json.Unmarshal(raw, &join); err != nil || join.Action != "join" || !validRole(join.Role) {
		logger.Warn("sync: invalid join message, closing connection")
		ws.Close()
		return
	}
	_ = ws.SetReadDeadline(time.Time{})

	peer := &client{
		ID:     uuid.New().String(),
		Role:   join.Role,
		UserID: join.UserID,
		Send:   make(chan []byte, 256),
	}
	h.hub.register(peer)
	logger.Info("sync: client joined",
		zap.String("clientID", peer.ID), zap.String("role", string(peer.Role)))

	go h.writePump(peer, ws)
	go h.readPump(peer, ws)
}

func validRole(r models.Role) bool {
	switch r {
	case models.RolePatient, models.RoleDoctor, models.RoleAdmin:
		return true
	}
	return false
}

// readPump drains inbound frames. No client-to-server payloads beyond the
// join are required; reading only detects disconnects.
func (h *Handler) readPump(peer *client, ws *websocket.Conn) {
	defer func() {
		h.hub.unregister(peer)
		ws.Close()
	}()
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Handler) writePump(peer *client, ws *websocket.Conn) {
	defer ws.Close()
	for message := range peer.Send {
		if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
