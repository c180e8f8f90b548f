package handlers

import (
	"encoding/json"
	"net/http"

	"trivia-live-backend/internal/game"
	"trivia-live-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSHandler accepts game connections and translates inbound frames into
// controller commands. Roles are not fixed per endpoint: a connection becomes
// host or player with its first host-join / player-join message.
type WSHandler struct {
	hub        *ws.Hub
	controller *game.Controller
}

func NewWSHandler(hub *ws.Hub, controller *game.Controller) *WSHandler {
	return &WSHandler{hub: hub, controller: controller}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type playerJoinData struct {
	Pin    string `json:"pin"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type submitAnswerData struct {
	Answer int `json:"answer"`
}

// HandleWebSocket godoc
// @Summary      Game websocket
// @Description  Bidirectional game protocol for host screens and players
// @Tags         websocket
// @Router       /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade error")
		return
	}

	client := h.hub.Register(conn)
	defer func() {
		h.hub.Unregister(client.ID)
		h.controller.Disconnect(client.ID)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Str("conn", client.ID).Err(err).Msg("bad frame, ignoring")
			continue
		}
		h.dispatch(client.ID, msg)
	}
}

func (h *WSHandler) dispatch(connID string, msg inboundMessage) {
	switch msg.Type {
	case "host-join":
		h.controller.HostJoin(connID)
	case "player-join":
		var data playerJoinData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Name == "" {
			return
		}
		h.controller.PlayerJoin(connID, data.Pin, data.Name, data.Avatar)
	case "start-game":
		h.controller.StartGame(connID)
	case "next-question":
		h.controller.NextQuestion(connID)
	case "submit-answer":
		var data submitAnswerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		h.controller.SubmitAnswer(connID, data.Answer)
	case "reset-game":
		h.controller.ResetGame(connID)
	default:
		// Unknown commands are routine client noise, not faults.
	}
}
