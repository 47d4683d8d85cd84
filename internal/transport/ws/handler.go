package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"exemplarparty/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Inbound message types
const (
	MsgCreateRoom     = "create-room"
	MsgRejoinGM       = "rejoin-gm"
	MsgJoinRoom       = "join-room"
	MsgJoinDisplay    = "join-display"
	MsgReconnect      = "reconnect"
	MsgUpdateSettings = "update-settings"
	MsgStartGame      = "start-game"
	MsgSubmitExemplar = "submit-exemplar"
	MsgSubmitVotes    = "submit-votes"
	MsgSubmitCategory = "submit-category"
	MsgEndGame        = "end-game"
)

var (
	errUnknownType = errors.New("unknown message type")
	errBadPayload  = errors.New("malformed payload")
	errSlowDown    = errors.New("slow down")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

type codePayload struct {
	Code string `json:"code"`
}

type joinPayload struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname"`
}

type reconnectPayload struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

type exemplarPayload struct {
	Exemplar string `json:"exemplar"`
}

type votesPayload struct {
	Votes map[string]bool `json:"votes"`
}

type categoryPayload struct {
	Category string `json:"category"`
}

// Handler handles WebSocket connections
type Handler struct {
	hub    *Hub
	games  *service.GameService
	limit  rate.Limit
	burst  int
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler. ratePerSec and burst bound each
// connection's inbound messages.
func NewHandler(hub *Hub, games *service.GameService, ratePerSec float64, burst int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if burst <= 0 {
		burst = 1
	}
	return &Handler{
		hub:    hub,
		games:  games,
		limit:  rate.Limit(ratePerSec),
		burst:  burst,
		logger: logger.Named("ws"),
	}
}

// ServeWS handles GET /v1/ws
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	conn := &Connection{
		ID:   uuid.NewString(),
		Send: make(chan []byte, 256),
	}
	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.games.Disconnect(conn.ID)
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	limiter := rate.NewLimiter(h.limit, h.burst)
	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Info("websocket read", zap.String("conn", conn.ID), zap.Error(err))
			}
			break
		}
		if !limiter.Allow() {
			h.replyError(conn.ID, service.EventError, errSlowDown)
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.replyError(conn.ID, service.EventError, errBadPayload)
			continue
		}
		h.dispatch(conn.ID, msg)
	}
}

// dispatch runs one inbound message. Failures go back to the sender only.
func (h *Handler) dispatch(connID string, msg Message) {
	errEvent := service.EventError
	var err error

	switch msg.Type {
	case MsgCreateRoom:
		_, err = h.games.CreateRoom(connID)

	case MsgRejoinGM:
		var p codePayload
		if err = decode(msg.Payload, &p); err == nil {
			err = h.games.BindGM(connID, p.Code)
		}

	case MsgJoinRoom:
		errEvent = service.EventJoinError
		var p joinPayload
		if err = decode(msg.Payload, &p); err == nil {
			_, err = h.games.JoinRoom(connID, p.Code, p.Nickname)
		}

	case MsgJoinDisplay:
		var p codePayload
		if err = decode(msg.Payload, &p); err == nil {
			err = h.games.JoinDisplay(connID, p.Code)
		}

	case MsgReconnect:
		errEvent = service.EventReconnectError
		var p reconnectPayload
		if err = decode(msg.Payload, &p); err == nil {
			_, err = h.games.Reconnect(connID, service.ReconnectRequest{
				Code:     p.Code,
				PlayerID: p.PlayerID,
				Token:    p.Token,
			})
		}

	case MsgUpdateSettings:
		var p service.SettingsPatch
		if err = decode(msg.Payload, &p); err == nil {
			err = h.games.UpdateSettings(connID, p)
		}

	case MsgStartGame:
		err = h.games.StartGame(connID)

	case MsgSubmitExemplar:
		var p exemplarPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = h.games.SubmitExemplar(connID, p.Exemplar)
		}

	case MsgSubmitVotes:
		var p votesPayload
		if err = decode(msg.Payload, &p); err == nil {
			_, err = h.games.SubmitVotes(connID, ballot(p.Votes))
		}

	case MsgSubmitCategory:
		var p categoryPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = h.games.SubmitCategory(connID, p.Category)
		}

	case MsgEndGame:
		err = h.games.EndGame(connID)

	default:
		err = errUnknownType
	}

	if err != nil {
		h.logger.Debug("message rejected",
			zap.String("conn", connID),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
		h.replyError(connID, errEvent, err)
	}
}

func (h *Handler) replyError(connID, event string, err error) {
	h.hub.EmitToConnection(connID, event, service.Message{Message: err.Error()})
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}

// ballot converts the wire's string-keyed vote map. Keys that are not integers are
// dropped like any other unknown index.
func ballot(votes map[string]bool) map[int]bool {
	out := make(map[int]bool, len(votes))
	for k, v := range votes {
		idx, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[idx] = v
	}
	return out
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
