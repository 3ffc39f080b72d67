package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fund-strategy-lab/internal/form"
	"fund-strategy-lab/internal/observability"
)

const (
	wsReadLimit    = 64 * 1024
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 16 * 1024,
}

// WSMessage is one server reply on the compare websocket.
type WSMessage struct {
	Type   string            `json:"type"` // result | error
	Result *CompareResponse  `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// handleCompareWS answers each text message (a form submission) with a compare result.
// Messages are handled one at a time; the session ends on read error or Close.
func (s *Server) handleCompareWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	s.wsConnected(1)
	defer s.wsConnected(-1)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.closing:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	id := c.GetString(requestIDKey)
	s.logger.Info("websocket session started", zap.String("request_id", id))
	defer s.logger.Info("websocket session ended", zap.String("request_id", id))

	ctx := c.Request.Context()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", zap.String("request_id", id), zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		reply := s.wsReply(ctx, data)
		observability.RecordWSMessage(reply.Type)

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Debug("websocket write failed", zap.String("request_id", id), zap.Error(err))
			return
		}
	}
}

func (s *Server) wsReply(ctx context.Context, data []byte) WSMessage {
	var v form.Values
	if err := json.Unmarshal(data, &v); err != nil {
		return WSMessage{Type: "error", Error: "invalid message"}
	}

	resp, err := s.compare(ctx, v)
	if err != nil {
		var verrs form.ValidationErrors
		if errors.As(err, &verrs) {
			return WSMessage{Type: "error", Error: "validation failed", Fields: verrs}
		}
		s.logger.Error("websocket compare", zap.Error(err))
		return WSMessage{Type: "error", Error: "compare failed"}
	}
	return WSMessage{Type: "result", Result: resp}
}

func (s *Server) wsConnected(delta int) {
	observability.WSConnected(delta)
	s.mu.Lock()
	s.wsOpen += delta
	s.mu.Unlock()
}
