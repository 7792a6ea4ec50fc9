package server

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	streamPingInterval = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// handleStream upgrades to a websocket and pushes the dataset's merge emissions. The latest
// cached events are replayed first when the dataset's feeds are already live.
func (h *httpHandler) handleStream(c *gin.Context) {
	current := currentWorkspace(c)
	options := &ws.AcceptOptions{OriginPatterns: h.allowedOrigins}
	if len(h.allowedOrigins) == 0 || (len(h.allowedOrigins) == 1 && h.allowedOrigins[0] == "*") {
		options = &ws.AcceptOptions{InsecureSkipVerify: true}
	}
	conn, err := ws.Accept(c.Writer, c.Request, options)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream, cleanup := h.realtime.Subscribe(ctx, current.datasetID)
	defer cleanup()
	cached := current.attach()
	defer current.detach()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for _, message := range cached {
		if err := writeMessage(ctx, conn, message); err != nil {
			return
		}
	}

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()
	for {
		select {
		case message, ok := <-stream:
			if !ok {
				return
			}
			if err := writeMessage(ctx, conn, message); err != nil {
				h.logger.Debug("stream write failed", zap.String("dataset_id", current.datasetID), zap.Error(err))
				return
			}
		case <-ticker.C:
			heartbeat := RealtimeMessage{EventType: realtimeEventHeartbeat, Timestamp: time.Now().UTC()}
			if err := writeMessage(ctx, conn, heartbeat); err != nil {
				return
			}
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		}
	}
}

func writeMessage(ctx context.Context, conn *ws.Conn, message RealtimeMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, message)
}
