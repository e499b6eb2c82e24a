package emotionHandler

import (
	"EmotionStream/pkg/log"
	"context"

	"github.com/gofiber/websocket/v2"
)

func (h *EmotionHandler) handleStream(c *websocket.Conn) {
	h.log.WithFields(log.Fields{
		"remote_addr": c.RemoteAddr().String(),
	}).Debug("Emotion websocket upgraded")

	err := h.pipeline.Serve(context.Background(), c)
	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		h.log.Errorf("Emotion WebSocket error: %v", err)
	}
}
