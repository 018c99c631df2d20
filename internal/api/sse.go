package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	sseBufferSize        = 16
	sseHeartbeatInterval = 10 * time.Second
)

type sseMessage struct {
	event string
	data  interface{}
}

// subscribe 为店铺注册一个事件通道，返回的函数用于注销。
func (h *HTTPHandler) subscribe(shopID string) (chan sseMessage, func()) {
	ch := make(chan sseMessage, sseBufferSize)

	h.sseMu.Lock()
	if h.sseClients == nil {
		h.sseClients = make(map[string][]chan sseMessage)
	}
	h.sseClients[shopID] = append(h.sseClients[shopID], ch)
	h.sseMu.Unlock()

	return ch, func() { h.unsubscribe(shopID, ch) }
}

func (h *HTTPHandler) unsubscribe(shopID string, target chan sseMessage) {
	h.sseMu.Lock()
	defer h.sseMu.Unlock()

	current := h.sseClients[shopID]
	remaining := current[:0]
	for _, ch := range current {
		if ch != target {
			remaining = append(remaining, ch)
		}
	}
	if len(remaining) == 0 {
		delete(h.sseClients, shopID)
		return
	}
	h.sseClients[shopID] = remaining
}

// subscriberCount 当前店铺的订阅数
func (h *HTTPHandler) subscriberCount(shopID string) int {
	h.sseMu.Lock()
	defer h.sseMu.Unlock()
	return len(h.sseClients[shopID])
}

func (h *HTTPHandler) publishSSEMessage(shopID string, msg sseMessage) {
	if h == nil || shopID == "" {
		return
	}

	h.sseMu.Lock()
	channels := append([]chan sseMessage(nil), h.sseClients[shopID]...)
	h.sseMu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- msg:
		default:
			logrus.WithFields(logrus.Fields{
				"shop_id": shopID,
				"event":   msg.event,
			}).Warn("dropping sse message due to slow consumer")
		}
	}
}

// streamEvents 把店铺事件写成 SSE 流，直到客户端断开。
func (h *HTTPHandler) streamEvents(c *gin.Context, shopID string) {
	ctx := c.Request.Context()
	events, cancel := h.subscribe(shopID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
	}

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	logrus.WithField("shop_id", shopID).Info("try-on sse connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			logrus.WithField("shop_id", shopID).Info("try-on sse disconnected")
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().UnixMilli()})
			return true
		case msg, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(msg.event, msg.data)
			return true
		}
	})
}
