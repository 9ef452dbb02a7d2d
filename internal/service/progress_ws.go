package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"quiz_bank_backend/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage 下行 type 为 PROGRESS；上行支持 MOVE {"index": n}
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type progressWatcher struct {
	Service *ProgressService
	Conn    *websocket.Conn
	Key     string
	Updates <-chan ProgressSnapshot
	Limiter *rate.Limiter
}

func (w *progressWatcher) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	w.Conn.SetReadLimit(maxMessageSize)
	w.Conn.SetReadDeadline(time.Now().Add(pongWait))
	w.Conn.SetPongHandler(func(string) error { w.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := w.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("Progress websocket unexpected close", zap.String("key", w.Key), zap.Error(err))
			}
			return
		}
		if !w.Limiter.Allow() {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type != "MOVE" {
			continue
		}
		var body struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal(msg.Data, &body); err != nil {
			continue
		}
		// 新位置会经由 Updates 推回所有观察者
		if _, err := w.Service.MoveTo(ctx, w.Key, body.Index); err != nil {
			logger.Log.Debug("Move progress via websocket failed", zap.String("key", w.Key), zap.Error(err))
		}
	}
}

func (w *progressWatcher) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case snap, ok := <-w.Updates:
			if !ok {
				w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				w.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				logger.Log.Error("Marshal progress snapshot failed", zap.Error(err))
				continue
			}
			payload, _ := json.Marshal(WSMessage{Type: "PROGRESS", Data: data})
			w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			w.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// ServeProgressWs 把某个 session key 的进度变化推送给 websocket 客户端，连接结束时取消订阅
func ServeProgressWs(ctx context.Context, s *ProgressService, w http.ResponseWriter, r *http.Request, key string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.String("key", key))
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	updates, unsubscribe := s.Observe(ctx, key)
	watcher := &progressWatcher{
		Service: s,
		Conn:    conn,
		Key:     key,
		Updates: updates,
		Limiter: rate.NewLimiter(rate.Limit(10), 20),
	}

	go watcher.readPump(ctx, cancel)
	watcher.writePump(ctx)

	cancel()
	unsubscribe()
	conn.Close()
}
