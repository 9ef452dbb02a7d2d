package service

import (
	"sync"

	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/pkg/monitoring"
)

// ProgressSnapshot 推送给观察者的进度，Progress 为 nil 表示已清除或不存在
type ProgressSnapshot struct {
	SessionKey string          `json:"sessionKey"`
	Progress   *model.Progress `json:"progress"`
}

type progressSubscriber struct {
	ch chan ProgressSnapshot
}

// ProgressHub 按 session key 分发进度快照。每个观察者只缓冲一条，落后时丢弃旧值保留最新值
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string]map[*progressSubscriber]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string]map[*progressSubscriber]struct{})}
}

// Subscribe initial 会作为第一条消息投递
func (h *ProgressHub) Subscribe(key string, initial ProgressSnapshot) (<-chan ProgressSnapshot, func()) {
	sub := &progressSubscriber{ch: make(chan ProgressSnapshot, 1)}
	sub.ch <- initial

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*progressSubscriber]struct{})
	}
	h.subs[key][sub] = struct{}{}
	h.mu.Unlock()
	monitoring.ProgressObservers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[key]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.subs, key)
				}
			}
			close(sub.ch)
			h.mu.Unlock()
			monitoring.ProgressObservers.Dec()
		})
	}
	return sub.ch, cancel
}

func (h *ProgressHub) Publish(snap ProgressSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[snap.SessionKey] {
		select {
		case sub.ch <- snap:
		default:
			// 丢弃未读的旧快照
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snap:
			default:
			}
		}
	}
}

// Observers 当前某个 key 的观察者数量
func (h *ProgressHub) Observers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}
