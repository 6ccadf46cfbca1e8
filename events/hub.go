package events

import (
	"sync"

	iface "FireStreamServer/interface"
)

// subscriberBuffer 每个订阅者的事件缓冲，写满即丢
const subscriberBuffer = 16

// Hub 把流水线事件扇出给所有订阅者。Publish 永不阻塞：
// 消费慢的订阅者丢事件，检测流不等任何人。
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan iface.Event]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan iface.Event]struct{})}
}

// Subscribe 注册一个订阅者，返回事件通道和注销函数。
// 注销函数可重复调用；Hub 已关闭时返回的通道是已关闭的空通道。
func (h *Hub) Subscribe() (<-chan iface.Event, func()) {
	ch := make(chan iface.Event, subscriberBuffer)
	h.mu.Lock()
	if h.closed {
		close(ch)
		h.mu.Unlock()
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish 把事件投递给所有订阅者，缓冲满的订阅者跳过
func (h *Hub) Publish(ev iface.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Count 当前订阅者数量
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close 关闭 Hub 和所有订阅通道，之后 Publish 变成空操作
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}
