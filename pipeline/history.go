package pipeline

import (
	iface "FireStreamServer/interface"
)

// History 按帧保存检测集合的有界 FIFO，容量在构造时固定。
// 写满之后 Push 会先淘汰最旧的一帧，长度永远不超过容量。
type History struct {
	buf  [][]iface.Detection
	head int // 最旧条目的下标
	n    int
}

func NewHistory(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{buf: make([][]iface.Detection, capacity)}
}

func (h *History) Cap() int { return len(h.buf) }

func (h *History) Len() int { return h.n }

// Push 在队尾追加一帧的检测集合，满则先淘汰最旧的一帧。
// 容量为 0 时直接丢弃。
func (h *History) Push(dets []iface.Detection) {
	if len(h.buf) == 0 {
		return
	}
	if h.n == len(h.buf) {
		h.EvictOldest()
	}
	tail := (h.head + h.n) % len(h.buf)
	h.buf[tail] = dets
	h.n++
}

// EvictOldest 移除队首（最旧）的一帧，空队列时不做任何事。
func (h *History) EvictOldest() {
	if h.n == 0 {
		return
	}
	h.buf[h.head] = nil
	h.head = (h.head + 1) % len(h.buf)
	h.n--
}

// At 返回从最旧往新数第 i 帧的检测集合，i 取值 [0, Len())
func (h *History) At(i int) []iface.Detection {
	return h.buf[(h.head+i)%len(h.buf)]
}
