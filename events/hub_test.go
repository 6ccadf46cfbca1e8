package events

import (
	"testing"

	iface "FireStreamServer/interface"

	"github.com/stretchr/testify/assert"
)

func TestHub_PublishSubscribe(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(iface.Event{Frame: 1, Fire: true, Conf: 0.8})
	h.Publish(iface.Event{Frame: 2, Fire: false})

	ev := <-ch
	assert.Equal(t, uint64(1), ev.Frame)
	assert.True(t, ev.Fire)
	ev = <-ch
	assert.Equal(t, uint64(2), ev.Frame)
	assert.False(t, ev.Fire)
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	// 缓冲之外的事件直接丢，Publish 不阻塞
	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish(iface.Event{Frame: uint64(i)})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_CancelStopsDelivery(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Count())

	cancel()
	cancel() // 重复注销安全
	assert.Equal(t, 0, h.Count())

	h.Publish(iface.Event{Frame: 1})
	_, ok := <-ch
	assert.False(t, ok)
}

func TestHub_MultipleSubscribers(t *testing.T) {
	h := NewHub()
	ch1, cancel1 := h.Subscribe()
	ch2, cancel2 := h.Subscribe()
	defer cancel1()
	defer cancel2()

	h.Publish(iface.Event{Frame: 7})
	assert.Equal(t, uint64(7), (<-ch1).Frame)
	assert.Equal(t, uint64(7), (<-ch2).Frame)
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	ch, _ := h.Subscribe()
	h.Close()
	h.Close() // 重复关闭安全

	_, ok := <-ch
	assert.False(t, ok)

	// 关闭后订阅拿到的也是关闭通道
	ch2, cancel2 := h.Subscribe()
	cancel2()
	_, ok = <-ch2
	assert.False(t, ok)

	// 关闭后再发布不崩
	h.Publish(iface.Event{Frame: 1})
}
