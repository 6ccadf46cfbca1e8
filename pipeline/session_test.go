package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	iface "FireStreamServer/interface"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

type scriptedSource struct {
	frames int
	read   int
}

func (s *scriptedSource) Read() (iface.Frame, error) {
	if s.read >= s.frames {
		return iface.Frame{}, io.EOF
	}
	s.read++
	return iface.Frame{
		Seq:  uint64(s.read),
		Time: time.Now(),
		Mat:  gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3),
	}, nil
}

func (s *scriptedSource) Ready() bool  { return true }
func (s *scriptedSource) Close() error { return nil }

type scriptedDetector struct {
	sets  [][]iface.Detection
	errAt int // 第几次调用开始报错，0 表示不报错
	call  int
}

func (d *scriptedDetector) Detect(gocv.Mat) ([]iface.Detection, error) {
	d.call++
	if d.errAt > 0 && d.call >= d.errAt {
		return nil, errors.New("onnxruntime session broken")
	}
	if d.call <= len(d.sets) {
		return d.sets[d.call-1], nil
	}
	return nil, nil
}

func (d *scriptedDetector) Ready() bool    { return true }
func (d *scriptedDetector) Device() string { return "cpu" }

type countingRenderer struct {
	calls int
	fires int
}

func (r *countingRenderer) Draw(_ *gocv.Mat, _ []iface.Detection, fire bool, _ uint64) {
	r.calls++
	if fire {
		r.fires++
	}
}

type scriptedEncoder struct {
	failAt int
	call   int
}

func (e *scriptedEncoder) Encode(gocv.Mat) ([]byte, error) {
	e.call++
	if e.failAt > 0 && e.call == e.failAt {
		return nil, errors.New("imencode failed")
	}
	return []byte(fmt.Sprintf("chunk-%d", e.call)), nil
}

type captureSink struct {
	events []iface.Event
}

func (c *captureSink) Publish(ev iface.Event) { c.events = append(c.events, ev) }

func collect(ch <-chan []byte) [][]byte {
	var out [][]byte
	for chunk := range ch {
		out = append(out, chunk)
	}
	return out
}

func testConfig() Config {
	return Config{Window: 10, ConfThreshold: 0.4, NMSThreshold: 0.4, ImageSize: 416}
}

func TestSession_StreamsAllFrames(t *testing.T) {
	src := &scriptedSource{frames: 3}
	det := &scriptedDetector{}
	rend := &countingRenderer{}
	sink := &captureSink{}
	sess := NewSession(src, det, rend, &scriptedEncoder{}, sink, testConfig())

	chunks := collect(sess.Stream(context.Background()))

	// 帧源耗尽后通道关闭，每帧恰好一个分块
	assert.Equal(t, [][]byte{[]byte("chunk-1"), []byte("chunk-2"), []byte("chunk-3")}, chunks)
	assert.Equal(t, 3, rend.calls)
	assert.Equal(t, uint64(3), sess.Frames())
	assert.Len(t, sink.events, 3)
	for i, ev := range sink.events {
		assert.Equal(t, uint64(i+1), ev.Frame)
		assert.Equal(t, sess.ID(), ev.Session)
		assert.False(t, ev.Fire)
	}
}

func TestSession_EncodeFailureSkipsFrame(t *testing.T) {
	src := &scriptedSource{frames: 3}
	sess := NewSession(src, &scriptedDetector{}, &countingRenderer{}, &scriptedEncoder{failAt: 2}, nil, testConfig())

	chunks := collect(sess.Stream(context.Background()))

	// 第 2 帧编码失败被跳过，流继续并正常结束
	assert.Equal(t, [][]byte{[]byte("chunk-1"), []byte("chunk-3")}, chunks)
	assert.Equal(t, uint64(3), sess.Frames())
}

func TestSession_DetectorFailureEndsStream(t *testing.T) {
	src := &scriptedSource{frames: 10}
	det := &scriptedDetector{errAt: 3}
	sess := NewSession(src, det, &countingRenderer{}, &scriptedEncoder{}, nil, testConfig())

	chunks := collect(sess.Stream(context.Background()))

	assert.Len(t, chunks, 2)
	assert.Equal(t, uint64(3), sess.Frames())
}

func TestSession_ConfThresholdInclusive(t *testing.T) {
	src := &scriptedSource{frames: 2}
	det := &scriptedDetector{sets: [][]iface.Detection{
		{{XMin: 0.1, YMin: 0.1, XMax: 0.2, YMax: 0.2, Conf: 0.39}},
		{{XMin: 0.1, YMin: 0.1, XMax: 0.2, YMax: 0.2, Conf: 0.40}},
	}}
	sink := &captureSink{}
	cfg := testConfig()
	cfg.Window = 1 // 关闭平滑，直接观察过滤结果
	sess := NewSession(src, det, &countingRenderer{}, &scriptedEncoder{}, sink, cfg)

	collect(sess.Stream(context.Background()))

	assert.Len(t, sink.events, 2)
	assert.False(t, sink.events[0].Fire)
	assert.True(t, sink.events[1].Fire)
	assert.InDelta(t, 0.40, sink.events[1].Conf, 1e-6)
}

func TestSession_SmoothedFireEvent(t *testing.T) {
	src := &scriptedSource{frames: 2}
	det := &scriptedDetector{sets: [][]iface.Detection{
		{{XMin: 0.2, YMin: 0.2, XMax: 0.4, YMax: 0.4, Conf: 0.9}},
		{{XMin: 0.3, YMin: 0.3, XMax: 0.5, YMax: 0.5, Conf: 0.5}},
	}}
	sink := &captureSink{}
	rend := &countingRenderer{}
	sess := NewSession(src, det, rend, &scriptedEncoder{}, sink, testConfig())

	collect(sess.Stream(context.Background()))

	assert.Equal(t, 2, rend.fires)
	assert.Len(t, sink.events, 2)
	// 第二帧输出的是时间平滑后的单一稳定框
	assert.Len(t, sink.events[1].Boxes, 1)
	assert.InDelta(t, 0.7571428, sink.events[1].Conf, 1e-6)
}

func TestSession_ContextCancel(t *testing.T) {
	src := &scriptedSource{frames: 1000}
	sess := NewSession(src, &scriptedDetector{}, &countingRenderer{}, &scriptedEncoder{}, nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	ch := sess.Stream(ctx)
	<-ch
	cancel()

	// 取消后通道必须在有限步内关闭
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancel")
		}
	}
}
