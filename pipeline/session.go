package pipeline

import (
	"context"
	"errors"
	"fmt"

	iface "FireStreamServer/interface"
	"FireStreamServer/logger"
	"FireStreamServer/monitor"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// chunkBuffer 输出通道的缓冲帧数，消费端短暂卡顿不阻塞采集
const chunkBuffer = 4

// errInference 推理失败，对本条流是致命错误
var errInference = errors.New("inference failed")

// Session 一条消费者独占的检测流水线：采集、推理、平滑、叠加、编码
// 串行跑在单个 goroutine 里，每个 /stream 连接各建一条，互不共享历史。
type Session struct {
	id       string
	src      iface.FrameSource
	det      iface.Detector
	rend     iface.Renderer
	enc      iface.StreamEncoder
	sink     iface.EventSink
	cfg      Config
	history  *History
	smoother *Smoother
	frames   uint64
	fire     bool
}

func NewSession(src iface.FrameSource, det iface.Detector, rend iface.Renderer, enc iface.StreamEncoder, sink iface.EventSink, cfg Config) *Session {
	return &Session{
		id:       uuid.New().String(),
		src:      src,
		det:      det,
		rend:     rend,
		enc:      enc,
		sink:     sink,
		cfg:      cfg,
		history:  NewHistory(cfg.Window),
		smoother: NewSmoother(cfg.Window, cfg.ConfThreshold),
	}
}

func (s *Session) ID() string { return s.id }

// Frames 返回已处理的帧数
func (s *Session) Frames() uint64 { return s.frames }

// Stream 启动逐帧循环并返回分块输出通道。帧源耗尽、推理失败或 ctx
// 取消时通道关闭，即流结束；重新拉流只能新建 Session。
func (s *Session) Stream(ctx context.Context) <-chan []byte {
	out := make(chan []byte, chunkBuffer)
	go s.run(ctx, out)
	return out
}

func (s *Session) run(ctx context.Context, out chan<- []byte) {
	defer close(out)
	log := logger.Log().With(zap.String("session", s.id))
	for {
		select {
		case <-ctx.Done():
			log.Info("session cancelled", zap.Uint64("frames", s.frames))
			return
		default:
		}
		frame, err := s.src.Read()
		if err != nil {
			log.Info("frame source ended", zap.Uint64("frames", s.frames), zap.Error(err))
			return
		}
		chunk, err := s.process(frame)
		if err != nil {
			if errors.Is(err, errInference) {
				log.Error("inference failed, ending stream", zap.Uint64("frame", s.frames), zap.Error(err))
				return
			}
			// 编码失败只丢当前帧，流水线继续
			monitor.EncodeFailures.Inc()
			log.Warn("frame encode failed, skipping", zap.Uint64("frame", s.frames), zap.Error(err))
			continue
		}
		select {
		case out <- chunk:
		case <-ctx.Done():
			log.Info("session cancelled", zap.Uint64("frames", s.frames))
			return
		}
	}
}

// process 处理一帧：推理、阈值过滤、时间平滑、叠加渲染、编码
func (s *Session) process(frame iface.Frame) ([]byte, error) {
	defer frame.Mat.Close()
	s.frames++
	monitor.FramesTotal.Inc()

	dets, err := s.det.Detect(frame.Mat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInference, err)
	}
	filtered := FilterByConf(dets, s.cfg.ConfThreshold)
	drawn := s.smoother.Advance(s.history, filtered)
	fire := len(drawn) > 0
	if fire && !s.fire {
		monitor.FireDetections.Inc()
	}
	s.fire = fire
	if fire {
		monitor.FireActive.Set(1)
	} else {
		monitor.FireActive.Set(0)
	}

	display := frame.Mat.Clone()
	defer display.Close()
	s.rend.Draw(&display, drawn, fire, s.frames)

	if s.sink != nil {
		s.sink.Publish(iface.Event{
			Session: s.id,
			Frame:   s.frames,
			Fire:    fire,
			Conf:    maxConf(drawn),
			Boxes:   drawn,
			Time:    frame.Time,
		})
	}
	return s.enc.Encode(display)
}
