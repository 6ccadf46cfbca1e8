package notify

import (
	"context"
	"time"

	iface "FireStreamServer/interface"
	"FireStreamServer/logger"
	"FireStreamServer/monitor"

	"github.com/google/uuid"
)

// Manager 消费流水线事件，在无火到有火的跳变时向所有 Sink 发告警。
// 冷却期内的跳变不重复告警；持续火情只在第一次跳变时发。
type Manager struct {
	sinks    []Sink
	cooldown time.Duration
	source   string

	lastFire  bool
	lastAlert time.Time
	now       func() time.Time
}

func NewManager(source string, cooldown time.Duration, sinks ...Sink) *Manager {
	return &Manager{
		sinks:    sinks,
		cooldown: cooldown,
		source:   source,
		now:      time.Now,
	}
}

// Run 消费事件直到通道关闭或 ctx 取消
func (m *Manager) Run(ctx context.Context, events <-chan iface.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.observe(ctx, ev)
		}
	}
}

func (m *Manager) observe(ctx context.Context, ev iface.Event) {
	transition := ev.Fire && !m.lastFire
	m.lastFire = ev.Fire
	if !transition {
		return
	}
	if !m.lastAlert.IsZero() && m.now().Sub(m.lastAlert) < m.cooldown {
		return
	}
	m.lastAlert = m.now()

	alert := Alert{
		Id:         uuid.NewString(),
		Source:     m.source,
		Frame:      ev.Frame,
		Confidence: ev.Conf,
		Boxes:      ev.Boxes,
		TimeStamp:  ev.Time.Unix(),
	}
	for _, s := range m.sinks {
		if err := s.Send(ctx, alert); err != nil {
			logger.S().Warnw("alert delivery failed", "sink", s.Name(), "err", err)
			continue
		}
		monitor.AlertsSent.Inc()
	}
}
