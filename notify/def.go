package notify

import (
	"context"

	iface "FireStreamServer/interface"
)

const TimeOutSeconds = 5

// Alert 一次火情告警的载荷，JSON 同时用于 webhook 和 MQTT
type Alert struct {
	Id         string            `json:"id"`
	Source     string            `json:"source"`
	Frame      uint64            `json:"frame"`
	Confidence float32           `json:"confidence"`
	Boxes      []iface.Detection `json:"boxes,omitempty"`
	TimeStamp  int64             `json:"timestamp"`
}

// Sink 一条告警通道。Send 自带超时，失败由调用方记日志，不重试。
type Sink interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}
