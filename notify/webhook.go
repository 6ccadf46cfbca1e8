package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Webhook 把告警 POST 到外部回调地址
type Webhook struct {
	url    string
	client *resty.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: resty.New().SetTimeout(TimeOutSeconds * time.Second), // 总超时
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, alert Alert) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(alert). // 直接传 struct，resty 会 JSON 编码
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert endpoint returned %s", resp.Status())
	}
	return nil
}
