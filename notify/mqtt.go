package notify

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT 把告警发布到 broker 主题，QoS 0 发完即忘
type MQTT struct {
	client mqtt.Client
	topic  string
}

// NewMQTT 连接 broker，失败直接返回错误不重试
func NewMQTT(host string, port int, user, pass, topic, clientID string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().AddBroker(fmt.Sprintf("tcp://%s:%d", host, port))
	opts.SetClientID(clientID)
	if user != "" && pass != "" {
		opts.SetUsername(user)
		opts.SetPassword(pass)
	}
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &MQTT{client: client, topic: topic}, nil
}

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) Send(_ context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	token := m.client.Publish(m.topic, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt publish: %w", token.Error())
	}
	return nil
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
