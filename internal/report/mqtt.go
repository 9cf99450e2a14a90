package report

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Topic carries the newline status lines.
const Topic = "home/watertank/sensor/status"

// TopicSystem carries retained lifecycle snapshots (STARTUP, SHUTDOWN,
// HEARTBEAT) as JSON.
const TopicSystem = "home/watertank/sensor/system"

// backlogSize bounds how many messages are held while disconnected.
const backlogSize = 256

// MQTT delivers status lines to an MQTT broker. While the broker is
// unreachable, lines are held in a bounded backlog and replayed on
// reconnect, oldest first.
type MQTT struct {
	client paho.Client

	mu      sync.Mutex
	pending *backlog
}

// NewMQTT creates a reporter connected to the given broker. The connection
// retries in the background, so a broker that is down at boot does not
// block the control loop.
func NewMQTT(broker string) (*MQTT, error) {
	m := &MQTT{pending: newBacklog(backlogSize)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("tank-sensor").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			m.replay(c)
		})

	m.client = paho.NewClient(opts)
	token := m.client.Connect()
	// Wait briefly for the first attempt; afterwards paho retries on its own.
	token.WaitTimeout(10 * time.Second)
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return m, nil
}

// Report publishes one status line, buffering it if disconnected.
func (m *MQTT) Report(line string) error {
	return m.publish(Topic, []byte(line+"\n"), 0, false)
}

// PublishSnapshot publishes a retained lifecycle snapshot. QoS 1 because
// shutdown snapshots should survive the race with disconnect.
func (m *MQTT) PublishSnapshot(payload []byte) error {
	return m.publish(TopicSystem, payload, 1, true)
}

func (m *MQTT) publish(topic string, payload []byte, qos byte, retained bool) error {
	if !m.client.IsConnected() {
		m.mu.Lock()
		m.pending.push(queuedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		m.mu.Unlock()
		return nil
	}

	token := m.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// replay flushes the backlog after a (re)connect.
func (m *MQTT) replay(c paho.Client) {
	m.mu.Lock()
	msgs := m.pending.drain()
	m.mu.Unlock()

	for _, msg := range msgs {
		c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}
}

// IsConnected reports whether the broker connection is up.
func (m *MQTT) IsConnected() bool {
	return m.client.IsConnected()
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(1000) // 1 second timeout
	return nil
}
