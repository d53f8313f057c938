package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// bufferCapacity bounds how many messages are held across a broker outage.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker. Messages that cannot be
// sent while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *zap.SugaredLogger

	mu      sync.Mutex
	pending *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker, clientID string, log *zap.SugaredLogger) (*RealPublisher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	p := &RealPublisher{
		log:     log,
		pending: newRingBuffer(bufferCapacity, log),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { p.drain() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt connection lost", "error", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a clock event to the MQTT broker.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// send publishes immediately when connected, otherwise parks the message in
// the ring buffer for replay once the auto-reconnect succeeds.
func (p *RealPublisher) send(msg bufferedMsg) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.pending.push(msg)
		n := p.pending.len()
		p.mu.Unlock()
		p.log.Warnw("mqtt disconnected, message buffered", "topic", msg.topic, "pending", n)
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// drain replays buffered messages after a reconnect.
func (p *RealPublisher) drain() {
	p.mu.Lock()
	msgs := p.pending.drainAll()
	p.mu.Unlock()
	if len(msgs) == 0 {
		return
	}

	for _, msg := range msgs {
		token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5 * time.Second) {
			p.log.Warnw("replay timeout", "topic", msg.topic)
			continue
		}
		if err := token.Error(); err != nil {
			p.log.Warnw("replay failed", "topic", msg.topic, "error", err)
		}
	}
	p.log.Infow("replayed buffered messages", "count", len(msgs))
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
