package bus

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"irbridge/internal/logger"
)

const inboxSize = 64

// MQTTConfig carries everything needed to reach the broker.
type MQTTConfig struct {
	BrokerAddr string // e.g. tcp://host:1883
	Username   string
	Password   string
	ClientID   string

	// StateTopic receives the retained "offline" last-will payload.
	StateTopic string
	// Subscriptions are (re)subscribed on every successful connect, which
	// is what replays retained command definitions after a reconnect.
	Subscriptions []string
	// RetryDelay is the fixed pause between connection attempts.
	RetryDelay time.Duration
}

// MQTT is the paho-backed bus client. Inbound messages are pumped into a
// buffered channel so handlers run on the loop goroutine, never on paho's.
type MQTT struct {
	cli   mqtt.Client
	inbox chan Message
	retry time.Duration
}

var _ Client = (*MQTT)(nil)

// NewMQTT builds the client. No connection is attempted until
// EnsureConnected.
func NewMQTT(cfg MQTTConfig) *MQTT {
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("irbridge-%s", uuid.NewString()[:8])
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	m := &MQTT{
		inbox: make(chan Message, inboxSize),
		retry: cfg.RetryDelay,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerAddr).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(false).
		SetCleanSession(true)

	if cfg.StateTopic != "" {
		opts.SetWill(cfg.StateTopic, "offline", 0, true)
	}

	opts.SetOnConnectHandler(func(cli mqtt.Client) {
		for _, topic := range cfg.Subscriptions {
			if token := cli.Subscribe(topic, 0, m.enqueue); token.Wait() && token.Error() != nil {
				logger.Errorf("subscribe %s failed: %v", topic, token.Error())
			}
		}
		logger.Infof("mqtt connected, subscribed to %d topics", len(cfg.Subscriptions))
	})
	opts.SetConnectionLostHandler(func(cli mqtt.Client, err error) {
		logger.Warnf("mqtt connection lost: %v", err)
	})

	m.cli = mqtt.NewClient(opts)
	return m
}

func (m *MQTT) enqueue(_ mqtt.Client, msg mqtt.Message) {
	payload := append([]byte(nil), msg.Payload()...)
	select {
	case m.inbox <- Message{Topic: msg.Topic(), Payload: payload}:
	default:
		logger.Warnf("inbox full, dropping message on %s", msg.Topic())
	}
}

// EnsureConnected blocks until the broker is reachable, retrying at the
// fixed delay. Returns true when this call established a fresh connection.
func (m *MQTT) EnsureConnected(ctx context.Context) (bool, error) {
	for {
		if m.cli.IsConnectionOpen() {
			return false, nil
		}
		token := m.cli.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Errorf("mqtt connect failed: %v, retrying in %v", err, m.retry)
		} else if m.cli.IsConnectionOpen() {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(m.retry):
		}
	}
}

func (m *MQTT) Publish(topic string, payload []byte, retained bool) error {
	token := m.cli.Publish(topic, 0, retained, payload)
	token.Wait()
	return token.Error()
}

func (m *MQTT) Messages() <-chan Message { return m.inbox }

func (m *MQTT) Close() {
	m.cli.Disconnect(250)
}
