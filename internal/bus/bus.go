// Package bus abstracts the message-bus connection. The rest of the
// bridge only sees Publisher/Client; the MQTT specifics stay here.
package bus

import "context"

// Message is one inbound bus message.
type Message struct {
	Topic   string
	Payload []byte
}

// Publisher is the outbound half of the bus, enough for components that
// only emit.
type Publisher interface {
	// Publish sends a payload. Retained payloads are redelivered to new
	// subscribers until replaced.
	Publish(topic string, payload []byte, retained bool) error
}

// Client is the full bus connection used by the run loop.
type Client interface {
	Publisher
	// EnsureConnected blocks with a fixed retry delay until the bus is
	// reachable. The returned flag reports that a fresh connection was
	// established during this call.
	EnsureConnected(ctx context.Context) (bool, error)
	// Messages is the inbound queue. Handlers never run on the bus
	// client's own goroutines; the run loop drains this channel.
	Messages() <-chan Message
	Close()
}
