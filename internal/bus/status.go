package bus

import (
	"fmt"

	"irbridge/internal/logger"
)

// StatusEmitter publishes outcome notifications to the state topic. A
// publish failure is logged and swallowed: status is best-effort and must
// never change a request's outcome.
type StatusEmitter struct {
	pub   Publisher
	topic string
}

func NewStatusEmitter(pub Publisher, topic string) *StatusEmitter {
	return &StatusEmitter{pub: pub, topic: topic}
}

func (e *StatusEmitter) Emit(msg string) {
	if err := e.pub.Publish(e.topic, []byte(msg), false); err != nil {
		logger.Errorf("status publish failed: %v", err)
	}
}

func (e *StatusEmitter) Emitf(format string, args ...interface{}) {
	e.Emit(fmt.Sprintf(format, args...))
}
