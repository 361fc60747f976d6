package ir

import "irbridge/internal/logger"

// LogTransmitter writes would-be transmissions to the log. It stands in
// for a hardware driver during development against a live broker.
type LogTransmitter struct{}

func (LogTransmitter) Send(protocol string, addr, cmd uint16, repeats uint8) error {
	logger.Infof("IR send: proto=%s addr=%d cmd=%d rpt=%d", NormalizeProtocol(protocol), addr, cmd, repeats)
	return nil
}

func (LogTransmitter) SendRaw(data []uint16, freqKHz uint8) error {
	logger.Infof("IR send raw: len=%d freq=%dkHz", len(data), freqKHz)
	return nil
}

// NullReceiver never reports a signal.
type NullReceiver struct{}

func (NullReceiver) Arm() error           { return nil }
func (NullReceiver) Disarm()              {}
func (NullReceiver) Poll() (Signal, bool) { return Signal{}, false }
func (NullReceiver) RawBuffer() []uint16  { return nil }

// LogIndicator traces learn-mode transitions instead of driving an LED.
type LogIndicator struct {
	on bool
}

func (l *LogIndicator) Set(on bool) {
	if on == l.on {
		return
	}
	l.on = on
	logger.Debugf("learn indicator: %v", on)
}

func (l *LogIndicator) Pulse() {
	logger.Debugf("send indicator pulse")
}
