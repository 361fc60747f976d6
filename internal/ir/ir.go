// Package ir declares the contracts of the infrared transceiver
// collaborators. The bridge core only consumes decoded signals and raw
// timing buffers; waveform encode/decode lives behind these interfaces.
package ir

import "strings"

// Signal is one decoded (or undecodable) IR event as reported by the
// receiver. Protocol is empty when the receiver could not identify one;
// RawLen is the timing-buffer length of the event and is the only thing
// compared for unknown-protocol signals.
type Signal struct {
	Protocol string
	Address  uint16
	Command  uint16
	RawLen   int
}

// Known reports whether the receiver identified a protocol for the signal.
func (s Signal) Known() bool { return s.Protocol != "" }

// Transmitter sends IR commands. Protocol-level repeats are passed through
// untouched; burst repetition is layered above this interface.
type Transmitter interface {
	Send(protocol string, addr, cmd uint16, repeats uint8) error
	SendRaw(data []uint16, freqKHz uint8) error
}

// Receiver captures IR signals. Arm starts capture, Disarm stops it, Poll
// returns the next decoded signal if one is pending. RawBuffer exposes the
// timing buffer of the most recent signal for raw-command learning.
type Receiver interface {
	Arm() error
	Disarm()
	Poll() (Signal, bool)
	RawBuffer() []uint16
}

// Indicator is the learn/send activity light.
type Indicator interface {
	Set(on bool)
	Pulse()
}

// NopIndicator satisfies Indicator without hardware attached.
type NopIndicator struct{}

func (NopIndicator) Set(bool) {}
func (NopIndicator) Pulse()   {}

var knownProtocols = []string{
	"Samsung", "NEC", "LG", "Sony12", "JVC", "RC5", "RC6", "Panasonic",
}

// NormalizeProtocol maps a protocol name to its canonical spelling,
// falling back to NEC for anything unrecognized.
func NormalizeProtocol(name string) string {
	for _, p := range knownProtocols {
		if strings.EqualFold(name, p) {
			return p
		}
	}
	return "NEC"
}
