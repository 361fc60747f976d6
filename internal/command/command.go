// Package command holds the cached IR command model, the bounded
// name-keyed store, and the wire JSON codec.
package command

import "fmt"

const (
	// MaxNameLen bounds command names (bytes).
	MaxNameLen = 31
	// MaxCommands is the cache capacity.
	MaxCommands = 30
	// MaxRawData bounds raw timing values per command.
	MaxRawData = 200
	// EncodeLimit bounds the encoded wire payload.
	EncodeLimit = 2048
)

var (
	ErrCacheFull   = fmt.Errorf("command cache full")
	ErrNotFound    = fmt.Errorf("command not found")
	ErrInvalidJSON = fmt.Errorf("invalid command json")
	ErrNoName      = fmt.Errorf("missing command name")
	ErrNameTooLong = fmt.Errorf("command name too long")
)

// Kind discriminates the two command shapes. Exactly one variant's fields
// are meaningful per kind.
type Kind uint8

const (
	KindProtocol Kind = iota
	KindRaw
)

func (k Kind) String() string {
	if k == KindRaw {
		return "raw"
	}
	return "protocol"
}

// StoredCommand is one cached IR command. RepeatCount is the number of
// additional bursts beyond the first; RepeatIntervalMs is the pause
// between bursts.
type StoredCommand struct {
	Name             string
	Kind             Kind
	RepeatCount      int
	RepeatIntervalMs int

	// Protocol variant. ProtocolRepeats is always 0: burst repetition is
	// owned by the player loop, never delegated to the protocol layer.
	ProtocolName    string
	Address         uint16
	Command         uint16
	ProtocolRepeats uint8

	// Raw variant.
	FrequencyKHz uint8
	Data         []uint16
}

// Length returns the raw timing count (0 for protocol commands).
func (c *StoredCommand) Length() int { return len(c.Data) }
