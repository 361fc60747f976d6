package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"irbridge/internal/logger"
)

// wireCommand is the inbound JSON shape shared by both variants. Pointer
// fields distinguish "absent" from zero where the default is non-zero.
type wireCommand struct {
	Raw            bool     `json:"raw"`
	Freq           *uint8   `json:"freq"`
	Data           []uint16 `json:"data"`
	Proto          string   `json:"proto"`
	Addr           uint16   `json:"addr"`
	Cmd            uint16   `json:"cmd"`
	Rpt            uint8    `json:"rpt"`
	RepeatCount    int      `json:"repeatCount"`
	RepeatInterval int      `json:"repeatInterval"`
}

// Decode parses a wire JSON definition into a StoredCommand. A raw data
// array longer than MaxRawData is clamped to its first MaxRawData values;
// the returned flag reports that truncation. Truncation is policy, not an
// error.
func Decode(name string, payload []byte) (StoredCommand, bool, error) {
	if name == "" {
		return StoredCommand{}, false, ErrNoName
	}
	if len(name) > MaxNameLen {
		return StoredCommand{}, false, ErrNameTooLong
	}

	var w wireCommand
	if err := json.Unmarshal(payload, &w); err != nil {
		return StoredCommand{}, false, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	cmd := StoredCommand{
		Name:             name,
		RepeatCount:      w.RepeatCount,
		RepeatIntervalMs: w.RepeatInterval,
	}
	if cmd.RepeatCount < 0 {
		cmd.RepeatCount = 0
	}
	if cmd.RepeatIntervalMs < 0 {
		cmd.RepeatIntervalMs = 0
	}

	truncated := false
	if w.Raw {
		cmd.Kind = KindRaw
		cmd.FrequencyKHz = 38
		if w.Freq != nil {
			cmd.FrequencyKHz = *w.Freq
		}
		data := w.Data
		if len(data) > MaxRawData {
			logger.Warnf("raw data for %q exceeds %d values, truncating", name, MaxRawData)
			data = data[:MaxRawData]
			truncated = true
		}
		cmd.Data = append([]uint16(nil), data...)
		return cmd, truncated, nil
	}

	cmd.Kind = KindProtocol
	cmd.ProtocolName = w.Proto
	if cmd.ProtocolName == "" {
		cmd.ProtocolName = "NEC"
	}
	cmd.Address = w.Addr
	cmd.Command = w.Cmd
	// Protocol-level repeats are accepted on the wire for compatibility but
	// always stored as 0; bursts are the player's job.
	cmd.ProtocolRepeats = 0
	return cmd, false, nil
}

// Encode serializes a StoredCommand into its wire JSON definition inside a
// bounded payload (EncodeLimit). Raw values stop being appended once the
// remaining headroom cannot hold the closing structure; the returned flag
// reports that truncation and the document stays valid.
func Encode(cmd StoredCommand) ([]byte, bool) {
	if cmd.Kind == KindRaw {
		return encodeRaw(cmd)
	}
	payload, _ := json.Marshal(struct {
		Proto          string `json:"proto"`
		Addr           uint16 `json:"addr"`
		Cmd            uint16 `json:"cmd"`
		Rpt            uint8  `json:"rpt"`
		RepeatCount    int    `json:"repeatCount"`
		RepeatInterval int    `json:"repeatInterval"`
	}{
		Proto:          cmd.ProtocolName,
		Addr:           cmd.Address,
		Cmd:            cmd.Command,
		Rpt:            0,
		RepeatCount:    cmd.RepeatCount,
		RepeatInterval: cmd.RepeatIntervalMs,
	})
	return payload, false
}

func encodeRaw(cmd StoredCommand) ([]byte, bool) {
	closing := fmt.Sprintf("],\"repeatCount\":%d,\"repeatInterval\":%d}",
		cmd.RepeatCount, cmd.RepeatIntervalMs)

	var b strings.Builder
	fmt.Fprintf(&b, "{\"raw\":true,\"freq\":%d,\"data\":[", cmd.FrequencyKHz)

	truncated := false
	for i, v := range cmd.Data {
		val := strconv.Itoa(int(v))
		need := len(val)
		if i > 0 {
			need++ // comma
		}
		if b.Len()+need+len(closing) > EncodeLimit {
			logger.Warnf("encoded raw data for %q exceeds %d bytes, truncating", cmd.Name, EncodeLimit)
			truncated = true
			break
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(val)
	}
	b.WriteString(closing)
	return []byte(b.String()), truncated
}
