package learn

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irbridge/internal/bus"
	"irbridge/internal/command"
	"irbridge/internal/ir"
)

type fakeReceiver struct {
	armed    bool
	armCalls int
	disarms  int
	raw      []uint16
}

func (f *fakeReceiver) Arm() error {
	f.armed = true
	f.armCalls++
	return nil
}

func (f *fakeReceiver) Disarm() {
	f.armed = false
	f.disarms++
}

func (f *fakeReceiver) Poll() (ir.Signal, bool) { return ir.Signal{}, false }

func (f *fakeReceiver) RawBuffer() []uint16 { return f.raw }

type recordedPublish struct {
	topic    string
	payload  string
	retained bool
}

type fakeBus struct {
	published []recordedPublish
}

func (f *fakeBus) Publish(topic string, payload []byte, retained bool) error {
	f.published = append(f.published, recordedPublish{topic, string(payload), retained})
	return nil
}

func (f *fakeBus) statuses() []string {
	var out []string
	for _, p := range f.published {
		if p.topic == "home/ir/1/state" {
			out = append(out, p.payload)
		}
	}
	return out
}

func (f *fakeBus) onTopic(topic string) []recordedPublish {
	var out []recordedPublish
	for _, p := range f.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type fixture struct {
	session *Session
	recv    *fakeReceiver
	pub     *fakeBus
	store   *command.Store
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		recv:  &fakeReceiver{},
		pub:   &fakeBus{},
		store: command.NewStore(command.MaxCommands),
		clock: time.Unix(1000, 0),
	}
	topics := bus.Topics{Prefix: "home/ir/1"}
	f.session = NewSession(f.store, f.recv, f.pub, topics, bus.NewStatusEmitter(f.pub, topics.State()))
	f.session.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func necSignal(addr, cmd uint16) ir.Signal {
	return ir.Signal{Protocol: "NEC", Address: addr, Command: cmd, RawLen: 67}
}

func TestStartListen(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.StartListen("tv_power"))
	assert.Equal(t, StateArmed, f.session.State())
	assert.True(t, f.recv.armed)
	assert.Equal(t, []string{"learn_start:tv_power"}, f.pub.statuses())
}

func TestStartListenConflict(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.StartListen("tv_power"))
	deadline := f.session.deadline

	f.advance(time.Second)
	err := f.session.StartListen("other")
	assert.ErrorIs(t, err, ErrStateConflict)

	// Existing session untouched: same target, same deadline, one arm.
	assert.Equal(t, "tv_power", f.session.Target())
	assert.Equal(t, deadline, f.session.deadline)
	assert.Equal(t, 1, f.recv.armCalls)
}

func TestSingleSignalIdleTimeout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.StartListen("tv_power"))

	f.advance(time.Second)
	f.session.OnSignal(necSignal(7, 2))
	assert.Equal(t, StateCapturing, f.session.State())

	// Just inside the idle window: still capturing.
	f.advance(IdleTimeout)
	f.session.Tick()
	assert.Equal(t, StateCapturing, f.session.State())

	f.advance(time.Millisecond)
	f.session.Tick()
	assert.Equal(t, StateIdle, f.session.State())
	assert.Equal(t, 1, f.recv.disarms)

	got, ok := f.store.Lookup("tv_power")
	require.True(t, ok)
	assert.Equal(t, command.KindProtocol, got.Kind)
	assert.Equal(t, 0, got.RepeatCount)
	assert.Equal(t, 0, got.RepeatIntervalMs)
	assert.Equal(t, 1, f.store.Count())

	statuses := f.pub.statuses()
	assert.Equal(t, "learn_success:tv_power", statuses[len(statuses)-1])
}

func TestBurstCaptureAveragesInterval(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.StartListen("fan_speed"))

	f.session.OnSignal(necSignal(7, 2))
	f.advance(300 * time.Millisecond)
	f.session.OnSignal(necSignal(7, 2))
	f.advance(300 * time.Millisecond)
	f.session.OnSignal(necSignal(7, 2))

	f.advance(IdleTimeout + time.Millisecond)
	f.session.Tick()

	got, ok := f.store.Lookup("fan_speed")
	require.True(t, ok)
	assert.Equal(t, 2, got.RepeatCount)
	assert.Equal(t, 300, got.RepeatIntervalMs)

	statuses := f.pub.statuses()
	assert.Contains(t, statuses, "learn_burst_detected:2")
	assert.Contains(t, statuses, "learn_burst_detected:3")
	assert.Equal(t, "learn_success:fan_speed,bursts:3", statuses[len(statuses)-1])
}

func TestMismatchedSignalIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.StartListen("tv_power"))

	f.session.OnSignal(necSignal(7, 2))
	f.advance(100 * time.Millisecond)
	f.session.OnSignal(necSignal(7, 9)) // different command

	assert.Equal(t, 0, f.session.capturedRepeats)
	f.advance(IdleTimeout + time.Millisecond)
	f.session.Tick()

	got, ok := f.store.Lookup("tv_power")
	require.True(t, ok)
	assert.Equal(t, 0, got.RepeatCount)
}

func TestNoSignalMaxTimeout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.StartListen("tv_power"))

	// Idle timeout never applies while armed; only the 10s ceiling ends it.
	f.advance(5 * time.Second)
	f.session.Tick()
	assert.Equal(t, StateArmed, f.session.State())

	f.advance(MaxSession)
	f.session.Tick()
	assert.Equal(t, StateIdle, f.session.State())
	assert.Equal(t, 0, f.store.Count())
	assert.Empty(t, f.pub.onTopic("home/ir/1/commands/tv_power"))

	statuses := f.pub.statuses()
	assert.Equal(t, "learn_timeout:no_signal", statuses[len(statuses)-1])
}

func TestDeadlineReanchoredOnBaseSignal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.StartListen("tv_power"))

	// Base arrives late; the 10s ceiling restarts from the first signal.
	f.advance(9 * time.Second)
	f.session.OnSignal(necSignal(7, 2))
	f.advance(2 * time.Second) // 11s after StartListen, 2s after base
	f.session.Tick()           // idle timeout fires, not max timeout

	statuses := f.pub.statuses()
	assert.Equal(t, "learn_success:tv_power", statuses[len(statuses)-1])
}

func TestRepeatsDoNotExtendDeadline(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.StartListen("tv_power"))

	f.session.OnSignal(necSignal(7, 2))
	deadline := f.session.deadline

	f.advance(200 * time.Millisecond)
	f.session.OnSignal(necSignal(7, 2))
	assert.Equal(t, deadline, f.session.deadline)
}

func TestUnknownSignalStoredAsRaw(t *testing.T) {
	f := newFixture(t)
	f.recv.raw = []uint16{1330, 270, 1380, 270}
	require.NoError(t, f.session.StartListen("fan_power"))

	f.session.OnSignal(ir.Signal{RawLen: 4})
	f.advance(IdleTimeout + time.Millisecond)
	f.session.Tick()

	got, ok := f.store.Lookup("fan_power")
	require.True(t, ok)
	assert.Equal(t, command.KindRaw, got.Kind)
	assert.Equal(t, uint8(38), got.FrequencyKHz)
	assert.Equal(t, []uint16{1330, 270, 1380, 270}, got.Data)

	logs := f.pub.onTopic("home/ir/1/learn")
	require.Len(t, logs, 1)
	assert.False(t, logs[0].retained)
	var entry struct {
		Name string `json:"name"`
		Raw  bool   `json:"raw"`
		Len  int    `json:"len"`
	}
	require.NoError(t, json.Unmarshal([]byte(logs[0].payload), &entry))
	assert.Equal(t, "fan_power", entry.Name)
	assert.True(t, entry.Raw)
	assert.Equal(t, 4, entry.Len)
}

func TestLearnedCommandPublishedRetained(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.StartListen("tv_power"))

	f.session.OnSignal(ir.Signal{Protocol: "Samsung", Address: 7, Command: 2})
	f.advance(IdleTimeout + time.Millisecond)
	f.session.Tick()

	defs := f.pub.onTopic("home/ir/1/commands/tv_power")
	require.Len(t, defs, 1)
	assert.True(t, defs[0].retained)
	assert.JSONEq(t, `{"proto":"Samsung","addr":7,"cmd":2,"rpt":0,"repeatCount":0,"repeatInterval":0}`, defs[0].payload)
}

func TestSignalsMatch(t *testing.T) {
	nec72 := necSignal(7, 2)
	tests := []struct {
		name string
		a, b ir.Signal
		want bool
	}{
		{"same known", nec72, necSignal(7, 2), true},
		{"different address", nec72, necSignal(8, 2), false},
		{"different command", nec72, necSignal(7, 3), false},
		{"different protocol", nec72, ir.Signal{Protocol: "Samsung", Address: 7, Command: 2}, false},
		{"known vs unknown", nec72, ir.Signal{RawLen: 67}, false},
		{"unknown same length", ir.Signal{RawLen: 95}, ir.Signal{RawLen: 95}, true},
		{"unknown different length", ir.Signal{RawLen: 95}, ir.Signal{RawLen: 57}, false},
		// Same-length unknown signals compare equal even if addresses differ:
		// raw waveform content is not inspected.
		{"unknown ignores fields", ir.Signal{RawLen: 95, Address: 1}, ir.Signal{RawLen: 95, Address: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, signalsMatch(tt.a, tt.b))
		})
	}
}
