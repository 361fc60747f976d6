package bus

import "strings"

// Topics derives the bridge's topic names from a shared prefix, e.g.
// "home/ir/1".
type Topics struct {
	Prefix string
}

// Send is the inbound send-request topic (payload: bare command name).
func (t Topics) Send() string { return t.Prefix + "/send" }

// State is the outbound status topic.
func (t Topics) State() string { return t.Prefix + "/state" }

// Learn is the outbound learned-command log topic.
func (t Topics) Learn() string { return t.Prefix + "/learn" }

// Listen is the inbound listen-request topic (payload: {"name": ...}).
func (t Topics) Listen() string { return t.Prefix + "/listen" }

// Command is the retained definition topic for one command name.
func (t Topics) Command(name string) string { return t.Prefix + "/commands/" + name }

// CommandsFilter is the subscription filter covering all definitions.
func (t Topics) CommandsFilter() string { return t.Prefix + "/commands/#" }

// CommandName extracts the command name from a definition topic. ok is
// false for topics outside the definition family or with an empty name.
func (t Topics) CommandName(topic string) (string, bool) {
	base := t.Prefix + "/commands/"
	if !strings.HasPrefix(topic, base) {
		return "", false
	}
	name := topic[len(base):]
	return name, name != ""
}

// Subscriptions lists every topic the bridge consumes.
func (t Topics) Subscriptions() []string {
	return []string{t.Send(), t.Listen(), t.CommandsFilter()}
}
