// Package router maps inbound bus topics onto the command cache, the
// player, and the learning session. Every handled request ends in exactly
// one outbound status notification.
package router

import (
	"encoding/json"
	"errors"

	"irbridge/internal/bus"
	"irbridge/internal/command"
	"irbridge/internal/learn"
	"irbridge/internal/logger"
	"irbridge/internal/player"
)

// Archive mirrors definition changes to local persistence. Mirror failures
// never change a request's bus-visible outcome.
type Archive interface {
	SaveEncoded(name string, payload []byte) error
	Remove(name string) error
}

// Router dispatches one inbound message at a time on the run-loop
// goroutine.
type Router struct {
	topics  bus.Topics
	store   *command.Store
	play    *player.Player
	session *learn.Session
	status  *bus.StatusEmitter
	archive Archive // optional
}

func New(topics bus.Topics, store *command.Store, play *player.Player, session *learn.Session, status *bus.StatusEmitter) *Router {
	return &Router{
		topics:  topics,
		store:   store,
		play:    play,
		session: session,
		status:  status,
	}
}

// SetArchive attaches the optional local persistence mirror.
func (r *Router) SetArchive(a Archive) { r.archive = a }

// Handle routes one inbound message.
func (r *Router) Handle(msg bus.Message) {
	logger.Debugf("message on %s (%d bytes)", msg.Topic, len(msg.Payload))

	switch msg.Topic {
	case r.topics.Listen():
		r.handleListen(msg.Payload)
	case r.topics.Send():
		r.handleSend(msg.Payload)
	default:
		if name, ok := r.topics.CommandName(msg.Topic); ok {
			r.handleDefinition(name, msg.Payload)
			return
		}
		logger.Debugf("ignoring message on unexpected topic %s", msg.Topic)
	}
}

func (r *Router) handleListen(payload []byte) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		logger.Errorf("listen request parse error: %v", err)
		r.status.Emit("ERR:INVALID_JSON")
		return
	}
	if req.Name == "" {
		logger.Errorf("listen request without a command name")
		r.status.Emit("ERR:NO_NAME")
		return
	}
	if len(req.Name) > command.MaxNameLen {
		logger.Errorf("listen request name too long (max %d)", command.MaxNameLen)
		r.status.Emit("ERR:NAME_TOO_LONG")
		return
	}
	// StartListen emits learn_start itself; a state conflict leaves the
	// active session alone and is only logged.
	_ = r.session.StartListen(req.Name)
}

func (r *Router) handleSend(payload []byte) {
	name := string(payload)
	if name == "" {
		logger.Errorf("send request with empty command name")
		r.status.Emit("ERR:EMPTY_COMMAND_NAME")
		return
	}

	cmd, ok := r.store.Lookup(name)
	if !ok {
		logger.Errorf("command not found: %s", name)
		r.status.Emitf("ERR:NOT_FOUND:%s", name)
		return
	}
	// Play emits OK:<name> on completion.
	_ = r.play.Play(&cmd)
}

func (r *Router) handleDefinition(name string, payload []byte) {
	if len(payload) == 0 {
		if err := r.store.Delete(name); err != nil {
			// Deleting an absent name is a no-op; retained tombstones for
			// names we never cached arrive on every reconnect.
			logger.Debugf("delete for unknown command %q", name)
			return
		}
		logger.Infof("deleted command %q", name)
		r.status.Emitf("deleted:%s", name)
		if r.archive != nil {
			if err := r.archive.Remove(name); err != nil {
				logger.Errorf("archive remove %q failed: %v", name, err)
			}
		}
		return
	}

	cmd, truncated, err := command.Decode(name, payload)
	if err != nil {
		switch {
		case errors.Is(err, command.ErrNameTooLong):
			logger.Errorf("definition name %q too long", name)
			r.status.Emit("ERR:NAME_TOO_LONG")
		default:
			logger.Errorf("definition for %q rejected: %v", name, err)
			r.status.Emitf("ERR:JSON:%s", name)
		}
		return
	}
	if truncated {
		logger.Warnf("definition for %q stored with truncated raw data", name)
	}

	if err := r.store.Upsert(cmd); err != nil {
		logger.Errorf("cannot cache %q: %v", name, err)
		r.status.Emit("ERR:CACHE_FULL")
		return
	}
	logger.Infof("cached %s command %q", cmd.Kind, name)
	r.status.Emitf("cached:%s", name)

	if r.archive != nil {
		if err := r.archive.SaveEncoded(name, payload); err != nil {
			logger.Errorf("archive save %q failed: %v", name, err)
		}
	}
}
