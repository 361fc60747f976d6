// Package app owns the bridge's single-threaded run loop. Store, session,
// player, and router are only ever touched from this loop, which is what
// makes them safe without locks.
package app

import (
	"context"
	"errors"
	"time"

	"irbridge/internal/archive"
	"irbridge/internal/bus"
	"irbridge/internal/command"
	"irbridge/internal/ir"
	"irbridge/internal/learn"
	"irbridge/internal/logger"
	"irbridge/internal/router"
)

const retainedSettle = 500 * time.Millisecond

// App wires the run loop's collaborators together.
type App struct {
	bus     bus.Client
	store   *command.Store
	router  *router.Router
	session *learn.Session
	recv    ir.Receiver
	ind     ir.Indicator
	status  *bus.StatusEmitter

	poll   time.Duration
	settle time.Duration
	sleep  func(time.Duration)
}

func New(cli bus.Client, store *command.Store, rt *router.Router, session *learn.Session, recv ir.Receiver, ind ir.Indicator, status *bus.StatusEmitter, poll time.Duration) *App {
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	return &App{
		bus:     cli,
		store:   store,
		router:  rt,
		session: session,
		recv:    recv,
		ind:     ind,
		status:  status,
		poll:    poll,
		settle:  retainedSettle,
		sleep:   time.Sleep,
	}
}

// Run drives the loop until ctx is cancelled. Each iteration: ensure bus
// connectivity, service the currently pending inbound messages inline,
// update the learn indicator, then poll the receiver and advance the
// session timers. Playback pauses block this loop by design.
func (a *App) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fresh, err := a.bus.EnsureConnected(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Errorf("bus connect: %v", err)
			continue
		}
		if fresh {
			// Give the broker a moment to replay retained definitions so
			// the online count is honest.
			a.sleep(a.settle)
			a.drainInbox()
			a.status.Emitf("online (loaded %d commands)", a.store.Count())
			logger.Infof("online, %d commands cached", a.store.Count())
		}

		a.drainInbox()
		a.ind.Set(a.session.Active())

		if sig, ok := a.recv.Poll(); ok {
			a.session.OnSignal(sig)
		}
		a.session.Tick()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.poll):
		}
	}
}

// drainInbox handles at most the messages already queued; handlers run
// inline on this goroutine.
func (a *App) drainInbox() {
	for {
		select {
		case msg := <-a.bus.Messages():
			a.router.Handle(msg)
		default:
			return
		}
	}
}

// SeedFromArchive loads archived definitions into the store before the
// first connect. Decode failures skip the record; the archive is a
// convenience, never an authority.
func SeedFromArchive(store *command.Store, arc *archive.Archive) int {
	recs, err := arc.LoadAll()
	if err != nil {
		logger.Errorf("archive load failed: %v", err)
		return 0
	}
	loaded := 0
	for _, rec := range recs {
		cmd, _, err := command.Decode(rec.Name, []byte(rec.Payload))
		if err != nil {
			logger.Warnf("skipping archived command %q: %v", rec.Name, err)
			continue
		}
		if err := store.Upsert(cmd); err != nil {
			logger.Warnf("cannot seed %q from archive: %v", rec.Name, err)
			continue
		}
		loaded++
	}
	if loaded > 0 {
		logger.Infof("seeded %d commands from local archive", loaded)
	}
	return loaded
}
