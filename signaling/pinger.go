package signaling

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshcall/contact"
)

// PingContacts probes every unblocked contact with a bounded worker pool and
// records ONLINE or OFFLINE in the store. A failing contact never affects the
// others. It returns ctx.Err() if the sweep was cut short.
func (e *Engine) PingContacts(ctx context.Context) error {
	var targets []*contact.Contact
	for _, c := range e.store.Snapshot() {
		if !c.Blocked {
			targets = append(targets, c)
		}
	}

	start := time.Now()
	e.forEachContact(ctx, targets, func(c *contact.Contact) {
		e.PingContact(ctx, c)
	})

	logrus.WithFields(logrus.Fields{
		"function": "PingContacts",
		"contacts": len(targets),
		"duration": time.Since(start).String(),
	}).Debug("Ping sweep finished")
	return ctx.Err()
}

// PingContact probes one contact, stores and returns the resulting state.
func (e *Engine) PingContact(ctx context.Context, c *contact.Contact) contact.State {
	state := e.probe(ctx, c)
	e.metrics.ping(state == contact.StateOnline)
	if err := e.store.SetState(c.PublicKey, state); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "PingContact",
			"contact":  c.Fingerprint(),
			"error":    err.Error(),
		}).Debug("Probed contact no longer stored")
	}
	return state
}

func (e *Engine) probe(ctx context.Context, c *contact.Contact) contact.State {
	conn, err := e.dialer.DialContact(ctx, c)
	if err != nil {
		return contact.StateOffline
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	ch := NewChannel(conn, e.identity, c.PublicKey, e.cfg.WriteTimeout, e.metrics)
	if err := ch.Send(&Message{Action: ActionPing}); err != nil {
		return contact.StateOffline
	}

	ch.SetReadTimeout(e.cfg.PingTimeout)
	reply, err := ch.Receive()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "probe",
			"contact":  c.Fingerprint(),
			"error":    err.Error(),
		}).Debug("No valid ping reply")
		return contact.StateOffline
	}
	if reply.Action != ActionPong {
		return contact.StateOffline
	}
	return contact.StateOnline
}

// RunPingLoop sweeps immediately and then every interval until ctx is done.
func (e *Engine) RunPingLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := e.PingContacts(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// BroadcastOffline tells every ONLINE, unblocked contact that this node is going away.
// Failures are ignored.
func (e *Engine) BroadcastOffline(ctx context.Context) {
	var targets []*contact.Contact
	for _, c := range e.store.Snapshot() {
		if c.State == contact.StateOnline && !c.Blocked {
			targets = append(targets, c)
		}
	}

	e.forEachContact(ctx, targets, func(c *contact.Contact) {
		conn, err := e.dialer.DialContact(ctx, c)
		if err != nil {
			return
		}
		defer conn.Close()
		ch := NewChannel(conn, e.identity, c.PublicKey, e.cfg.WriteTimeout, e.metrics)
		_ = ch.Send(&Message{Action: ActionStatusChange, Status: StatusOffline})
	})

	logrus.WithFields(logrus.Fields{
		"function": "BroadcastOffline",
		"contacts": len(targets),
	}).Info("Broadcast offline status")
}

// forEachContact runs fn for every contact on at most PingWorkers goroutines.
// Contacts not yet started when ctx is done are skipped.
func (e *Engine) forEachContact(ctx context.Context, contacts []*contact.Contact, fn func(*contact.Contact)) {
	jobs := make(chan *contact.Contact)
	var wg sync.WaitGroup

	workers := e.cfg.PingWorkers
	if workers > len(contacts) {
		workers = len(contacts)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				fn(c)
			}
		}()
	}

feed:
	for _, c := range contacts {
		select {
		case jobs <- c:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}
