// Package notify publishes build-completed events to NATS.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/observability"
)

// EventBuildCompleted is the type of every published event.
const EventBuildCompleted = "build.completed"

// Event is the JSON message published per build.
type Event struct {
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Site      string        `json:"site,omitempty"`
	Report    *build.Report `json:"report"`
}

// Publisher is the part of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier publishes a build-completed event for every report it observes.
type Notifier struct {
	pub     Publisher
	subject string
	site    string
	conn    *nats.Conn
	now     func() time.Time
}

var _ build.Observer = (*Notifier)(nil)

// New returns a notifier publishing to subject through pub. site is carried
// in every event to tell sites sharing a subject apart.
func New(pub Publisher, subject, site string) *Notifier {
	return &Notifier{pub: pub, subject: subject, site: site, now: time.Now}
}

// Connect dials the configured NATS server. The connection retries in the
// background when the server goes away; publishing while disconnected is
// buffered by the client.
func Connect(cfg config.Config) (*Notifier, error) {
	conn, err := nats.Connect(cfg.Notify.NATSURL,
		nats.Name("sitegen"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "connect to NATS").
			WithContext("url", cfg.Notify.NATSURL).
			Build()
	}
	n := New(conn, cfg.Notify.Subject, cfg.Site.URL)
	n.conn = conn
	observability.InfoContext(context.Background(), "Build notifications enabled",
		logfields.Addr(cfg.Notify.NATSURL), logfields.Target(cfg.Notify.Subject))
	return n, nil
}

// Notify publishes the event for r.
func (n *Notifier) Notify(r *build.Report) error {
	data, err := json.Marshal(Event{
		Type:      EventBuildCompleted,
		Timestamp: n.now(),
		Site:      n.site,
		Report:    r,
	})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal build event").Build()
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "publish build event").
			WithContext("subject", n.subject).
			Build()
	}
	return nil
}

// BuildCompleted publishes r, logging failures instead of returning them.
func (n *Notifier) BuildCompleted(ctx context.Context, r *build.Report) {
	if err := n.Notify(r); err != nil {
		observability.WarnContext(ctx, "Failed to publish build notification", logfields.Error(err))
		return
	}
	observability.DebugContext(ctx, "Published build notification", logfields.Target(n.subject))
}

// Close flushes pending messages and closes the connection opened by Connect.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	err := n.conn.FlushTimeout(5 * time.Second)
	n.conn.Close()
	return err
}
