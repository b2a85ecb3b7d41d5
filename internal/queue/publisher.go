package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends ticket events.  Implementations must not panic; callers
// log and ignore the returned error so a broker outage never fails a
// request.
type Publisher interface {
	Publish(ctx context.Context, ev TicketEvent) error
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TicketEvent) error { return nil }

// AMQPPublisher publishes persistent JSON messages to a durable queue on
// the default exchange.  A connection is opened per message.
type AMQPPublisher struct {
	URL    string
	Queue  string
	Logger *slog.Logger
}

func NewAMQPPublisher(url, queue string, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: queue, Logger: logger}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev TicketEvent) error {
	ev.Stamp(time.Now())
	log := p.Logger.With("queue", p.Queue, "action", ev.Action, "ticket_id", ev.TicketID)

	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      dialContext(ctx),
	})
	if err != nil {
		log.Warn("rabbitmq dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		log.Warn("rabbitmq queue declare failed", "err", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		log.Warn("rabbitmq publish failed", "err", err)
		return err
	}
	return nil
}

// dialContext bounds the TCP dial and the AMQP handshake by ctx.  The
// library clears the deadline once the connection is open.
func dialContext(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if dl, ok := ctx.Deadline(); ok {
			if err := conn.SetDeadline(dl); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		return conn, nil
	}
}
