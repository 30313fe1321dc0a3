package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/streadway/amqp"

	"heartmatch/services"
)

// Envelope is the wire form of an event relayed between instances.
type Envelope struct {
	UserID  string          `json:"userId"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitRelay publishes events to a fanout exchange and delivers whatever
// arrives on this instance's exclusive queue to the local notifier, so a user
// connected to any instance receives the event.
type RabbitRelay struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	pub      publisher
	exchange string
	local    services.Notifier

	mu sync.Mutex // amqp.Channel is not safe for concurrent publishing
}

func DialRabbitRelay(url, exchange string, local services.Notifier) (*RabbitRelay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"fanout", // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // args
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.Info("connected to RabbitMQ", "exchange", exchange)
	return &RabbitRelay{conn: conn, ch: ch, pub: ch, exchange: exchange, local: local}, nil
}

// Start binds a server-named exclusive queue to the exchange and consumes it
// until ctx is done or the channel closes.
func (r *RabbitRelay) Start(ctx context.Context) error {
	q, err := r.ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare relay queue: %w", err)
	}
	if err := r.ch.QueueBind(q.Name, "", r.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind relay queue: %w", err)
	}
	msgs, err := r.ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register relay consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Warn("relay consumer channel closed")
					return
				}
				if err := r.dispatch(ctx, msg.Body); err != nil {
					log.Warn("dropping malformed relay message", "err", err)
				}
			}
		}
	}()
	return nil
}

// Notify publishes the event. If publishing fails the event is still delivered
// to sockets on this instance.
func (r *RabbitRelay) Notify(ctx context.Context, userID string, event string, payload any) {
	body, err := encodeEnvelope(userID, event, payload)
	if err != nil {
		log.Error("failed to encode relay envelope", "event", event, "err", err)
		return
	}

	r.mu.Lock()
	err = r.pub.Publish(r.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
	r.mu.Unlock()

	if err != nil {
		log.Warn("relay publish failed, delivering locally", "event", event, "err", err)
		r.local.Notify(ctx, userID, event, payload)
	}
}

func (r *RabbitRelay) dispatch(ctx context.Context, body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}
	if env.UserID == "" || env.Event == "" {
		return fmt.Errorf("envelope missing userId or event")
	}
	r.local.Notify(ctx, env.UserID, env.Event, env.Payload)
	return nil
}

func encodeEnvelope(userID, event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{UserID: userID, Event: event, Payload: raw})
}

func (r *RabbitRelay) Close() error {
	var errs []error
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing RabbitMQ relay: %v", errs)
	}
	return nil
}
