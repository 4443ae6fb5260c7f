package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/lithammer/shortuuid/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/logging"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// TopicTicketIssued carries TicketIssued events.
const TopicTicketIssued = "ticket.issued"

const consumerGroup = "notifications"

// TicketIssued is published once a ticket row exists.
type TicketIssued struct {
	TicketID string `json:"ticket_id"`
	Free     bool   `json:"free"`
}

// NewTransport returns the publisher and subscriber used for
// TicketIssued events: redis streams when rdb is set, an in-process channel
// otherwise.
func NewTransport(rdb redis.UniversalClient, log logrus.FieldLogger) (message.Publisher, message.Subscriber, error) {
	logger := logging.NewWatermill(log)

	if rdb == nil {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		return ch, ch, nil
	}

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client:     rdb,
		Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("redis stream publisher: %w", err)
	}
	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        rdb,
		Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
		ConsumerGroup: consumerGroup,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("redis stream subscriber: %w", err)
	}
	return pub, sub, nil
}

// Publisher enqueues TicketIssued events.
type Publisher struct {
	pub message.Publisher
}

// NewPublisher wraps a watermill publisher.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// PublishTicketIssued enqueues ev, carrying the correlation id of ctx.
func (p *Publisher) PublishTicketIssued(ctx context.Context, ev TicketIssued) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal ticket issued: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	}
	if err := p.pub.Publish(TopicTicketIssued, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicTicketIssued, err)
	}
	return nil
}

// TicketLoader loads the ticket named by a TicketIssued event.
type TicketLoader interface {
	GetTicketDetails(ctx context.Context, ticketID string) (model.TicketDetails, error)
}

// Notifier sends the emails for an issued ticket.
type Notifier interface {
	Dispatch(ctx context.Context, d model.TicketDetails, free bool) Report
}

// Worker consumes TicketIssued events and dispatches notifications. Failed
// deliveries are logged and acknowledged; nothing is retried.
type Worker struct {
	router   *message.Router
	tickets  TicketLoader
	notifier Notifier
	log      logrus.FieldLogger
}

// NewWorker wires a router reading TopicTicketIssued from sub.
func NewWorker(sub message.Subscriber, tickets TicketLoader, notifier Notifier, log logrus.FieldLogger) (*Worker, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logging.NewWatermill(log))
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	w := &Worker{router: router, tickets: tickets, notifier: notifier, log: log}
	router.AddMiddleware(middleware.Recoverer, correlationID)
	router.AddNoPublisherHandler("dispatch_notifications", TopicTicketIssued, sub, w.handle)
	return w, nil
}

// Run blocks until ctx is cancelled or the router stops.
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Running is closed once the handlers are subscribed.
func (w *Worker) Running() chan struct{} {
	return w.router.Running()
}

// Close stops the router and waits for running handlers.
func (w *Worker) Close() error {
	return w.router.Close()
}

func (w *Worker) handle(msg *message.Message) error {
	ctx := msg.Context()
	log := logging.FromContext(ctx, w.log).WithField("message_uuid", msg.UUID)

	var ev TicketIssued
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		log.WithError(err).Error("dropping malformed ticket issued event")
		return nil
	}

	details, err := w.tickets.GetTicketDetails(ctx, ev.TicketID)
	if err != nil {
		log.WithError(err).WithField("ticket_id", ev.TicketID).Error("cannot load ticket for notification")
		return nil
	}

	report := w.notifier.Dispatch(ctx, details, ev.Free)
	if err := report.Err(); err != nil {
		log.WithError(err).WithField("partial", report.Partial()).Warn("notifications incomplete")
	}
	return nil
}

// correlationID keeps the publisher's correlation id, or assigns a fresh one,
// and exposes it to handlers through the message context.
func correlationID(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		id := middleware.MessageCorrelationID(msg)
		if id == "" {
			id = shortuuid.New()
			middleware.SetCorrelationID(id, msg)
		}
		msg.SetContext(logging.ContextWithCorrelationID(msg.Context(), id))
		return h(msg)
	}
}
