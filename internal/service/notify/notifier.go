package notify

import (
	"context"
	"fmt"
	"time"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/domain/repository"
	"FollowFeed/pkg/logger"
	"FollowFeed/pkg/queue"

	"github.com/google/uuid"
)

// JobPriceAlert is the queue message type carrying a notification.
const JobPriceAlert = "price_alert"

// EventSink receives notification.delivered events.
type EventSink interface {
	Publish(e models.Event)
}

// Deliverer puts a notification in the inbox and announces it.
type Deliverer struct {
	inbox *Inbox
	sink  EventSink
}

func NewDeliverer(inbox *Inbox, sink EventSink) *Deliverer {
	return &Deliverer{inbox: inbox, sink: sink}
}

func (d *Deliverer) Deliver(n models.Notification) {
	d.inbox.Add(n)
	if d.sink != nil {
		d.sink.Publish(models.Event{Type: models.EventNotification, Notification: &n})
	}
}

// QueueNotifier hands notifications to the Redis job queue.
type QueueNotifier struct {
	pub queue.QueueService
	now func() time.Time
}

func NewQueueNotifier(pub queue.QueueService) *QueueNotifier {
	return &QueueNotifier{pub: pub, now: time.Now}
}

func (q *QueueNotifier) Notify(ctx context.Context, n models.Notification) error {
	n = stamp(n, q.now)
	if err := q.pub.PublishMessage(ctx, JobPriceAlert, n); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// DeliveryJob consumes price_alert messages from the queue.
type DeliveryJob struct {
	deliverer *Deliverer
}

func NewDeliveryJob(d *Deliverer) *DeliveryJob {
	return &DeliveryJob{deliverer: d}
}

func (j *DeliveryJob) Name() string { return "notification-delivery" }
func (j *DeliveryJob) Type() string { return JobPriceAlert }

func (j *DeliveryJob) Handle(_ context.Context, payload interface{}) error {
	n, err := queue.ParsePayload[models.Notification](payload)
	if err != nil {
		return err
	}
	if n.Title == "" {
		return fmt.Errorf("notification %s has no title", n.ID)
	}
	j.deliverer.Deliver(*n)
	return nil
}

// LogNotifier delivers in process and logs each notification. Used when Redis is off.
type LogNotifier struct {
	lgr       *logger.Logger
	deliverer *Deliverer
	now       func() time.Time
}

func NewLogNotifier(lgr *logger.Logger, d *Deliverer) *LogNotifier {
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &LogNotifier{lgr: lgr, deliverer: d, now: time.Now}
}

func (l *LogNotifier) Notify(_ context.Context, n models.Notification) error {
	n = stamp(n, l.now)
	l.lgr.Info(n.Title, logger.String("body", n.Body), logger.String("symbol", n.Symbol))
	if l.deliverer != nil {
		l.deliverer.Deliver(n)
	}
	return nil
}

func stamp(n models.Notification, now func() time.Time) models.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	return n
}

var (
	_ repository.Notifier = (*QueueNotifier)(nil)
	_ repository.Notifier = (*LogNotifier)(nil)
	_ queue.Job           = (*DeliveryJob)(nil)
)
