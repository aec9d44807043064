package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/moyshiginzburg/atelier/db"
)

// reminderLimit caps the number of orders mentioned by one reminder
// run.
const reminderLimit = 20

// UpcomingLister provides the orders a reminder run reports on.
type UpcomingLister interface {
	UpcomingOrders(ctx context.Context, today string, limit int) ([]db.UpcomingOrder, error)
}

// Reminder posts an event-reminder notification for each upcoming
// order on a cron schedule, typically every morning.
type Reminder struct {
	cron     *cron.Cron
	notifier *Notifier
	lister   UpcomingLister
}

// NewReminder schedules reminder runs on the given cron spec, for
// example "0 8 * * *". The schedule only starts ticking after Start
// is called.
func NewReminder(schedule string, notifier *Notifier, lister UpcomingLister) (*Reminder, error) {
	r := &Reminder{
		cron:     cron.New(),
		notifier: notifier,
		lister:   lister,
	}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins the cron schedule in its own goroutine.
func (r *Reminder) Start() {
	r.cron.Start()
}

// Stop halts the schedule, waiting for a running job to finish.
func (r *Reminder) Stop() {
	<-r.cron.Stop().Done()
}

// run performs a single reminder pass.
func (r *Reminder) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	today := time.Now().Format("2006-01-02")
	orders, err := r.lister.UpcomingOrders(ctx, today, reminderLimit)
	if err != nil {
		r.notifier.logger.Warn("reminder query failed", "error", err)
		return
	}
	for _, order := range orders {
		r.notifier.Send(Event{
			Kind:         KindEventReminder,
			Message:      fmt.Sprintf("upcoming event on %s for %s", order.EventDate, order.CustomerName),
			OrderID:      order.ID,
			CustomerName: order.CustomerName,
			EventDate:    order.EventDate,
			Amount:       order.TotalPrice - order.PaidAmount,
		})
	}
}
