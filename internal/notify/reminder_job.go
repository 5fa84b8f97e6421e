package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/logger"
)

const defaultReminderInterval = 4 * time.Hour

type reminderOrdersRepo interface {
	ReadyForReminder(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	StampReminder(ctx context.Context, id int64, at time.Time) error
}

type reminderSender interface {
	SendReminder(ctx context.Context, order *models.Order) error
}

// ReminderJobParams wire the ready-order reminder sweep.
type ReminderJobParams struct {
	Logger     *logger.Logger
	Orders     reminderOrdersRepo
	Dispatcher reminderSender
	Interval   time.Duration
}

// NewReminderJob builds the sweep that re-notifies owners of ready orders
// whose last reminder is missing or older than the interval.
func NewReminderJob(params ReminderJobParams) (*ReminderJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultReminderInterval
	}
	return &ReminderJob{
		logg:       params.Logger,
		orders:     params.Orders,
		dispatcher: params.Dispatcher,
		interval:   interval,
		now:        time.Now,
	}, nil
}

type ReminderJob struct {
	logg       *logger.Logger
	orders     reminderOrdersRepo
	dispatcher reminderSender
	interval   time.Duration
	now        func() time.Time
}

func (j *ReminderJob) Name() string { return "ready-order-reminder" }

// Run sends one reminder per due order and stamps the reminder time on
// success. A failed delivery leaves the stamp untouched so the next sweep
// retries it.
func (j *ReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.interval)

	due, err := j.orders.ReadyForReminder(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query ready orders: %w", err)
	}

	var sent, failed int
	for i := range due {
		order := &due[i]
		if err := j.dispatcher.SendReminder(ctx, order); err != nil {
			failed++
			logCtx := j.logg.WithOrderID(ctx, order.ID)
			j.logg.Warn(j.logg.WithField(logCtx, "send_error", err.Error()), "reminder delivery failed")
			continue
		}
		if err := j.orders.StampReminder(ctx, order.ID, now); err != nil {
			j.logg.Error(j.logg.WithOrderID(ctx, order.ID), "stamping reminder time", err)
			continue
		}
		sent++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":    len(due),
		"sent":   sent,
		"failed": failed,
		"cutoff": cutoff,
	})
	j.logg.Info(logCtx, "reminder sweep complete")
	return nil
}
