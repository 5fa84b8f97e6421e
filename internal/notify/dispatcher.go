package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/logger"
	"github.com/fabworks/fabshop-backend/pkg/metrics"
)

type statusesRepo interface {
	FindByCode(ctx context.Context, code enums.StatusCode) (*models.Status, error)
}

// DispatcherParams wires the dispatcher dependencies.
type DispatcherParams struct {
	Logger   *logger.Logger
	Sender   Sender
	Statuses statusesRepo
	Metrics  *metrics.DeliveryMetrics
}

// Dispatcher maps order events to exactly one customer-facing message each
// and hands them to the transport.
type Dispatcher struct {
	logg     *logger.Logger
	sender   Sender
	statuses statusesRepo
	metrics  *metrics.DeliveryMetrics
}

// NewDispatcher builds a notification dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	if params.Statuses == nil {
		return nil, fmt.Errorf("statuses repository required")
	}
	return &Dispatcher{
		logg:     params.Logger,
		sender:   params.Sender,
		statuses: params.Statuses,
		metrics:  params.Metrics,
	}, nil
}

// OrderStatusChanged notifies the order's owner about a transition. Ready
// orders get a pickup affordance; rejections carry the reason and the order
// summary; everything else is a plain notice with the status display name.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, order *models.Order, status enums.StatusCode) error {
	var msg Message
	switch status {
	case enums.StatusReady:
		msg = readyMessage(order)
	case enums.StatusRejected:
		msg = d.rejectedMessage(order)
	default:
		msg = Message{
			Text:    fmt.Sprintf("Your order #%d moved to status %q.", order.ID, d.displayName(ctx, status)),
			OrderID: order.ID,
		}
	}

	if err := d.sender.Send(ctx, order.UserID, msg); err != nil {
		d.metrics.IncFailed("status")
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "deliver status notice")
	}
	d.metrics.IncSent("status")

	logCtx := d.logg.WithOrderID(d.logg.WithUserID(ctx, order.UserID), order.ID)
	d.logg.Info(logCtx, "status notification delivered")
	return nil
}

// SendReminder re-sends the ready notice for an order still waiting on
// pickup.
func (d *Dispatcher) SendReminder(ctx context.Context, order *models.Order) error {
	msg := Message{
		Text: fmt.Sprintf(
			"Reminder: your order #%d is ready for pickup!\n\nDon't forget to collect it. Please press the picked-up button once you have it.",
			order.ID,
		),
		OrderID: order.ID,
		Action:  ActionConfirmPickup,
	}

	if err := d.sender.Send(ctx, order.UserID, msg); err != nil {
		d.metrics.IncFailed("reminder")
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "deliver pickup reminder")
	}
	d.metrics.IncSent("reminder")

	logCtx := d.logg.WithOrderID(d.logg.WithUserID(ctx, order.UserID), order.ID)
	d.logg.Info(logCtx, "pickup reminder delivered")
	return nil
}

func readyMessage(order *models.Order) Message {
	return Message{
		Text: fmt.Sprintf(
			"Your order #%d is ready for pickup!\n\nDon't forget to collect it. Please press the picked-up button once you have it.",
			order.ID,
		),
		OrderID: order.ID,
		Action:  ActionConfirmPickup,
	}
}

func (d *Dispatcher) rejectedMessage(order *models.Order) Message {
	reason := "Not specified"
	if order.RejectionReason != nil && *order.RejectionReason != "" {
		reason = *order.RejectionReason
	}
	material := "Not specified"
	if order.Material != nil {
		material = order.Material.Name
	}
	partName := order.PartName
	if partName == "" {
		partName = "Not specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d was rejected\n\n", order.ID)
	fmt.Fprintf(&b, "Type: %s\n", order.OrderType.DisplayName())
	fmt.Fprintf(&b, "Part: %s\n", partName)
	fmt.Fprintf(&b, "Material: %s\n", material)
	if order.Comment != nil && *order.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", *order.Comment)
	}
	fmt.Fprintf(&b, "\nRejection reason: %s", reason)

	return Message{
		Text:      b.String(),
		OrderID:   order.ID,
		Action:    ActionViewOrders,
		PhotoPath: order.PhotoPath,
	}
}

func (d *Dispatcher) displayName(ctx context.Context, code enums.StatusCode) string {
	status, err := d.statuses.FindByCode(ctx, code)
	if err != nil {
		if !store.IsNotFound(err) {
			d.logg.Warn(d.logg.WithField(ctx, "status", code), "status display name lookup failed")
		}
		return string(code)
	}
	return status.Name
}
