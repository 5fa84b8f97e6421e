package notify

import "context"

// Action is the optional affordance the transport renders alongside a
// message, typically as an inline keyboard.
type Action string

const (
	// ActionConfirmPickup lets the customer close out a ready order.
	ActionConfirmPickup Action = "confirm_pickup"
	// ActionViewOrders points the customer at their order list.
	ActionViewOrders Action = "view_orders"
)

// Message is one outbound chat notification. The dispatcher composes it; the
// transport renders the keyboard and delivers it.
type Message struct {
	Text      string
	OrderID   int64
	Action    Action
	PhotoPath *string
}

// Sender is the chat transport boundary. Implementations deliver a message to
// the chat identity and report a coded rate-limit error when the transport
// throttles.
type Sender interface {
	Send(ctx context.Context, userID int64, msg Message) error
}
