package models

// -----------------------------------------------------------------------------
// Inbound domain events (transport -> engine)
// -----------------------------------------------------------------------------

// MEvent is implemented by every typed message the transport delivers.
type MEvent interface {
	eventKind() string
}

type SubscriptionMethod string

const (
	MethodSubscribe   SubscriptionMethod = "subscribe"
	MethodUnsubscribe SubscriptionMethod = "unsubscribe"
)

type MessageType string

const (
	MessageSnapshot MessageType = "snapshot"
	MessageUpdate   MessageType = "update"
)

type ConnectivityStatus string

const (
	ConnectivityOpen   ConnectivityStatus = "open"
	ConnectivityClosed ConnectivityStatus = "closed"
)

// MSubscriptionStatusEvent is a subscribe/unsubscribe acknowledgement.
type MSubscriptionStatusEvent struct {
	Method  SubscriptionMethod
	Symbol  string
	Success bool
	Error   string
}

// MOrdersEvent carries a snapshot or incremental update for one symbol.
// Timestamp is empty when the feed omits it.
type MOrdersEvent struct {
	Type      MessageType
	Symbol    string
	Bids      []MPriceLevel
	Asks      []MPriceLevel
	Timestamp string
}

// MConnectivityEvent reports a transport open/close transition.
type MConnectivityEvent struct {
	Status ConnectivityStatus
}

func (MSubscriptionStatusEvent) eventKind() string { return "subscription_status" }
func (MOrdersEvent) eventKind() string             { return "orders" }
func (MConnectivityEvent) eventKind() string       { return "connectivity" }

// EventKind names an event for logs and metric labels.
func EventKind(e MEvent) string {
	if e == nil {
		return "none"
	}
	return e.eventKind()
}

// -----------------------------------------------------------------------------
// Outbound requests (engine -> transport)
// -----------------------------------------------------------------------------

// MSubscriptionRequest is a fire-and-forget subscribe or unsubscribe request.
type MSubscriptionRequest struct {
	Method SubscriptionMethod
	Symbol string
}
