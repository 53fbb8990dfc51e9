package interfaces

import (
	"context"
	"sync"

	"orderbook-observer/src/models"
)

// -----------------------------------------------------------------------------
// IRequestSender is the outbound half of the feed transport.
// Requests are fire-and-forget; an error only means it could not be queued.
// -----------------------------------------------------------------------------

type IRequestSender interface {
	Send(req models.MSubscriptionRequest) error
}

// -----------------------------------------------------------------------------
// IFeedTransport connects to the exchange push-feed.
// -----------------------------------------------------------------------------

type IFeedTransport interface {
	IRequestSender

	// Name returns the unique identifier of the feed
	Name() string

	// -----------------------------------------------------------------------------

	// Start runs the connection loop until ctx is cancelled, pushing typed
	// events (connectivity transitions included) in feed order.
	// wg is marked done when the transport has fully stopped.
	Start(ctx context.Context, out chan<- models.MEvent, wg *sync.WaitGroup) error
}
