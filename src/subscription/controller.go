// Package subscription keeps exactly one feed subscription alive for the
// desired symbol across symbol switches and transport reconnects.
package subscription

import (
	"orderbook-observer/src/book"
	"orderbook-observer/src/interfaces"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/models"
)

// -----------------------------------------------------------------------------

// Controller tracks the desired symbol and transport connectivity and issues
// subscribe/unsubscribe requests. It must be driven from the same goroutine
// that writes the book store.
type Controller struct {
	store     *book.Store
	transport interfaces.IRequestSender
	Logger    *logger.Logger

	desired string
	open    bool
	// current is the symbol subscribed on the live connection, empty if none.
	current string
}

// -----------------------------------------------------------------------------

func NewController(store *book.Store, transport interfaces.IRequestSender, desired string, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.NewNop()
	}
	return &Controller{
		store:     store,
		transport: transport,
		desired:   desired,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// Desired returns the symbol the consumer currently wants.
func (c *Controller) Desired() string {
	return c.desired
}

// IsOpen reports the last known transport state.
func (c *Controller) IsOpen() bool {
	return c.open
}

// -----------------------------------------------------------------------------

// OnConnectivity reacts to a transport transition. On open the desired symbol
// is subscribed; on close nothing is sent and book entries are left as they are.
func (c *Controller) OnConnectivity(status models.ConnectivityStatus) {
	switch status {
	case models.ConnectivityOpen:
		c.open = true
		c.current = ""
		// A fresh connection carries no subscriptions, so anything still marked
		// active for another symbol is settled locally.
		for _, sym := range c.store.ActiveSymbols() {
			if sym != c.desired {
				c.Logger.Info("settling stale subscription for %s after reconnect", sym)
				c.store.Settle(sym)
			}
		}
		c.subscribe(c.desired)

	case models.ConnectivityClosed:
		c.open = false
		c.current = ""
	}
}

// -----------------------------------------------------------------------------

// SetDesired records a new desired symbol and reports whether it changed.
// With the transport open the old symbol is unsubscribed before the new one is
// subscribed; otherwise requests wait for the next open.
func (c *Controller) SetDesired(symbol string) bool {
	if symbol == c.desired {
		return false
	}
	c.Logger.Info("desired symbol %s -> %s (open=%v)", c.desired, symbol, c.open)
	c.desired = symbol

	if !c.open {
		return true
	}
	if c.current != "" {
		c.unsubscribe(c.current)
	}
	c.subscribe(symbol)
	return true
}

// -----------------------------------------------------------------------------

func (c *Controller) subscribe(symbol string) {
	if symbol == "" {
		return
	}
	c.store.OnSubscribeRequested(symbol)
	c.current = symbol
	if err := c.transport.Send(models.MSubscriptionRequest{Method: models.MethodSubscribe, Symbol: symbol}); err != nil {
		c.Logger.Warning("subscribe %s not sent: %v", symbol, err)
	}
}

// -----------------------------------------------------------------------------

func (c *Controller) unsubscribe(symbol string) {
	c.store.OnUnsubscribeRequested(symbol)
	c.current = ""
	if err := c.transport.Send(models.MSubscriptionRequest{Method: models.MethodUnsubscribe, Symbol: symbol}); err != nil {
		c.Logger.Warning("unsubscribe %s not sent: %v", symbol, err)
	}
}
