package subscription

import (
	"errors"
	"math/rand"
	"testing"

	"orderbook-observer/src/book"
	"orderbook-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeed records requests and acks them on demand, like an exchange would.
type fakeFeed struct {
	sent    []models.MSubscriptionRequest
	pending []models.MSubscriptionRequest
	fail    bool
}

func (f *fakeFeed) Send(req models.MSubscriptionRequest) error {
	if f.fail {
		return errors.New("not connected")
	}
	f.sent = append(f.sent, req)
	f.pending = append(f.pending, req)
	return nil
}

func (f *fakeFeed) ackAll(store *book.Store) {
	for _, req := range f.pending {
		store.OnSubscriptionAck(req.Symbol, req.Method, true)
	}
	f.pending = nil
}

// dropPending models a connection loss: unacknowledged requests vanish.
func (f *fakeFeed) dropPending() {
	f.pending = nil
}

func sub(s string) models.MSubscriptionRequest {
	return models.MSubscriptionRequest{Method: models.MethodSubscribe, Symbol: s}
}

func unsub(s string) models.MSubscriptionRequest {
	return models.MSubscriptionRequest{Method: models.MethodUnsubscribe, Symbol: s}
}

func TestControllerSubscribesOnOpen(t *testing.T) {
	store := book.NewStore(book.DefaultDepth, nil)
	feed := &fakeFeed{}
	c := NewController(store, feed, "A", nil)

	c.OnConnectivity(models.ConnectivityOpen)
	assert.Equal(t, []models.MSubscriptionRequest{sub("A")}, feed.sent)

	b, ok := store.Get("A")
	require.True(t, ok)
	assert.Equal(t, models.StatusSubscribing, b.SubscriptionStatus)
}

func TestControllerSymbolSwitchWhileOpen(t *testing.T) {
	store := book.NewStore(book.DefaultDepth, nil)
	feed := &fakeFeed{}
	c := NewController(store, feed, "A", nil)

	c.OnConnectivity(models.ConnectivityOpen)
	feed.ackAll(store)
	_, _, err := store.OnOrdersMessage(models.MOrdersEvent{Type: models.MessageSnapshot, Symbol: "A", Bids: []models.MPriceLevel{{Price: 1, Quantity: 1}}})
	require.NoError(t, err)

	assert.True(t, c.SetDesired("B"))
	assert.Equal(t, []models.MSubscriptionRequest{sub("A"), unsub("A"), sub("B")}, feed.sent)

	feed.ackAll(store)
	a, _ := store.Get("A")
	assert.Equal(t, models.StatusUnsubscribed, a.SubscriptionStatus)
	assert.Empty(t, a.Bids)

	_, applied, _ := store.OnOrdersMessage(models.MOrdersEvent{Type: models.MessageUpdate, Symbol: "A", Bids: []models.MPriceLevel{{Price: 2, Quantity: 1}}})
	assert.False(t, applied)
	assert.Equal(t, []string{"B"}, store.ActiveSymbols())
}

func TestControllerSameSymbolIsNoop(t *testing.T) {
	feed := &fakeFeed{}
	c := NewController(book.NewStore(0, nil), feed, "A", nil)
	c.OnConnectivity(models.ConnectivityOpen)

	assert.False(t, c.SetDesired("A"))
	assert.Len(t, feed.sent, 1)
}

func TestControllerDefersWhileClosed(t *testing.T) {
	store := book.NewStore(book.DefaultDepth, nil)
	feed := &fakeFeed{}
	c := NewController(store, feed, "A", nil)

	assert.True(t, c.SetDesired("B"))
	assert.True(t, c.SetDesired("C"))
	assert.Empty(t, feed.sent)

	c.OnConnectivity(models.ConnectivityOpen)
	assert.Equal(t, []models.MSubscriptionRequest{sub("C")}, feed.sent)
	assert.Equal(t, "C", c.Desired())
}

func TestControllerReconnectResubscribes(t *testing.T) {
	store := book.NewStore(book.DefaultDepth, nil)
	feed := &fakeFeed{}
	c := NewController(store, feed, "A", nil)

	c.OnConnectivity(models.ConnectivityOpen)
	feed.ackAll(store)
	c.OnConnectivity(models.ConnectivityClosed)
	assert.False(t, c.IsOpen())

	// No unsubscribe on close; the entry stays as it was.
	a, _ := store.Get("A")
	assert.Equal(t, models.StatusSubscribed, a.SubscriptionStatus)

	c.OnConnectivity(models.ConnectivityOpen)
	assert.Equal(t, []models.MSubscriptionRequest{sub("A"), sub("A")}, feed.sent)
}

func TestControllerSettlesStaleSymbolAfterReconnect(t *testing.T) {
	store := book.NewStore(book.DefaultDepth, nil)
	feed := &fakeFeed{}
	c := NewController(store, feed, "A", nil)

	c.OnConnectivity(models.ConnectivityOpen)
	feed.ackAll(store)
	c.OnConnectivity(models.ConnectivityClosed)
	c.SetDesired("B")
	c.OnConnectivity(models.ConnectivityOpen)

	assert.Equal(t, []models.MSubscriptionRequest{sub("A"), sub("B")}, feed.sent)
	a, _ := store.Get("A")
	assert.Equal(t, models.StatusUnsubscribed, a.SubscriptionStatus)
	assert.Equal(t, []string{"B"}, store.ActiveSymbols())
}

func TestControllerSendFailureIsTolerated(t *testing.T) {
	store := book.NewStore(book.DefaultDepth, nil)
	feed := &fakeFeed{fail: true}
	c := NewController(store, feed, "A", nil)

	c.OnConnectivity(models.ConnectivityOpen)
	b, ok := store.Get("A")
	require.True(t, ok)
	assert.Equal(t, models.StatusSubscribing, b.SubscriptionStatus)
}

func TestControllerAtMostOneActiveSubscriptionEventually(t *testing.T) {
	symbols := []string{"A", "B", "C", "D"}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		store := book.NewStore(book.DefaultDepth, nil)
		feed := &fakeFeed{}
		c := NewController(store, feed, symbols[0], nil)

		for step := 0; step < 40; step++ {
			switch rng.Intn(4) {
			case 0:
				c.SetDesired(symbols[rng.Intn(len(symbols))])
			case 1:
				if c.IsOpen() {
					feed.dropPending()
					c.OnConnectivity(models.ConnectivityClosed)
				} else {
					c.OnConnectivity(models.ConnectivityOpen)
				}
			case 2:
				if c.IsOpen() {
					feed.ackAll(store)
				}
			case 3:
				c.SetDesired(symbols[rng.Intn(len(symbols))])
				if c.IsOpen() {
					feed.ackAll(store)
				}
			}
		}

		if !c.IsOpen() {
			c.OnConnectivity(models.ConnectivityOpen)
		}
		feed.ackAll(store)

		active := store.ActiveSymbols()
		require.LessOrEqual(t, len(active), 1, "run %d: %v", run, active)
		require.Equal(t, []string{c.Desired()}, active, "run %d", run)
	}
}
