package book

import (
	"sort"
	"sync"
	"time"

	"orderbook-observer/src/helpers"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/models"
)

// -----------------------------------------------------------------------------
// Store
// -----------------------------------------------------------------------------

// Store is the authoritative book-by-symbol state. It expects a single writer
// (the engine loop) and any number of concurrent readers. Each stored
// *MBookState is immutable; writers build a replacement and swap the pointer,
// so a reader always observes a complete state.
type Store struct {
	books  map[string]*models.MBookState
	mu     sync.RWMutex
	depth  int
	now    func() time.Time
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewStore(depth int, log *logger.Logger) *Store {
	if depth <= 0 {
		depth = DefaultDepth
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		books:  make(map[string]*models.MBookState),
		depth:  depth,
		now:    time.Now,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// WithClock replaces the wall clock used when the feed omits a timestamp.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// -----------------------------------------------------------------------------
// Read side
// -----------------------------------------------------------------------------

// Get returns a copy of the book for symbol. Sides are shared but never mutated.
func (s *Store) Get(symbol string) (models.MBookState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[symbol]
	if !ok {
		return models.MBookState{}, false
	}
	return *b, true
}

// -----------------------------------------------------------------------------

// Symbols returns all known symbols, sorted.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.books))
	for sym := range s.books {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------

// ActiveSymbols returns the symbols whose status is Subscribing or Subscribed.
func (s *Store) ActiveSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for sym, b := range s.books {
		if b.SubscriptionStatus.Active() {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------
// Write side
// -----------------------------------------------------------------------------

// OnSubscribeRequested creates the entry or marks it Subscribing. Existing
// levels are kept so a resubscribe shows the previous book until the new
// snapshot lands.
func (s *Store) OnSubscribeRequested(symbol string) {
	next := models.MBookState{Symbol: symbol, Bids: models.MSide{}, Asks: models.MSide{}}
	if cur, ok := s.Get(symbol); ok {
		next = cur
	}
	next.SubscriptionStatus = models.StatusSubscribing
	s.put(&next)
}

// -----------------------------------------------------------------------------

// OnUnsubscribeRequested marks a known entry Unsubscribing.
func (s *Store) OnUnsubscribeRequested(symbol string) {
	cur, ok := s.Get(symbol)
	if !ok {
		return
	}
	cur.SubscriptionStatus = models.StatusUnsubscribing
	s.put(&cur)
}

// -----------------------------------------------------------------------------

// OnSubscriptionAck applies a transport acknowledgement. Only Subscribing ->
// Subscribed and Unsubscribing -> Unsubscribed are accepted; acks for unknown
// symbols, failed acks and acks that no longer match the pending request leave
// the store untouched. The return value reports whether the state changed.
func (s *Store) OnSubscriptionAck(symbol string, method models.SubscriptionMethod, success bool) bool {
	cur, ok := s.Get(symbol)
	if !ok {
		s.Logger.Debug("ack %s for unknown symbol %s ignored", method, symbol)
		return false
	}
	if !success {
		s.Logger.Warning("%s for %s was rejected by the feed", method, symbol)
		return false
	}

	switch method {
	case models.MethodSubscribe:
		if cur.SubscriptionStatus != models.StatusSubscribing {
			s.Logger.Debug("late subscribe ack for %s ignored (status=%s)", symbol, cur.SubscriptionStatus)
			return false
		}
		cur.SubscriptionStatus = models.StatusSubscribed
	case models.MethodUnsubscribe:
		if cur.SubscriptionStatus != models.StatusUnsubscribing {
			s.Logger.Debug("late unsubscribe ack for %s ignored (status=%s)", symbol, cur.SubscriptionStatus)
			return false
		}
		cur = models.MBookState{
			Symbol:             symbol,
			Bids:               models.MSide{},
			Asks:               models.MSide{},
			SubscriptionStatus: models.StatusUnsubscribed,
		}
	default:
		return false
	}
	s.put(&cur)
	return true
}

// -----------------------------------------------------------------------------

// OnOrdersMessage merges a snapshot or update into the symbol's book and
// returns the new state. applied is false when the symbol is unknown or no
// longer accepting orders. A timestamp that cannot be parsed rejects the
// message with a MalformedMessageError and leaves the book untouched.
func (s *Store) OnOrdersMessage(ev models.MOrdersEvent) (state models.MBookState, applied bool, err error) {
	cur, ok := s.Get(ev.Symbol)
	if !ok || !cur.SubscriptionStatus.AcceptsOrders() {
		s.Logger.Debug("%s for %s dropped (known=%v)", ev.Type, ev.Symbol, ok)
		return models.MBookState{}, false, nil
	}

	ts := s.now().UTC()
	if ev.Timestamp != "" {
		ts, err = time.Parse(time.RFC3339Nano, ev.Timestamp)
		if err != nil {
			return models.MBookState{}, false, helpers.NewMalformedMessageError("bad timestamp", []byte(ev.Timestamp), err)
		}
	}

	next := cur
	if ev.Type == models.MessageSnapshot {
		next.SnapshotReceived = true
	}
	next.Bids = Merge(cur.Bids, ev.Bids, BidsOrder, s.depth)
	next.Asks = Merge(cur.Asks, ev.Asks, AsksOrder, s.depth)
	next.LastUpdateTimestamp = ts

	s.put(&next)
	return next, true, nil
}

// -----------------------------------------------------------------------------

// Settle forces a symbol to Unsubscribed with a cleared book, used when a new
// connection implicitly dropped a subscription nobody wants anymore.
func (s *Store) Settle(symbol string) bool {
	if _, ok := s.Get(symbol); !ok {
		return false
	}
	s.OnUnsubscribeRequested(symbol)
	return s.OnSubscriptionAck(symbol, models.MethodUnsubscribe, true)
}

// -----------------------------------------------------------------------------

func (s *Store) put(b *models.MBookState) {
	s.mu.Lock()
	s.books[b.Symbol] = b
	s.mu.Unlock()
}
