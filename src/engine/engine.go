// Package engine runs the single event loop that owns the book store and the
// history ring. Feed events and front-end commands are applied strictly in the
// order they reach the loop; readers use the store and ring snapshots directly.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"orderbook-observer/src/book"
	"orderbook-observer/src/history"
	"orderbook-observer/src/interfaces"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/metrics"
	"orderbook-observer/src/models"
	"orderbook-observer/src/subscription"
	"orderbook-observer/src/view"
)

var (
	ErrUnknownSymbol = errors.New("symbol is not configured")
	ErrStopped       = errors.New("engine is not running")
)

const (
	eventQueueSize   = 1024
	commandQueueSize = 16
)

// -----------------------------------------------------------------------------

type command struct {
	apply func() error
	done  chan error
}

// Engine implements interfaces.IBookService.
type Engine struct {
	Config *models.MConfig
	Logger *logger.Logger

	store      *book.Store
	ring       *history.Ring
	controller *subscription.Controller
	recorder   interfaces.IBookRecorder
	publisher  interfaces.IViewPublisher

	events   chan models.MEvent
	commands chan command
	stopped  chan struct{}

	// mu guards the fields below for readers outside the loop.
	mu      sync.RWMutex
	mode    history.Mode
	desired string
	open    bool
}

// -----------------------------------------------------------------------------

func NewEngine(cfg *models.MConfig, store *book.Store, ring *history.Ring, sender interfaces.IRequestSender, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		Config:     cfg,
		Logger:     log,
		store:      store,
		ring:       ring,
		controller: subscription.NewController(store, sender, cfg.DefaultSymbol, log.Named("subscription")),
		events:     make(chan models.MEvent, eventQueueSize),
		commands:   make(chan command, commandQueueSize),
		stopped:    make(chan struct{}),
		mode:       history.NewMode(),
		desired:    cfg.DefaultSymbol,
	}
}

// SetRecorder attaches the optional frame recorder. Call before Run.
func (e *Engine) SetRecorder(r interfaces.IBookRecorder) {
	e.recorder = r
}

// SetPublisher attaches the view publisher. Call before Run.
func (e *Engine) SetPublisher(p interfaces.IViewPublisher) {
	e.publisher = p
}

// Events is the channel the feed transport writes into.
func (e *Engine) Events() chan<- models.MEvent {
	return e.events
}

// -----------------------------------------------------------------------------
// Loop
// -----------------------------------------------------------------------------

// Run consumes events and commands until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(e.stopped)

	e.Logger.Info("Engine started (desired=%s, depth=%d, history=%d)", e.desired, e.Config.Book.Depth, e.ring.Capacity())
	for {
		select {
		case ev := <-e.events:
			e.handleEvent(ev)
		case cmd := <-e.commands:
			cmd.done <- cmd.apply()
		case <-ctx.Done():
			e.Logger.Info("Engine stopped")
			return
		}
	}
}

// -----------------------------------------------------------------------------

func (e *Engine) handleEvent(ev models.MEvent) {
	metrics.EventsTotal.WithLabelValues(models.EventKind(ev)).Inc()

	switch ev := ev.(type) {
	case models.MConnectivityEvent:
		e.controller.OnConnectivity(ev.Status)
		e.mu.Lock()
		e.open = e.controller.IsOpen()
		e.mu.Unlock()
		e.publish()

	case models.MSubscriptionStatusEvent:
		e.onAck(ev)

	case models.MOrdersEvent:
		e.onOrders(ev)

	default:
		e.Logger.Debug("Ignoring event %T", ev)
	}
}

// -----------------------------------------------------------------------------

func (e *Engine) onAck(ev models.MSubscriptionStatusEvent) {
	outcome := "success"
	if !ev.Success {
		outcome = "failure"
		e.Logger.Warning("Feed rejected %s %s: %s", ev.Method, ev.Symbol, ev.Error)
	}
	metrics.SubscriptionAcksTotal.WithLabelValues(string(ev.Method), outcome).Inc()

	if e.store.OnSubscriptionAck(ev.Symbol, ev.Method, ev.Success) && ev.Symbol == e.controller.Desired() {
		e.publish()
	}
}

// -----------------------------------------------------------------------------

func (e *Engine) onOrders(ev models.MOrdersEvent) {
	start := time.Now()
	state, applied, err := e.store.OnOrdersMessage(ev)
	metrics.MergeDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		e.Logger.Warning("Rejected %s for %s: %v", ev.Type, ev.Symbol, err)
		metrics.MalformedMessagesTotal.WithLabelValues("store").Inc()
		return
	}
	if !applied {
		metrics.OrdersDroppedTotal.Inc()
		return
	}
	metrics.OrdersAppliedTotal.WithLabelValues(string(ev.Type)).Inc()

	if state.Symbol != e.controller.Desired() {
		return
	}
	metrics.BookLevels.WithLabelValues("bids").Set(float64(len(state.Bids)))
	metrics.BookLevels.WithLabelValues("asks").Set(float64(len(state.Asks)))

	e.mu.Lock()
	if e.mode.ShouldRecord(state.SnapshotReceived) {
		e.ring.Append(state)
		e.mode = e.mode.Appended(e.ring.Capacity())
	}
	e.mu.Unlock()
	metrics.HistoryLength.Set(float64(e.ring.Len()))

	if e.recorder != nil && state.SnapshotReceived {
		e.recorder.Record(state)
	}
	e.publish()
}

// -----------------------------------------------------------------------------

func (e *Engine) publish() {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(e.CurrentView())
}

// -----------------------------------------------------------------------------

// dispatch carries out the side effects a mode transition asked for. Runs on
// the loop with e.mu held.
func (e *Engine) dispatch(actions []history.Action) {
	for _, a := range actions {
		switch a {
		case history.ActionClearHistory:
			e.ring.Clear()
		}
	}
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

// submit runs fn on the loop and waits for its result.
func (e *Engine) submit(ctx context.Context, fn func() error) error {
	cmd := command{apply: fn, done: make(chan error, 1)}
	select {
	case e.commands <- cmd:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -----------------------------------------------------------------------------

// SetSymbol changes the desired symbol. Time travel is left and the history of
// the previous symbol is dropped whenever the symbol actually changes.
func (e *Engine) SetSymbol(ctx context.Context, symbol string) error {
	if _, ok := e.Config.Token(symbol); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return e.submit(ctx, func() error {
		if !e.controller.SetDesired(symbol) {
			return nil
		}
		e.mu.Lock()
		var actions []history.Action
		e.mode, actions = e.mode.SymbolChanged()
		e.dispatch(actions)
		e.desired = symbol
		e.mu.Unlock()

		e.syncModeMetrics()
		e.publish()
		return nil
	})
}

// -----------------------------------------------------------------------------

func (e *Engine) SetTimeTravel(ctx context.Context, enabled bool) error {
	return e.submit(ctx, func() error {
		return e.transition(func(m history.Mode, snapshot bool) (history.Mode, []history.Action, error) {
			return m.SetEnabled(enabled, snapshot)
		})
	})
}

// -----------------------------------------------------------------------------

func (e *Engine) ToggleTimeTravel(ctx context.Context) error {
	return e.submit(ctx, func() error {
		return e.transition(history.Mode.Toggle)
	})
}

// -----------------------------------------------------------------------------

// Scrub moves the time-travel cursor to index, where 0 is the oldest entry.
func (e *Engine) Scrub(ctx context.Context, index int) error {
	return e.submit(ctx, func() error {
		e.mu.Lock()
		next, err := e.mode.Scrub(index, e.ring.Len())
		if err != nil {
			e.mu.Unlock()
			return err
		}
		e.mode = next
		e.mu.Unlock()

		e.publish()
		return nil
	})
}

// -----------------------------------------------------------------------------

func (e *Engine) transition(fn func(history.Mode, bool) (history.Mode, []history.Action, error)) error {
	live, _ := e.store.Get(e.controller.Desired())

	e.mu.Lock()
	next, actions, err := fn(e.mode, live.SnapshotReceived)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	changed := next != e.mode
	e.mode = next
	e.dispatch(actions)
	e.mu.Unlock()

	if changed {
		e.Logger.Info("Time travel enabled=%v (history=%d)", next.Enabled, e.ring.Len())
		e.syncModeMetrics()
		e.publish()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (e *Engine) syncModeMetrics() {
	e.mu.RLock()
	enabled := e.mode.Enabled
	e.mu.RUnlock()
	metrics.BoolGauge(metrics.TimeTravelEnabled, enabled)
	metrics.HistoryLength.Set(float64(e.ring.Len()))
}

// -----------------------------------------------------------------------------
// Read API
// -----------------------------------------------------------------------------

func (e *Engine) BookState(symbol string) (models.MBookState, bool) {
	return e.store.Get(symbol)
}

// HistoryEntry returns the entry at index, 0 being the oldest retained.
func (e *Engine) HistoryEntry(index int) (models.MBookState, bool) {
	return e.ring.Get(index)
}

func (e *Engine) HistoryLength() int {
	return e.ring.Len()
}

// -----------------------------------------------------------------------------

// CurrentView renders the history entry under the cursor while time travel is
// on, and the live book of the desired symbol otherwise.
func (e *Engine) CurrentView() models.MBookView {
	e.mu.RLock()
	mode := e.mode
	desired := e.desired
	e.mu.RUnlock()

	state, ok := e.store.Get(desired)
	if mode.Enabled {
		if entry, found := e.ring.Get(mode.Cursor); found {
			state, ok = entry, true
		}
	}
	if !ok {
		state = models.MBookState{Symbol: desired, Bids: models.MSide{}, Asks: models.MSide{}}
	}

	token, _ := e.Config.Token(desired)
	v := view.Build(state, token)
	v.Symbol = desired
	v.TimeTravelEnabled = mode.Enabled
	v.HistoryIndex = mode.Cursor
	v.HistoryLength = e.ring.Len()
	return v
}

// -----------------------------------------------------------------------------

func (e *Engine) Status() models.MEngineStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.MEngineStatus{
		DesiredSymbol:     e.desired,
		TransportOpen:     e.open,
		ActiveSymbols:     e.store.ActiveSymbols(),
		TrackedSymbols:    e.store.Symbols(),
		TimeTravelEnabled: e.mode.Enabled,
		HistoryIndex:      e.mode.Cursor,
		HistoryLength:     e.ring.Len(),
		HistoryCapacity:   e.ring.Capacity(),
	}
}
