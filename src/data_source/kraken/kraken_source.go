// Package kraken connects to the Kraken v2 public websocket and turns its book
// channel into typed feed events.
package kraken

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"orderbook-observer/src/helpers"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/metrics"
	"orderbook-observer/src/models"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize    = 32
	handshakeTimeout = 10 * time.Second
	maxMessageSize   = 1024 * 1024

	defaultPingInterval = 15 * time.Second
	defaultWriteWait    = 5 * time.Second
)

// -----------------------------------------------------------------------------

// queuedRequest is an encoded request bound to the session it was accepted on.
type queuedRequest struct {
	session int64
	payload []byte
}

// -----------------------------------------------------------------------------

// KrakenBookSource implements interfaces.IFeedTransport. It reconnects with a
// capped exponential backoff and sends an application ping while connected.
type KrakenBookSource struct {
	Config *models.MConfig
	Logger *logger.Logger

	dialer    *websocket.Dialer
	send      chan queuedRequest
	reqID     atomic.Int64
	sessions  atomic.Int64
	current   atomic.Int64 // id of the open session, 0 while disconnected
	isRunning atomic.Bool

	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// -----------------------------------------------------------------------------

func NewKrakenBookSource(cfg *models.MConfig, log *logger.Logger) *KrakenBookSource {
	return &KrakenBookSource{
		Config: cfg,
		Logger: log,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		send: make(chan queuedRequest, sendQueueSize),
	}
}

// -----------------------------------------------------------------------------

func (s *KrakenBookSource) Name() string {
	return "kraken"
}

// IsConnected reports whether a websocket session is currently open.
func (s *KrakenBookSource) IsConnected() bool {
	return s.current.Load() != 0
}

// -----------------------------------------------------------------------------

// Send queues a subscribe or unsubscribe request on the open connection. A
// request still queued when that connection ends is never written to a later
// one.
func (s *KrakenBookSource) Send(req models.MSubscriptionRequest) error {
	session := s.current.Load()
	if session == 0 {
		return &helpers.NetworkError{ObserverError: helpers.ObserverError{Message: fmt.Sprintf("%s %s: feed not connected", req.Method, req.Symbol)}}
	}
	payload, err := encodeSubscription(req, s.Config.Book.Depth, s.reqID.Add(1))
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", req.Method, err)
	}

	select {
	case s.send <- queuedRequest{session: session, payload: payload}:
		metrics.SubscriptionRequestsTotal.WithLabelValues(string(req.Method)).Inc()
		return nil
	default:
		return &helpers.NetworkError{ObserverError: helpers.ObserverError{Message: fmt.Sprintf("%s %s: send queue full", req.Method, req.Symbol)}}
	}
}

// -----------------------------------------------------------------------------

// Start begins the connection loop
func (s *KrakenBookSource) Start(parentCtx context.Context, out chan<- models.MEvent, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.isRunning.Store(true)

	wg.Add(1)
	go s.runLoop(ctx, out, wg)
	s.Logger.Info("Started %s feed on %s", s.Name(), s.Config.Feed.URL)
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the connection loop to exit
func (s *KrakenBookSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning.Store(false)
	s.Logger.Info("Stopped %s feed", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

func (s *KrakenBookSource) runLoop(ctx context.Context, out chan<- models.MEvent, wg *sync.WaitGroup) {
	defer wg.Done()
	defer s.isRunning.Store(false)

	backoff := helpers.Backoff{
		Base: time.Duration(s.Config.Feed.ReconnectDelaySeconds) * time.Second,
		Max:  time.Duration(s.Config.Feed.MaxReconnectDelaySeconds) * time.Second,
	}

	for {
		established, err := s.session(ctx, out)
		if ctx.Err() != nil {
			return
		}

		reason := "dial"
		if established {
			reason = "read"
			backoff.Reset()
		}
		metrics.WSReconnectsTotal.WithLabelValues(reason).Inc()

		delay := backoff.Next()
		s.Logger.Error("Feed connection lost (%s): %v; reconnecting in %s", reason, err, delay)
		if !helpers.Sleep(ctx, delay) {
			return
		}
	}
}

// -----------------------------------------------------------------------------

// session runs one websocket connection until it fails or ctx is done.
// established reports whether the handshake succeeded.
func (s *KrakenBookSource) session(ctx context.Context, out chan<- models.MEvent) (established bool, err error) {
	conn, _, err := s.dialer.DialContext(ctx, s.Config.Feed.URL, nil)
	if err != nil {
		return false, &helpers.NetworkError{ObserverError: helpers.ObserverError{Message: "dial " + s.Config.Feed.URL, Cause: err}}
	}
	conn.SetReadLimit(maxMessageSize)

	id := s.sessions.Add(1)
	s.drainQueue()
	s.current.Store(id)
	metrics.BoolGauge(metrics.WSConnected, true)
	s.Logger.Info("Feed connected to %s", s.Config.Feed.URL)

	done := make(chan struct{})
	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		s.writePump(conn, id, done)
	}()
	go func() {
		defer pumps.Done()
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.emit(ctx, out, models.MConnectivityEvent{Status: models.ConnectivityOpen})
	err = s.readPump(ctx, conn, out)

	s.current.Store(0)
	close(done)
	conn.Close()
	pumps.Wait()
	s.drainQueue()
	metrics.BoolGauge(metrics.WSConnected, false)

	s.emit(ctx, out, models.MConnectivityEvent{Status: models.ConnectivityClosed})
	return true, err
}

// -----------------------------------------------------------------------------

func (s *KrakenBookSource) readPump(ctx context.Context, conn *websocket.Conn, out chan<- models.MEvent) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := ParseMessage(data)
		if err != nil {
			s.Logger.Warning("Dropping feed message: %v", err)
			metrics.MalformedMessagesTotal.WithLabelValues("parse").Inc()
			continue
		}
		if ev == nil {
			continue
		}
		if !s.emit(ctx, out, ev) {
			return ctx.Err()
		}
	}
}

// -----------------------------------------------------------------------------

// writePump owns all writes on conn: queued requests and the keepalive ping.
// Requests accepted for an earlier session are dropped.
func (s *KrakenBookSource) writePump(conn *websocket.Conn, session int64, done <-chan struct{}) {
	interval := time.Duration(s.Config.Feed.PingIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultPingInterval
	}
	writeWait := time.Duration(s.Config.Feed.WriteTimeoutSeconds) * time.Second
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	ping := time.NewTicker(interval)
	defer ping.Stop()

	write := func(payload []byte) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.Logger.Error("Feed write failed: %v", err)
			conn.Close()
			return false
		}
		return true
	}

	for {
		select {
		case <-done:
			return
		case req := <-s.send:
			if req.session != session {
				s.Logger.Debug("Dropping request queued for session %d on session %d", req.session, session)
				continue
			}
			if !write(req.payload) {
				return
			}
		case <-ping.C:
			payload, err := encodePing(s.reqID.Add(1))
			if err != nil {
				s.Logger.Error("Failed to encode ping: %v", err)
				continue
			}
			if !write(payload) {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// drainQueue discards requests meant for a connection that no longer exists.
func (s *KrakenBookSource) drainQueue() {
	for {
		select {
		case <-s.send:
		default:
			return
		}
	}
}

// -----------------------------------------------------------------------------

func (s *KrakenBookSource) emit(ctx context.Context, out chan<- models.MEvent, ev models.MEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
