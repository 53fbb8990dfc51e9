package grpc_control

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"orderbook-observer/src/config"
	"orderbook-observer/src/engine"
	"orderbook-observer/src/history"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type stubService struct {
	mu      sync.Mutex
	symbol  string
	enabled bool
	cursor  int
}

func (s *stubService) BookState(symbol string) (models.MBookState, bool) {
	if symbol != "BTC/USD" {
		return models.MBookState{}, false
	}
	return models.MBookState{Symbol: symbol, Bids: models.MSide{{Price: 100, Quantity: 2, CumulativeTotal: 2}}, Asks: models.MSide{}, SubscriptionStatus: models.StatusSubscribed}, true
}

func (s *stubService) HistoryEntry(int) (models.MBookState, bool) { return models.MBookState{}, false }
func (s *stubService) HistoryLength() int                         { return 3 }

func (s *stubService) CurrentView() models.MBookView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.MBookView{Type: "UPDATE", Symbol: s.symbol, TimeTravelEnabled: s.enabled, HistoryIndex: s.cursor}
}

func (s *stubService) Status() models.MEngineStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.MEngineStatus{DesiredSymbol: s.symbol, TimeTravelEnabled: s.enabled, HistoryLength: 3, HistoryCapacity: 500}
}

func (s *stubService) SetSymbol(_ context.Context, symbol string) error {
	if symbol != "BTC/USD" && symbol != "ETH/USD" {
		return engine.ErrUnknownSymbol
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbol = symbol
	return nil
}

func (s *stubService) SetTimeTravel(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled && s.symbol == "ETH/USD" {
		return history.ErrNoSnapshot
	}
	s.enabled = enabled
	return nil
}

func (s *stubService) ToggleTimeTravel(ctx context.Context) error {
	return s.SetTimeTravel(ctx, !s.CurrentView().TimeTravelEnabled)
}

func (s *stubService) Scrub(_ context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return history.ErrTimeTravelDisabled
	}
	if index < 0 || index >= 3 {
		return history.ErrIndexOutOfRange
	}
	s.cursor = index
	return nil
}

// -----------------------------------------------------------------------------

func dialControl(t *testing.T, svc *ControlService) *BookControlClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := Serve(lis, svc, logger.NewNop())
	t.Cleanup(srv.GracefulStop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewBookControlClient(conn)
}

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg, err := config.Parse([]byte(`
name: orderbook-observer
host: 127.0.0.1
port: 8080
grpc_host: 127.0.0.1
grpc_port: 50051
tokens:
  - {symbol: BTC/USD, pair_decimals: 1, lot_decimals: 8}
  - {symbol: ETH/USD, pair_decimals: 2, lot_decimals: 8}
`))
	require.NoError(t, err)
	return cfg, filepath.Join(t.TempDir(), "config.yaml")
}

func TestControlSymbolAndStatus(t *testing.T) {
	cfg, path := testConfig(t)
	stub := &stubService{symbol: "BTC/USD"}
	client := dialControl(t, NewControlService(cfg, stub, path, logger.NewNop()))
	ctx := context.Background()

	require.NoError(t, client.SetSymbol(ctx, "ETH/USD"))
	st, err := client.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ETH/USD", st["desired_symbol"])
	assert.Equal(t, float64(500), st["history_capacity"])

	saved, err := config.NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ETH/USD", saved.DefaultSymbol)
	assert.Equal(t, "BTC/USD", cfg.DefaultSymbol, "live config is left untouched")

	err = client.SetSymbol(ctx, "DOGE/USD")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	err = client.SetSymbol(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestControlTimeTravel(t *testing.T) {
	cfg, _ := testConfig(t)
	stub := &stubService{symbol: "BTC/USD"}
	client := dialControl(t, NewControlService(cfg, stub, "", logger.NewNop()))
	ctx := context.Background()

	assert.Equal(t, codes.FailedPrecondition, status.Code(client.Scrub(ctx, 1)))

	require.NoError(t, client.ToggleTimeTravel(ctx))
	require.NoError(t, client.Scrub(ctx, 2))
	assert.Equal(t, codes.OutOfRange, status.Code(client.Scrub(ctx, 3)))

	view, err := client.GetView(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, view["time_travel_enabled"])
	assert.Equal(t, float64(2), view["history_index"])

	require.NoError(t, client.SetTimeTravel(ctx, false))
	require.NoError(t, client.SetSymbol(ctx, "ETH/USD"))
	assert.Equal(t, codes.FailedPrecondition, status.Code(client.SetTimeTravel(ctx, true)))
}

func TestControlGetBook(t *testing.T) {
	cfg, _ := testConfig(t)
	client := dialControl(t, NewControlService(cfg, &stubService{symbol: "BTC/USD"}, "", logger.NewNop()))
	ctx := context.Background()

	book, err := client.GetBook(ctx, "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, "subscribed", book["subscription_status"])
	bids := book["bids"].([]interface{})
	require.Len(t, bids, 1)
	assert.Equal(t, float64(100), bids[0].(map[string]interface{})["price"])

	_, err = client.GetBook(ctx, "XRP/USD")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestToStatusMapping(t *testing.T) {
	assert.Equal(t, codes.Unavailable, status.Code(toStatus(engine.ErrStopped)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(context.DeadlineExceeded)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(os.ErrClosed)))
}
