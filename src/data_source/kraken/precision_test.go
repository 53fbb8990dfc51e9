package kraken

import (
	"context"
	"errors"
	"testing"

	"orderbook-observer/src/logger"
	"orderbook-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedRest struct {
	body []byte
	err  error
}

func (c cannedRest) Get(context.Context, string, map[string]string) ([]byte, error) {
	return c.body, c.err
}

const assetPairs = `{"error":[],"result":{
	"XXBTZUSD":{"altname":"XBTUSD","wsname":"XBT/USD","pair_decimals":1,"lot_decimals":8},
	"XETHZUSD":{"altname":"ETHUSD","wsname":"ETH/USD","pair_decimals":2,"lot_decimals":8},
	"XDGUSD":{"altname":"XDGUSD","wsname":"XDG/USD","pair_decimals":7,"lot_decimals":8}
}}`

func TestSyncTokenPrecision(t *testing.T) {
	cfg := &models.MConfig{Tokens: []models.MTokenConfig{
		{Symbol: "BTC/USD", PairDecimals: 2, LotDecimals: 4},
		{Symbol: "ETH/USD", PairDecimals: 2, LotDecimals: 8},
		{Symbol: "DOGE/USD"},
		{Symbol: "FOO/USD", PairDecimals: 3, LotDecimals: 3},
	}}

	changed, err := SyncTokenPrecision(context.Background(), cannedRest{body: []byte(assetPairs)}, cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, models.MTokenConfig{Symbol: "BTC/USD", PairDecimals: 1, LotDecimals: 8}, cfg.Tokens[0])
	assert.Equal(t, int32(7), cfg.Tokens[2].PairDecimals)
	assert.Equal(t, int32(3), cfg.Tokens[3].PairDecimals)
}

func TestSyncTokenPrecisionErrors(t *testing.T) {
	cfg := &models.MConfig{Tokens: []models.MTokenConfig{{Symbol: "BTC/USD", PairDecimals: 2}}}

	_, err := SyncTokenPrecision(context.Background(), cannedRest{err: errors.New("offline")}, cfg, logger.NewNop())
	assert.Error(t, err)

	_, err = SyncTokenPrecision(context.Background(), cannedRest{body: []byte(`{"error":["EGeneral:Too many requests"]}`)}, cfg, logger.NewNop())
	assert.ErrorContains(t, err, "Too many requests")

	assert.Equal(t, int32(2), cfg.Tokens[0].PairDecimals)
}
