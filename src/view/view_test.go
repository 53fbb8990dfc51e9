package view

import (
	"testing"
	"time"

	"orderbook-observer/src/models"

	"github.com/stretchr/testify/assert"
)

var btc = models.MTokenConfig{Symbol: "BTC/USD", PairDecimals: 1, LotDecimals: 8}

func TestBuildRendersRowsAndSpread(t *testing.T) {
	state := models.MBookState{
		Symbol:              "BTC/USD",
		Bids:                models.MSide{{Price: 100, Quantity: 2, CumulativeTotal: 2}, {Price: 99, Quantity: 3, CumulativeTotal: 5}},
		Asks:                models.MSide{{Price: 101, Quantity: 1, CumulativeTotal: 1}, {Price: 102, Quantity: 4.5, CumulativeTotal: 5.5}},
		SnapshotReceived:    true,
		LastUpdateTimestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	v := Build(state, btc)
	assert.Equal(t, "1.0", v.Spread)
	assert.Equal(t, "0.9901%", v.RelativeSpread)
	assert.Equal(t, models.MViewRow{Price: "100.0", Qty: "2.00000000", Total: "2.00000000"}, v.Bids[0])
	assert.Equal(t, models.MViewRow{Price: "102.0", Qty: "4.50000000", Total: "5.50000000"}, v.Asks[1])
	assert.Equal(t, "5.50000000", v.MaxTotal)
	assert.Equal(t, "2026-05-01T12:00:00Z", v.Timestamp)
	assert.True(t, v.SnapshotReceived)
}

func TestBuildEmptyBook(t *testing.T) {
	v := Build(models.MBookState{Symbol: "ETH/USD"}, btc)
	assert.Equal(t, "-", v.Spread)
	assert.Equal(t, "-", v.RelativeSpread)
	assert.Empty(t, v.Bids)
	assert.Empty(t, v.Timestamp)
	assert.False(t, v.SnapshotReceived)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "97,123.40", FormatPrice(97123.4, 2))
	assert.Equal(t, "1,000,000", FormatPrice(1e6, 0))
	assert.Equal(t, "999.5", FormatPrice(999.5, 1))
	assert.Equal(t, "-1,234.0", FormatPrice(-1234, 1))
	assert.Equal(t, "0.00012", FormatPrice(0.00012, 5))
}
