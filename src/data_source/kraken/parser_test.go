package kraken

import (
	"encoding/json"
	"testing"

	"orderbook-observer/src/helpers"
	"orderbook-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnapshot(t *testing.T) {
	raw := `{"channel":"book","type":"snapshot","data":[{"symbol":"BTC/USD",
		"bids":[{"price":100.0,"qty":2.0},{"price":99.0,"qty":3.0}],
		"asks":[{"price":101.0,"qty":1.0}],"checksum":123,"timestamp":"2026-01-02T03:04:05.123456Z"}]}`

	ev, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, models.MOrdersEvent{
		Type:      models.MessageSnapshot,
		Symbol:    "BTC/USD",
		Bids:      []models.MPriceLevel{{Price: 100, Quantity: 2}, {Price: 99, Quantity: 3}},
		Asks:      []models.MPriceLevel{{Price: 101, Quantity: 1}},
		Timestamp: "2026-01-02T03:04:05.123456Z",
	}, ev)
}

func TestParseUpdateWithoutTimestamp(t *testing.T) {
	raw := `{"channel":"book","type":"update","data":[{"symbol":"ETH/USD","bids":[{"price":10.5,"qty":0}],"asks":[]}]}`

	ev, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	orders, ok := ev.(models.MOrdersEvent)
	require.True(t, ok)
	assert.Equal(t, models.MessageUpdate, orders.Type)
	assert.Empty(t, orders.Timestamp)
	assert.Equal(t, []models.MPriceLevel{{Price: 10.5, Quantity: 0}}, orders.Bids)
	assert.Empty(t, orders.Asks)
}

func TestParseAcks(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want models.MSubscriptionStatusEvent
	}{
		{
			name: "subscribe success",
			raw:  `{"method":"subscribe","result":{"channel":"book","symbol":"BTC/USD","depth":10,"snapshot":true},"success":true,"req_id":1}`,
			want: models.MSubscriptionStatusEvent{Method: models.MethodSubscribe, Symbol: "BTC/USD", Success: true},
		},
		{
			name: "unsubscribe success",
			raw:  `{"method":"unsubscribe","result":{"channel":"book","symbol":"BTC/USD","depth":10},"success":true}`,
			want: models.MSubscriptionStatusEvent{Method: models.MethodUnsubscribe, Symbol: "BTC/USD", Success: true},
		},
		{
			name: "subscribe failure carries top-level symbol",
			raw:  `{"error":"Currency pair not supported","method":"subscribe","success":false,"symbol":"FOO/BAR"}`,
			want: models.MSubscriptionStatusEvent{Method: models.MethodSubscribe, Symbol: "FOO/BAR", Success: false, Error: "Currency pair not supported"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := ParseMessage([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev)
		})
	}
}

func TestParseIgnoredFrames(t *testing.T) {
	for _, raw := range []string{
		`{"method":"pong","req_id":4}`,
		`{"channel":"heartbeat"}`,
		`{"channel":"status","type":"update","data":[{"system":"online"}]}`,
		`{"method":"subscribe","result":{"channel":"ticker","symbol":"BTC/USD"},"success":true}`,
	} {
		ev, err := ParseMessage([]byte(raw))
		assert.NoError(t, err, raw)
		assert.Nil(t, ev, raw)
	}
}

func TestParseMalformed(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":           `{"channel":`,
		"unknown type":       `{"channel":"book","type":"delta","data":[{"symbol":"BTC/USD"}]}`,
		"no data":            `{"channel":"book","type":"update","data":[]}`,
		"no symbol":          `{"channel":"book","type":"update","data":[{"bids":[]}]}`,
		"missing qty":        `{"channel":"book","type":"update","data":[{"symbol":"BTC/USD","bids":[{"price":1}]}]}`,
		"negative qty":       `{"channel":"book","type":"update","data":[{"symbol":"BTC/USD","asks":[{"price":1,"qty":-1}]}]}`,
		"ack without flag":   `{"method":"subscribe","result":{"channel":"book","symbol":"BTC/USD"}}`,
		"ack without symbol": `{"method":"unsubscribe","success":true}`,
	} {
		t.Run(name, func(t *testing.T) {
			ev, err := ParseMessage([]byte(raw))
			assert.Nil(t, ev)
			var malformed *helpers.MalformedMessageError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestEncodeSubscription(t *testing.T) {
	payload, err := encodeSubscription(models.MSubscriptionRequest{Method: models.MethodSubscribe, Symbol: "BTC/USD"}, 10, 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"subscribe","params":{"channel":"book","symbol":["BTC/USD"],"depth":10},"req_id":7}`, string(payload))

	ping, err := encodePing(8)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ping, &decoded))
	assert.Equal(t, "ping", decoded["method"])
	assert.NotContains(t, decoded, "params")
}
