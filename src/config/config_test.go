package config

import (
	"path/filepath"
	"testing"

	"orderbook-observer/src/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
name: orderbook-observer
host: 0.0.0.0
port: 8080
tokens:
  - symbol: BTC/USD
    pair_decimals: 1
    lot_decimals: 8
  - symbol: ETH/USD
    pair_decimals: 2
    lot_decimals: 8
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, DefaultFeedURL, cfg.Feed.URL)
	assert.Equal(t, 15, cfg.Feed.PingIntervalSeconds)
	assert.Equal(t, 1, cfg.Feed.ReconnectDelaySeconds)
	assert.Equal(t, 30, cfg.Feed.MaxReconnectDelaySeconds)
	assert.Equal(t, 10, cfg.Book.Depth)
	assert.Equal(t, 500, cfg.Book.HistoryCapacity)
	assert.Equal(t, "none", cfg.Storage.DBType)
	assert.Equal(t, "BTC/USD", cfg.DefaultSymbol)

	tok, ok := cfg.Token("ETH/USD")
	require.True(t, ok)
	assert.Equal(t, int32(2), tok.PairDecimals)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing name":        "host: h\nport: 8080\ntokens: [{symbol: A}]",
		"low port":            "name: n\nhost: h\nport: 80\ntokens: [{symbol: A}]",
		"bad grpc port":       "name: n\nhost: h\nport: 8080\ngrpc_port: 99999\ntokens: [{symbol: A}]",
		"no tokens":           "name: n\nhost: h\nport: 8080",
		"duplicate token":     "name: n\nhost: h\nport: 8080\ntokens: [{symbol: A}, {symbol: A}]",
		"negative decimals":   "name: n\nhost: h\nport: 8080\ntokens: [{symbol: A, pair_decimals: -1}]",
		"unknown default":     "name: n\nhost: h\nport: 8080\ntokens: [{symbol: A}]\ndefault_symbol: B",
		"unknown db":          "name: n\nhost: h\nport: 8080\ntokens: [{symbol: A}]\nstorage: {db_type: mongo}",
		"sqlite without path": "name: n\nhost: h\nport: 8080\ntokens: [{symbol: A}]\nstorage: {db_type: sqlite}",
		"negative depth":      "name: n\nhost: h\nport: 8080\ntokens: [{symbol: A}]\nbook: {depth: -1}",
		"inverted backoff":    "name: n\nhost: h\nport: 8080\ntokens: [{symbol: A}]\nfeed: {reconnect_delay_seconds: 10, max_reconnect_delay_seconds: 5}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			var cfgErr *helpers.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)
	cfg.DefaultSymbol = "ETH/USD"

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.MConfig, loaded.MConfig)
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
