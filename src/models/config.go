package models

// MConfig Structure
type MConfig struct {
	Name          string         `yaml:"name"`
	Host          string         `yaml:"host"`
	Port          int            `yaml:"port"`
	LogLevel      string         `yaml:"log_level"`
	GrpcHost      string         `yaml:"grpc_host"`
	GrpcPort      int            `yaml:"grpc_port"`
	Feed          MFeedConfig    `yaml:"feed"`
	Book          MBookConfig    `yaml:"book"`
	Storage       MStorageConfig `yaml:"storage"`
	Tokens        []MTokenConfig `yaml:"tokens"`
	DefaultSymbol string         `yaml:"default_symbol"`
}

type MFeedConfig struct {
	URL                      string `yaml:"url"`
	PingIntervalSeconds      int    `yaml:"ping_interval_seconds"`
	ReconnectDelaySeconds    int    `yaml:"reconnect_delay_seconds"`
	MaxReconnectDelaySeconds int    `yaml:"max_reconnect_delay_seconds"`
	WriteTimeoutSeconds      int    `yaml:"write_timeout_seconds"`

	// REST catalogue used to refresh token precision at startup
	RestURL               string `yaml:"rest_url"`
	SyncPrecision         bool   `yaml:"sync_precision"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	MaxRetries            int    `yaml:"max_retries"`
}

type MBookConfig struct {
	Depth           int `yaml:"depth"`
	HistoryCapacity int `yaml:"history_capacity"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // none, sqlite or postgres
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	BatchSize          int    `yaml:"batch_size"`
	FlushIntervalMs    int    `yaml:"flush_interval_ms"`
}

// MTokenConfig describes a tradable pair and its display precision.
type MTokenConfig struct {
	Symbol       string `yaml:"symbol" json:"symbol"`
	PairDecimals int32  `yaml:"pair_decimals" json:"pair_decimals"`
	LotDecimals  int32  `yaml:"lot_decimals" json:"lot_decimals"`
}

// Token looks up a configured token by symbol.
func (c *MConfig) Token(symbol string) (MTokenConfig, bool) {
	for _, t := range c.Tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return MTokenConfig{}, false
}
