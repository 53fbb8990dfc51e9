package models

// -----------------------------------------------------------------------------
// Rendered view (read side)
// -----------------------------------------------------------------------------

type MViewRow struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
	Total string `json:"total"`
}

// MBookView is what the websocket hub pushes and /api/view returns.
type MBookView struct {
	Type              string     `json:"type"` // "INITIAL" or "UPDATE"
	Symbol            string     `json:"symbol"`
	Bids              []MViewRow `json:"bids"`
	Asks              []MViewRow `json:"asks"`
	MaxTotal          string     `json:"max_total"`
	Spread            string     `json:"spread"`
	RelativeSpread    string     `json:"relative_spread"`
	SnapshotReceived  bool       `json:"snapshot_received"`
	Timestamp         string     `json:"timestamp"`
	TimeTravelEnabled bool       `json:"time_travel_enabled"`
	HistoryIndex      int        `json:"history_index"`
	HistoryLength     int        `json:"history_length"`
}

// MViewCommand is a client message on the view websocket.
type MViewCommand struct {
	Command string `json:"command"`
	Symbol  string `json:"symbol"`
	Enabled bool   `json:"enabled"`
	Index   int    `json:"index"`
}

// MEngineStatus summarises the engine for health and control endpoints.
type MEngineStatus struct {
	DesiredSymbol     string   `json:"desired_symbol"`
	TransportOpen     bool     `json:"transport_open"`
	ActiveSymbols     []string `json:"active_symbols"`
	TrackedSymbols    []string `json:"tracked_symbols"`
	TimeTravelEnabled bool     `json:"time_travel_enabled"`
	HistoryIndex      int      `json:"history_index"`
	HistoryLength     int      `json:"history_length"`
	HistoryCapacity   int      `json:"history_capacity"`
}
