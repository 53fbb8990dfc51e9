package kraken

import (
	"encoding/json"
	"fmt"

	"orderbook-observer/src/helpers"
	"orderbook-observer/src/models"
)

// -----------------------------------------------------------------------------
// Wire types (Kraken websocket v2)
// -----------------------------------------------------------------------------

type wireMessage struct {
	Method  string          `json:"method"`
	Channel string          `json:"channel"`
	Type    string          `json:"type"`
	Success *bool           `json:"success"`
	Error   string          `json:"error"`
	Symbol  string          `json:"symbol"`
	Result  *wireResult     `json:"result"`
	Data    []wireBookEntry `json:"data"`
}

type wireResult struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

type wireBookEntry struct {
	Symbol    string      `json:"symbol"`
	Bids      []wireLevel `json:"bids"`
	Asks      []wireLevel `json:"asks"`
	Timestamp string      `json:"timestamp"`
}

type wireLevel struct {
	Price *float64 `json:"price"`
	Qty   *float64 `json:"qty"`
}

type wireParams struct {
	Channel string   `json:"channel"`
	Symbol  []string `json:"symbol"`
	Depth   int      `json:"depth,omitempty"`
}

type wireRequest struct {
	Method string      `json:"method"`
	Params *wireParams `json:"params,omitempty"`
	ReqID  int64       `json:"req_id"`
}

// -----------------------------------------------------------------------------

// ParseMessage decodes one feed frame. It returns a nil event for frames that
// carry nothing for the book (pong, heartbeat, status) and a
// *helpers.MalformedMessageError when a required field is missing.
func ParseMessage(raw []byte) (models.MEvent, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, helpers.NewMalformedMessageError("invalid json", raw, err)
	}

	switch msg.Method {
	case string(models.MethodSubscribe), string(models.MethodUnsubscribe):
		return parseAck(msg, raw)
	case "":
		// data frames carry no method
	default:
		// pong and other request responses
		return nil, nil
	}

	if msg.Channel == "book" {
		return parseBook(msg, raw)
	}
	// heartbeat, status
	return nil, nil
}

// -----------------------------------------------------------------------------

func parseAck(msg wireMessage, raw []byte) (models.MEvent, error) {
	if msg.Success == nil {
		return nil, helpers.NewMalformedMessageError("ack without success flag", raw, nil)
	}
	symbol := msg.Symbol
	if msg.Result != nil && msg.Result.Symbol != "" {
		symbol = msg.Result.Symbol
	}
	if msg.Result != nil && msg.Result.Channel != "" && msg.Result.Channel != "book" {
		return nil, nil
	}
	if symbol == "" {
		return nil, helpers.NewMalformedMessageError("ack without symbol", raw, nil)
	}
	return models.MSubscriptionStatusEvent{
		Method:  models.SubscriptionMethod(msg.Method),
		Symbol:  symbol,
		Success: *msg.Success,
		Error:   msg.Error,
	}, nil
}

// -----------------------------------------------------------------------------

func parseBook(msg wireMessage, raw []byte) (models.MEvent, error) {
	var kind models.MessageType
	switch msg.Type {
	case string(models.MessageSnapshot):
		kind = models.MessageSnapshot
	case string(models.MessageUpdate):
		kind = models.MessageUpdate
	default:
		return nil, helpers.NewMalformedMessageError(fmt.Sprintf("unknown book type %q", msg.Type), raw, nil)
	}
	if len(msg.Data) == 0 {
		return nil, helpers.NewMalformedMessageError("book message without data", raw, nil)
	}

	entry := msg.Data[0]
	if entry.Symbol == "" {
		return nil, helpers.NewMalformedMessageError("book message without symbol", raw, nil)
	}
	bids, err := toLevels(entry.Bids)
	if err != nil {
		return nil, helpers.NewMalformedMessageError("bids: "+err.Error(), raw, err)
	}
	asks, err := toLevels(entry.Asks)
	if err != nil {
		return nil, helpers.NewMalformedMessageError("asks: "+err.Error(), raw, err)
	}

	return models.MOrdersEvent{
		Type:      kind,
		Symbol:    entry.Symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: entry.Timestamp,
	}, nil
}

// -----------------------------------------------------------------------------

func toLevels(in []wireLevel) ([]models.MPriceLevel, error) {
	out := make([]models.MPriceLevel, 0, len(in))
	for i, l := range in {
		if l.Price == nil || l.Qty == nil {
			return nil, fmt.Errorf("level %d is missing price or qty", i)
		}
		if *l.Qty < 0 {
			return nil, fmt.Errorf("level %d has negative qty", i)
		}
		out = append(out, models.MPriceLevel{Price: *l.Price, Quantity: *l.Qty})
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func encodeSubscription(req models.MSubscriptionRequest, depth int, reqID int64) ([]byte, error) {
	return json.Marshal(wireRequest{
		Method: string(req.Method),
		Params: &wireParams{Channel: "book", Symbol: []string{req.Symbol}, Depth: depth},
		ReqID:  reqID,
	})
}

func encodePing(reqID int64) ([]byte, error) {
	return json.Marshal(wireRequest{Method: "ping", ReqID: reqID})
}
