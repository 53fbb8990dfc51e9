// Package view projects a book state into display rows with the token's
// price and lot precision.
package view

import (
	"strings"
	"time"

	"orderbook-observer/src/models"

	"github.com/shopspring/decimal"
)

const (
	noValue                = "-"
	relativeSpreadDecimals = 4
)

var hundred = decimal.NewFromInt(100)

// -----------------------------------------------------------------------------

// Build renders state for token. Missing spread values render as "-".
func Build(state models.MBookState, token models.MTokenConfig) models.MBookView {
	v := models.MBookView{
		Type:             "UPDATE",
		Symbol:           state.Symbol,
		Bids:             rows(state.Bids, token),
		Asks:             rows(state.Asks, token),
		MaxTotal:         maxTotal(state, token),
		Spread:           noValue,
		RelativeSpread:   noValue,
		SnapshotReceived: state.SnapshotReceived,
		HistoryIndex:     -1,
	}
	if !state.LastUpdateTimestamp.IsZero() {
		v.Timestamp = state.LastUpdateTimestamp.UTC().Format(time.RFC3339Nano)
	}

	bid, okBid := state.Bids.Best()
	ask, okAsk := state.Asks.Best()
	if okBid && okAsk {
		lowestAsk := decimal.NewFromFloat(ask.Price)
		spread := lowestAsk.Sub(decimal.NewFromFloat(bid.Price))
		v.Spread = spread.StringFixed(token.PairDecimals)
		if !lowestAsk.IsZero() {
			v.RelativeSpread = spread.Div(lowestAsk).Mul(hundred).StringFixed(relativeSpreadDecimals) + "%"
		}
	}
	return v
}

// -----------------------------------------------------------------------------

func rows(side models.MSide, token models.MTokenConfig) []models.MViewRow {
	out := make([]models.MViewRow, len(side))
	for i, l := range side {
		out[i] = models.MViewRow{
			Price: FormatPrice(l.Price, token.PairDecimals),
			Qty:   decimal.NewFromFloat(l.Quantity).StringFixed(token.LotDecimals),
			Total: decimal.NewFromFloat(l.CumulativeTotal).StringFixed(token.LotDecimals),
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// maxTotal is the deepest cumulative total across both sides, the scale for depth bars.
func maxTotal(state models.MBookState, token models.MTokenConfig) string {
	var m float64
	if n := len(state.Bids); n > 0 {
		m = state.Bids[n-1].CumulativeTotal
	}
	if n := len(state.Asks); n > 0 && state.Asks[n-1].CumulativeTotal > m {
		m = state.Asks[n-1].CumulativeTotal
	}
	return decimal.NewFromFloat(m).StringFixed(token.LotDecimals)
}

// -----------------------------------------------------------------------------

// FormatPrice renders a price with fixed decimals and comma thousands separators.
func FormatPrice(price float64, decimals int32) string {
	s := decimal.NewFromFloat(price).StringFixed(decimals)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
