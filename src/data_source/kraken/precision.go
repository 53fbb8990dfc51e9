package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"orderbook-observer/src/interfaces"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/models"
)

type assetPairsResponse struct {
	Error  []string             `json:"error"`
	Result map[string]assetPair `json:"result"`
}

type assetPair struct {
	WSName       string `json:"wsname"`
	PairDecimals int32  `json:"pair_decimals"`
	LotDecimals  int32  `json:"lot_decimals"`
}

// legacy asset codes still used by the REST catalogue
var restAliases = map[string]string{
	"XBT": "BTC",
	"XDG": "DOGE",
}

// -----------------------------------------------------------------------------

// SyncTokenPrecision refreshes pair and lot decimals of the configured tokens
// from the REST AssetPairs catalogue. Tokens the catalogue does not list keep
// their configured precision. It returns how many tokens changed.
func SyncTokenPrecision(ctx context.Context, client interfaces.IRestClient, cfg *models.MConfig, log *logger.Logger) (int, error) {
	body, err := client.Get(ctx, cfg.Feed.RestURL, nil)
	if err != nil {
		return 0, err
	}

	var resp assetPairsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode asset pairs: %w", err)
	}
	if len(resp.Error) > 0 {
		return 0, fmt.Errorf("asset pairs: %s", strings.Join(resp.Error, "; "))
	}

	bySymbol := make(map[string]assetPair, len(resp.Result))
	for _, p := range resp.Result {
		if p.WSName != "" {
			bySymbol[normalizeSymbol(p.WSName)] = p
		}
	}

	changed := 0
	for i, tok := range cfg.Tokens {
		p, ok := bySymbol[tok.Symbol]
		if !ok {
			log.Warning("No catalogue entry for %s, keeping configured precision", tok.Symbol)
			continue
		}
		if p.PairDecimals == tok.PairDecimals && p.LotDecimals == tok.LotDecimals {
			continue
		}
		log.Info("Precision for %s: pair %d -> %d, lot %d -> %d", tok.Symbol, tok.PairDecimals, p.PairDecimals, tok.LotDecimals, p.LotDecimals)
		cfg.Tokens[i].PairDecimals = p.PairDecimals
		cfg.Tokens[i].LotDecimals = p.LotDecimals
		changed++
	}
	return changed, nil
}

// -----------------------------------------------------------------------------

func normalizeSymbol(wsName string) string {
	base, quote, ok := strings.Cut(wsName, "/")
	if !ok {
		return wsName
	}
	if alias, found := restAliases[base]; found {
		base = alias
	}
	if alias, found := restAliases[quote]; found {
		quote = alias
	}
	return base + "/" + quote
}
