package interfaces

import "context"

// -----------------------------------------------------------------------------
// IRestClient performs REST calls against the exchange.
// -----------------------------------------------------------------------------

type IRestClient interface {
	Get(ctx context.Context, url string, params map[string]string) ([]byte, error)
}
