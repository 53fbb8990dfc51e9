package interfaces

import (
	"context"

	"orderbook-observer/src/models"
)

// -----------------------------------------------------------------------------
// IViewPublisher pushes rendered book views to external listeners.
// Publish must never block the caller.
// -----------------------------------------------------------------------------

type IViewPublisher interface {
	Publish(view models.MBookView)
}

// -----------------------------------------------------------------------------
// IBookService is the read API and command surface used by the HTTP, websocket
// and gRPC front ends.
// -----------------------------------------------------------------------------

type IBookService interface {
	BookState(symbol string) (models.MBookState, bool)
	HistoryEntry(index int) (models.MBookState, bool)
	HistoryLength() int
	CurrentView() models.MBookView
	Status() models.MEngineStatus

	SetSymbol(ctx context.Context, symbol string) error
	SetTimeTravel(ctx context.Context, enabled bool) error
	ToggleTimeTravel(ctx context.Context) error
	Scrub(ctx context.Context, index int) error
}
