package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"orderbook-observer/src/engine"
	"orderbook-observer/src/history"
)

// -----------------------------------------------------------------------------

// statusForError maps book service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownSymbol):
		return http.StatusBadRequest
	case errors.Is(err, history.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, history.ErrNoSnapshot), errors.Is(err, history.ErrTimeTravelDisabled):
		return http.StatusConflict
	case errors.Is(err, engine.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// -----------------------------------------------------------------------------

func parseIndex(raw string) (int, bool) {
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return i, true
}
