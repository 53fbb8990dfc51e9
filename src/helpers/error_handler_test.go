package helpers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesUpToMax(t *testing.T) {
	b := &Backoff{Base: time.Second, Max: 5 * time.Second}

	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 5*time.Second, b.Next())
	assert.Equal(t, 5*time.Second, b.Next())

	b.Reset()
	assert.Equal(t, time.Second, b.Next())
}

func TestMalformedMessageErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := NewMalformedMessageError("missing symbol", []byte(`{"x":1}`), cause)

	var target *MalformedMessageError
	assert.True(t, errors.As(error(err), &target))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "missing symbol")
	assert.Equal(t, []byte(`{"x":1}`), target.Raw)
}

func TestSleepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Sleep(ctx, time.Hour))
	assert.True(t, Sleep(context.Background(), time.Millisecond))
}
