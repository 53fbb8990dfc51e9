package storage

import (
	"context"
	"sync"
	"time"

	"orderbook-observer/src/interfaces"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/metrics"
	"orderbook-observer/src/models"

	"github.com/google/uuid"
)

const recorderQueueSize = 1024

// -----------------------------------------------------------------------------

// AsyncRecorder queues frames from the engine loop and writes them to an
// IFrameRecorder in batches on its own goroutine. A full queue drops frames
// rather than stalling the engine.
type AsyncRecorder struct {
	sink       interfaces.IFrameRecorder
	Logger     *logger.Logger
	SessionID  string
	frames     chan models.MBookFrame
	batchSize  int
	flushEvery time.Duration
	now        func() time.Time

	seq int64 // owned by the Record caller
}

// -----------------------------------------------------------------------------

func NewAsyncRecorder(sink interfaces.IFrameRecorder, cfg models.MStorageConfig, log *logger.Logger) *AsyncRecorder {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	flush := time.Duration(cfg.FlushIntervalMs) * time.Millisecond
	if flush <= 0 {
		flush = 500 * time.Millisecond
	}
	return &AsyncRecorder{
		sink:       sink,
		Logger:     log,
		SessionID:  uuid.NewString(),
		frames:     make(chan models.MBookFrame, recorderQueueSize),
		batchSize:  batch,
		flushEvery: flush,
		now:        time.Now,
	}
}

// -----------------------------------------------------------------------------

// Record enqueues a frame and reports whether it was accepted.
func (r *AsyncRecorder) Record(state models.MBookState) bool {
	r.seq++
	frame := models.MBookFrame{
		SessionID:  r.SessionID,
		Sequence:   r.seq,
		State:      state,
		RecordedAt: r.now().UTC(),
	}
	select {
	case r.frames <- frame:
		return true
	default:
		metrics.RecorderFramesTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

// -----------------------------------------------------------------------------

// Run writes batches until ctx is cancelled, then flushes what is queued.
func (r *AsyncRecorder) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	batch := make([]models.MBookFrame, 0, r.batchSize)
	for {
		select {
		case f := <-r.frames:
			batch = append(batch, f)
			if len(batch) >= r.batchSize {
				batch = r.flush(batch)
			}
		case <-ticker.C:
			batch = r.flush(batch)
		case <-ctx.Done():
			for {
				select {
				case f := <-r.frames:
					batch = append(batch, f)
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (r *AsyncRecorder) flush(batch []models.MBookFrame) []models.MBookFrame {
	if len(batch) == 0 {
		return batch
	}
	if err := r.sink.SaveFrames(batch); err != nil {
		r.Logger.Error("Failed to save %d frames: %v", len(batch), err)
		metrics.RecorderFramesTotal.WithLabelValues("failed").Add(float64(len(batch)))
	} else {
		metrics.RecorderFramesTotal.WithLabelValues("saved").Add(float64(len(batch)))
	}
	return batch[:0]
}
