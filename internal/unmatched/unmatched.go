// Package unmatched records dish queries the catalog could not match. The
// log drives offline catalog curation.
package unmatched

import (
	"context"
	"sync"
	"time"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/id"
	"github.com/dishplayapp/dishplay-server/internal/logger"
)

// Sink persists unmatched records.
type Sink interface {
	Append(ctx context.Context, rec domain.UnmatchedRecord) error
}

// Indexer mirrors records into the curation search index. Optional.
type Indexer interface {
	IndexUnmatched(rec domain.UnmatchedRecord) error
}

const defaultQueueSize = 256

// Recorder accepts unmatched queries without blocking the resolution path
// and writes them out on a background worker. When the queue is full new
// records are dropped with a warning; losing a curation hint is preferable
// to stalling a resolution.
type Recorder struct {
	sink    Sink
	indexer Indexer
	logger  *logger.Logger

	queue chan domain.UnmatchedRecord
	wg    sync.WaitGroup

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(sink Sink, indexer Indexer, log *logger.Logger) *Recorder {
	r := &Recorder{
		sink:    sink,
		indexer: indexer,
		logger:  log,
		queue:   make(chan domain.UnmatchedRecord, defaultQueueSize),
		stopped: make(chan struct{}),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// Record enqueues an unmatched query. Never blocks.
func (r *Recorder) Record(query domain.Query) {
	rec := domain.UnmatchedRecord{
		ID:          id.MustGenerate(id.PrefixUnmatched),
		Title:       query.Name,
		Description: query.Description,
		LoggedAt:    time.Now().UTC(),
	}

	select {
	case <-r.stopped:
		return
	default:
	}

	select {
	case r.queue <- rec:
	default:
		r.logger.Warn("unmatched queue full, dropping record", "title", rec.Title)
	}
}

// Stop drains the queue and shuts the worker down.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopped)
		r.wg.Wait()
	})
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for {
		select {
		case rec := <-r.queue:
			r.persist(rec)
		case <-r.stopped:
			for {
				select {
				case rec := <-r.queue:
					r.persist(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) persist(rec domain.UnmatchedRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.sink.Append(ctx, rec); err != nil {
		r.logger.WithError(err).Warn("failed to persist unmatched record", "title", rec.Title)
		return
	}
	if r.indexer != nil {
		if err := r.indexer.IndexUnmatched(rec); err != nil {
			r.logger.WithError(err).Warn("failed to index unmatched record", "id", rec.ID)
		}
	}
}
