package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/model"
)

const (
	ProgressBatchSize    = 50
	ProgressBatchTimeout = 2 * time.Second
	ProgressPollTimeout  = 1 * time.Second
)

// ProgressStore writes response progress to Postgres.
type ProgressStore interface {
	BulkUpdateProgress(ctx context.Context, ids []uuid.UUID, progress []int, at []time.Time) error
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error
}

// ProgressWorker batches progress updates from persist_progress_queue.
type ProgressWorker struct {
	store ProgressStore
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewProgressWorker creates a new ProgressWorker.
func NewProgressWorker(store ProgressStore, rdb *redis.Client, log zerolog.Logger) *ProgressWorker {
	return &ProgressWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "progress_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs the batching loop until ctx is cancelled, then flushes what is
// left.
func (w *ProgressWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Worker started")

	batch := make([]model.PersistProgressJob, 0, ProgressBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ProgressBatchSize || time.Since(lastFlush) >= ProgressBatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested, flushing remaining batch")
			w.flushSafe(context.Background(), batch)
			return nil
		default:
			item, err := w.rdb.BLPop(ctx, ProgressPollTimeout, config.WorkerKey.PersistProgressQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var job model.PersistProgressJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil || job.ResponseID == uuid.Nil {
				w.log.Error().Err(err).Msg("Invalid progress payload")
				continue
			}
			batch = append(batch, job)
		}
	}
}

// coalesce keeps the latest job per response, in first-seen order.
func coalesce(batch []model.PersistProgressJob) []model.PersistProgressJob {
	index := make(map[uuid.UUID]int, len(batch))
	out := make([]model.PersistProgressJob, 0, len(batch))
	for _, job := range batch {
		if i, ok := index[job.ResponseID]; ok {
			if !job.At.Before(out[i].At) {
				out[i] = job
			}
			continue
		}
		index[job.ResponseID] = len(out)
		out = append(out, job)
	}
	return out
}

// ----------------------------------------------------------------
// Batch update with per-row fallback
// ----------------------------------------------------------------

func (w *ProgressWorker) flushSafe(ctx context.Context, batch []model.PersistProgressJob) {
	if len(batch) == 0 {
		return
	}
	jobs := coalesce(batch)

	ids := make([]uuid.UUID, len(jobs))
	progress := make([]int, len(jobs))
	at := make([]time.Time, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ResponseID
		progress[i] = j.Progress
		at[i] = j.At
		if at[i].IsZero() {
			at[i] = time.Now()
		}
	}

	err := w.store.BulkUpdateProgress(ctx, ids, progress, at)
	if err == nil {
		w.log.Debug().Int("count", len(jobs)).Msg("Progress batch flushed")
		return
	}

	w.log.Warn().Err(err).Msg("Bulk progress update failed, using fallback")
	for _, j := range jobs {
		if err := w.store.UpdateProgress(ctx, j.ResponseID, j.Progress); err != nil {
			w.log.Error().Err(err).Str("response_id", j.ResponseID.String()).Msg("Progress update failed, requeueing")
			raw, _ := json.Marshal(j)
			w.rdb.RPush(context.WithoutCancel(ctx), config.WorkerKey.PersistProgressQueue, raw)
		}
	}
}
