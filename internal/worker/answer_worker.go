package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/model"
)

const (
	AnswerPollTimeout = 1 * time.Second
	AnswerRetryDelay  = 5 * time.Second
)

// AnswerStore merges single answers into a stored response.
type AnswerStore interface {
	MergeAnswer(ctx context.Context, id uuid.UUID, code string, value json.RawMessage) (bool, error)
}

// answerQueue is the subset of the Redis client the answer worker uses.
type answerQueue interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPop(ctx context.Context, key string) *redis.StringCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// AnswerWorker consumes persist_answers_queue and merges each live answer into
// the response's JSONB answer document. Jobs are merged in queue order; a
// failed job is retried before any later one.
type AnswerWorker struct {
	store      AnswerStore
	queue      answerQueue
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(store AnswerStore, rdb *redis.Client, log zerolog.Logger) *AnswerWorker {
	return &AnswerWorker{
		store:      store,
		queue:      rdb,
		retryDelay: AnswerRetryDelay,
		log:        log.With().Str("component", "answer_worker").Logger(),
	}
}

func parseAnswerJob(raw string) (*model.PersistAnswerJob, error) {
	var job model.PersistAnswerJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, err
	}
	if job.ResponseID == uuid.Nil {
		return nil, errors.New("missing response_id")
	}
	if job.Code == "" {
		return nil, errors.New("missing code")
	}
	return &job, nil
}

// Start runs the worker loop until ctx is cancelled, then drains the queue.
func (w *AnswerWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return nil
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerWorker) processNext(ctx context.Context) {
	result, err := w.queue.BLPop(ctx, AnswerPollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	job, err := parseAnswerJob(result[1])
	if err != nil {
		w.log.Error().Err(err).Msg("Dropping malformed answer job")
		return
	}

	if err := w.persist(ctx, job); err != nil {
		w.log.Error().Err(err).
			Str("response_id", job.ResponseID.String()).
			Str("code", job.Code).
			Msg("Persist error, retrying")
		// Back to the head: a later job for the same code must not merge first.
		w.queue.LPush(context.WithoutCancel(ctx), config.WorkerKey.PersistAnswersQueue, result[1])

		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}

func (w *AnswerWorker) persist(ctx context.Context, job *model.PersistAnswerJob) error {
	updated, err := w.store.MergeAnswer(ctx, job.ResponseID, job.Code, job.Value)
	if err != nil {
		return fmt.Errorf("merge answer: %w", err)
	}
	if !updated {
		// Submitted or deleted meanwhile; the frozen document wins.
		w.log.Debug().
			Str("response_id", job.ResponseID.String()).
			Str("code", job.Code).
			Msg("Skipped answer for non-draft response")
	}
	return nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.queue.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		job, err := parseAnswerJob(raw)
		if err != nil {
			w.log.Error().Err(err).Msg("Drain parse error")
			continue
		}

		if err := w.persist(ctx, job); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.queue.LPush(ctx, config.WorkerKey.PersistAnswersQueue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
