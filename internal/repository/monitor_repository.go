package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/model"
)

// MonitorRepository provides data access for live survey monitoring.
// It combines PostgreSQL (stored progress) and Redis (live answer buffers and
// the progress channel).
type MonitorRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool, rdb *redis.Client) *MonitorRepository {
	return &MonitorRepository{pool: pool, rdb: rdb}
}

// MonitorRow is one response in the live monitor snapshot.
type MonitorRow struct {
	ResponseID   uuid.UUID `json:"response_id"`
	FacilityID   uuid.UUID `json:"facility_id"`
	FacilityName string    `json:"facility_name"`
	SurveyorID   int       `json:"surveyor_id"`
	SurveyorName string    `json:"surveyor_name"`
	Progress     int       `json:"progress"`
	Status       string    `json:"status"`
	LiveAnswers  int64     `json:"live_answers"`
}

// GetTemplateResponses returns every response of a template with its stored
// progress, most recently touched first.
func (r *MonitorRepository) GetTemplateResponses(ctx context.Context, templateID uuid.UUID) ([]MonitorRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sr.id, sr.facility_id, f.name, sr.surveyor_id, u.name, sr.progress, sr.status
		 FROM survey_responses sr
		 JOIN facilities f ON f.id = sr.facility_id
		 JOIN users u ON u.id = sr.surveyor_id
		 WHERE sr.template_id = $1
		 ORDER BY sr.updated_at DESC`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MonitorRow{}
	for rows.Next() {
		var m MonitorRow
		if err := rows.Scan(&m.ResponseID, &m.FacilityID, &m.FacilityName, &m.SurveyorID,
			&m.SurveyorName, &m.Progress, &m.Status); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetLiveAnswerCounts returns the number of buffered answers in Redis for each
// response, pipelined into one round trip.
func (r *MonitorRepository) GetLiveAnswerCounts(ctx context.Context, responseIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(responseIDs))
	if len(responseIDs) == 0 {
		return counts, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(responseIDs))
	for i, id := range responseIDs {
		cmds[i] = pipe.HLen(ctx, config.CacheKey.SurveyAnswersKey(id.String()))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	for i, id := range responseIDs {
		if n, err := cmds[i].Result(); err == nil {
			counts[id] = n
		}
	}
	return counts, nil
}

// PublishProgress sends a progress event on the template's monitor channel.
func (r *MonitorRepository) PublishProgress(ctx context.Context, evt model.SurveyProgressEvent) error {
	payload, err := json.Marshal(map[string]interface{}{
		"type": "progress",
		"data": evt,
	})
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, config.CacheKey.SurveyMonitorChannel(evt.TemplateID.String()), payload).Err()
}

// Subscribe opens a PubSub subscription on the template's monitor channel.
func (r *MonitorRepository) Subscribe(ctx context.Context, templateID uuid.UUID) *redis.PubSub {
	return r.rdb.Subscribe(ctx, config.CacheKey.SurveyMonitorChannel(templateID.String()))
}
