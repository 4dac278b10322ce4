package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
)

// SurveyResponseRepository handles survey response data access.
type SurveyResponseRepository struct {
	pool *pgxpool.Pool
}

// NewSurveyResponseRepository creates a new SurveyResponseRepository.
func NewSurveyResponseRepository(pool *pgxpool.Pool) *SurveyResponseRepository {
	return &SurveyResponseRepository{pool: pool}
}

const responseColumns = `id, template_id, facility_id, surveyor_id, survey_date, period_start, period_end,
	answers, progress, status, submitted_at, created_at, updated_at`

func scanResponse(row rowScanner) (*model.SurveyResponse, error) {
	sr := &model.SurveyResponse{}
	err := row.Scan(&sr.ID, &sr.TemplateID, &sr.FacilityID, &sr.SurveyorID, &sr.SurveyDate,
		&sr.PeriodStart, &sr.PeriodEnd, &sr.Answers, &sr.Progress, &sr.Status, &sr.SubmittedAt,
		&sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if sr.Answers == nil {
		sr.Answers = questionnaire.AnswerSet{}
	}
	return sr, nil
}

// GetByID retrieves a response with its answers.
func (r *SurveyResponseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SurveyResponse, error) {
	return scanResponse(r.pool.QueryRow(ctx,
		`SELECT `+responseColumns+` FROM survey_responses WHERE id = $1`, id))
}

// Create inserts a new DRAFT response.
func (r *SurveyResponseRepository) Create(ctx context.Context, sr *model.SurveyResponse) error {
	sr.Status = questionnaire.StatusDraft
	err := r.pool.QueryRow(ctx,
		`INSERT INTO survey_responses
		   (template_id, facility_id, surveyor_id, survey_date, period_start, period_end, answers, progress, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		sr.TemplateID, sr.FacilityID, sr.SurveyorID, sr.SurveyDate, sr.PeriodStart, sr.PeriodEnd,
		sr.Answers, sr.Progress, sr.Status,
	).Scan(&sr.ID, &sr.CreatedAt, &sr.UpdatedAt)
	return translate(err)
}

// UpdateDraft overwrites the metadata, answers and progress of a DRAFT
// response. It returns ErrNotFound when no DRAFT row with that ID exists.
func (r *SurveyResponseRepository) UpdateDraft(ctx context.Context, sr *model.SurveyResponse) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE survey_responses
		 SET facility_id = $1, survey_date = $2, period_start = $3, period_end = $4,
		     answers = $5, progress = $6, updated_at = NOW()
		 WHERE id = $7 AND status = 'DRAFT'
		 RETURNING updated_at`,
		sr.FacilityID, sr.SurveyDate, sr.PeriodStart, sr.PeriodEnd, sr.Answers, sr.Progress, sr.ID,
	).Scan(&sr.UpdatedAt)
	return translate(err)
}

// Submit freezes a DRAFT response with its final answers. It returns
// ErrNotFound when no DRAFT row with that ID exists.
func (r *SurveyResponseRepository) Submit(ctx context.Context, sr *model.SurveyResponse) error {
	sr.Status = questionnaire.StatusSubmitted
	err := r.pool.QueryRow(ctx,
		`UPDATE survey_responses
		 SET answers = $1, progress = $2, status = $3, submitted_at = NOW(), updated_at = NOW()
		 WHERE id = $4 AND status = 'DRAFT'
		 RETURNING submitted_at, updated_at`,
		sr.Answers, sr.Progress, sr.Status, sr.ID,
	).Scan(&sr.SubmittedAt, &sr.UpdatedAt)
	return translate(err)
}

// MergeAnswer writes a single answer into a DRAFT response's answer document.
// A nil value removes the key. It reports whether a row was updated; submitted
// responses are left untouched.
func (r *SurveyResponseRepository) MergeAnswer(ctx context.Context, id uuid.UUID, code string, value json.RawMessage) (bool, error) {
	var (
		query string
		args  []interface{}
	)
	if value == nil || string(value) == "null" {
		query = `UPDATE survey_responses SET answers = answers - $2::text, updated_at = NOW()
		         WHERE id = $1 AND status = 'DRAFT'`
		args = []interface{}{id, code}
	} else {
		query = `UPDATE survey_responses
		         SET answers = answers || jsonb_build_object($2::text, $3::jsonb), updated_at = NOW()
		         WHERE id = $1 AND status = 'DRAFT'`
		args = []interface{}{id, code, string(value)}
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// BulkUpdateProgress sets the progress of many DRAFT responses in one
// statement. ids and progress are parallel slices.
func (r *SurveyResponseRepository) BulkUpdateProgress(ctx context.Context, ids []uuid.UUID, progress []int, at []time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE survey_responses AS s
		 SET progress = t.progress,
		     updated_at = GREATEST(s.updated_at, t.at)
		 FROM (
			SELECT u.id, u.progress, u.at
			FROM UNNEST($1::uuid[], $2::int[], $3::timestamptz[]) AS u (id, progress, at)
		 ) AS t
		 WHERE s.id = t.id AND s.status = 'DRAFT'`,
		ids, progress, at)
	return err
}

// UpdateProgress sets the progress of a single DRAFT response.
func (r *SurveyResponseRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE survey_responses SET progress = $1, updated_at = NOW()
		 WHERE id = $2 AND status = 'DRAFT'`, progress, id)
	return err
}

// List retrieves a page of response summaries.
func (r *SurveyResponseRepository) List(ctx context.Context, f model.SurveyFilter, limit, offset int) ([]model.SurveyResponseSummary, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if f.TemplateID != nil {
		args = append(args, *f.TemplateID)
		where += ` AND sr.template_id = ` + placeholder(args)
	}
	if f.FacilityID != nil {
		args = append(args, *f.FacilityID)
		where += ` AND sr.facility_id = ` + placeholder(args)
	}
	if f.SurveyorID != nil {
		args = append(args, *f.SurveyorID)
		where += ` AND sr.surveyor_id = ` + placeholder(args)
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += ` AND sr.status = ` + placeholder(args)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM survey_responses sr`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit)
	limitArg := placeholder(args)
	args = append(args, offset)
	offsetArg := placeholder(args)

	rows, err := r.pool.Query(ctx,
		`SELECT sr.id, sr.template_id, t.title, sr.facility_id, f.name, sr.surveyor_id, u.name,
		        sr.survey_date, sr.progress, sr.status, sr.updated_at
		 FROM survey_responses sr
		 JOIN survey_templates t ON t.id = sr.template_id
		 JOIN facilities f ON f.id = sr.facility_id
		 JOIN users u ON u.id = sr.surveyor_id`+where+`
		 ORDER BY sr.updated_at DESC LIMIT `+limitArg+` OFFSET `+offsetArg, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.SurveyResponseSummary{}
	for rows.Next() {
		var s model.SurveyResponseSummary
		if err := rows.Scan(&s.ID, &s.TemplateID, &s.TemplateTitle, &s.FacilityID, &s.FacilityName,
			&s.SurveyorID, &s.SurveyorName, &s.SurveyDate, &s.Progress, &s.Status, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}
