package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/pemetaan-keswa/internal/model"
)

// TemplateRepository handles survey template data access. The section tree is
// stored as JSONB in the definition column.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

const templateColumns = `id, code, title, description, version, status, definition,
	created_by, published_at, created_at, updated_at`

func scanTemplate(row rowScanner) (*model.SurveyTemplate, error) {
	t := &model.SurveyTemplate{}
	err := row.Scan(&t.ID, &t.Code, &t.Title, &t.Description, &t.Version, &t.Status, &t.Sections,
		&t.CreatedBy, &t.PublishedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// GetByID retrieves a template with its full definition.
func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SurveyTemplate, error) {
	return scanTemplate(r.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM survey_templates WHERE id = $1`, id))
}

// Create inserts a template as the next version of its code.
func (r *TemplateRepository) Create(ctx context.Context, t *model.SurveyTemplate) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO survey_templates (code, title, description, version, status, definition, created_by)
		 VALUES ($1, $2, $3,
		         COALESCE((SELECT MAX(version) FROM survey_templates WHERE code = $1), 0) + 1,
		         $4, $5, $6)
		 RETURNING id, version, created_at, updated_at`,
		t.Code, t.Title, t.Description, t.Status, t.Sections, t.CreatedBy,
	).Scan(&t.ID, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	return translate(err)
}

// UpdateDraft replaces the title, description and definition of a DRAFT
// template. It returns ErrNotFound when no draft with that ID exists.
func (r *TemplateRepository) UpdateDraft(ctx context.Context, t *model.SurveyTemplate) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE survey_templates
		 SET title = $1, description = $2, definition = $3, updated_at = NOW()
		 WHERE id = $4 AND status = $5
		 RETURNING updated_at`,
		t.Title, t.Description, t.Sections, t.ID, model.TemplateStatusDraft,
	).Scan(&t.UpdatedAt)
	return translate(err)
}

// UpdateStatus moves a template to a new status. Publishing stamps
// published_at.
func (r *TemplateRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TemplateStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE survey_templates
		 SET status = $1,
		     published_at = CASE WHEN $1::text = 'PUBLISHED' THEN NOW() ELSE published_at END,
		     updated_at = NOW()
		 WHERE id = $2`,
		status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List retrieves a page of template summaries, optionally filtered by status.
func (r *TemplateRepository) List(ctx context.Context, status model.TemplateStatus, limit, offset int) ([]model.TemplateSummary, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if status != "" {
		args = append(args, status)
		where += ` AND t.status = ` + placeholder(args)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM survey_templates t`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit)
	limitArg := placeholder(args)
	args = append(args, offset)
	offsetArg := placeholder(args)

	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.code, t.title, t.version, t.status,
		        jsonb_array_length(t.definition),
		        (SELECT COUNT(*) FROM survey_responses sr WHERE sr.template_id = t.id),
		        t.updated_at
		 FROM survey_templates t`+where+`
		 ORDER BY t.code, t.version DESC LIMIT `+limitArg+` OFFSET `+offsetArg, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	templates := []model.TemplateSummary{}
	for rows.Next() {
		var s model.TemplateSummary
		if err := rows.Scan(&s.ID, &s.Code, &s.Title, &s.Version, &s.Status,
			&s.SectionCount, &s.ResponseCount, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		templates = append(templates, s)
	}
	return templates, total, rows.Err()
}

// ListPublished returns all PUBLISHED templates with their definitions.
// Used for cache prewarming on application startup.
func (r *TemplateRepository) ListPublished(ctx context.Context) ([]model.SurveyTemplate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM survey_templates
		 WHERE status = $1
		 ORDER BY code, version DESC`, model.TemplateStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []model.SurveyTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}
