package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
	"github.com/stemsi/pemetaan-keswa/internal/response"
)

// Template errors.
var (
	ErrTemplateNotDraft     = errors.New("template status is not DRAFT")
	ErrTemplateNotPublished = errors.New("template status is not PUBLISHED")
	ErrTemplateInvalid      = errors.New("template has lint issues")
)

// LintError carries the issues that block publishing a template.
type LintError struct {
	Issues []questionnaire.LintIssue
}

func (e *LintError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.String()
	}
	return fmt.Sprintf("%s: %s", ErrTemplateInvalid, strings.Join(msgs, "; "))
}

// Is makes errors.Is(err, ErrTemplateInvalid) hold for lint refusals.
func (e *LintError) Is(target error) bool {
	return target == ErrTemplateInvalid
}

// TemplateService manages survey templates and keeps published definitions in
// Redis so that survey sessions never hit Postgres for the definition.
type TemplateService struct {
	repo    *repository.TemplateRepository
	regions *RegionService
	rdb     *redis.Client
	cfg     *config.Config
	log     zerolog.Logger
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(
	repo *repository.TemplateRepository,
	regions *RegionService,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *TemplateService {
	return &TemplateService{
		repo:    repo,
		regions: regions,
		rdb:     rdb,
		cfg:     cfg,
		log:     log.With().Str("component", "template_service").Logger(),
	}
}

// normalizeSections assigns section order from list position and fills
// missing section IDs.
func normalizeSections(sections []questionnaire.Section) []questionnaire.Section {
	out := make([]questionnaire.Section, len(sections))
	for i, s := range sections {
		s.Order = i + 1
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		out[i] = s
	}
	return out
}

// Create stores a new DRAFT template (the next version of its code) and
// returns it together with its lint issues.
func (s *TemplateService) Create(ctx context.Context, authorID int, req *model.TemplateRequest) (*model.SurveyTemplate, []questionnaire.LintIssue, error) {
	t := &model.SurveyTemplate{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TemplateStatusDraft,
		Sections:    normalizeSections(req.Sections),
		CreatedBy:   authorID,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, nil, err
	}

	issues := t.Definition().Lint()
	s.log.Info().
		Str("template_id", t.ID.String()).
		Str("code", t.Code).
		Int("version", t.Version).
		Int("lint_issues", len(issues)).
		Msg("Template created")
	return t, issues, nil
}

// Update replaces the content of a DRAFT template.
func (s *TemplateService) Update(ctx context.Context, id uuid.UUID, req *model.TemplateRequest) (*model.SurveyTemplate, []questionnaire.LintIssue, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if t.Status != model.TemplateStatusDraft {
		return nil, nil, ErrTemplateNotDraft
	}
	if req.Code != t.Code {
		return nil, nil, fmt.Errorf("%w: code cannot change", ErrTemplateNotDraft)
	}

	t.Title = req.Title
	t.Description = req.Description
	t.Sections = normalizeSections(req.Sections)
	if err := s.repo.UpdateDraft(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrTemplateNotDraft
		}
		return nil, nil, err
	}
	return t, t.Definition().Lint(), nil
}

// NewVersion copies a template into a new DRAFT version of the same code.
func (s *TemplateService) NewVersion(ctx context.Context, authorID int, id uuid.UUID) (*model.SurveyTemplate, error) {
	src, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sections := make([]questionnaire.Section, len(src.Sections))
	copy(sections, src.Sections)
	for i := range sections {
		sections[i].ID = uuid.Nil
	}

	t, _, err := s.Create(ctx, authorID, &model.TemplateRequest{
		Code:        src.Code,
		Title:       src.Title,
		Description: src.Description,
		Sections:    sections,
	})
	return t, err
}

// Lint reports the authoring issues of a stored template.
func (s *TemplateService) Lint(ctx context.Context, id uuid.UUID) ([]questionnaire.LintIssue, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.Definition().Lint(), nil
}

// Publish validates a DRAFT template, caches its definition and marks it
// PUBLISHED. Templates with lint issues are refused with a *LintError.
func (s *TemplateService) Publish(ctx context.Context, id uuid.UUID) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get template: %w", err)
	}
	if t.Status != model.TemplateStatusDraft {
		return ErrTemplateNotDraft
	}
	if issues := t.Definition().Lint(); len(issues) > 0 {
		return &LintError{Issues: issues}
	}

	t.Status = model.TemplateStatusPublished
	if err := s.WarmCache(ctx, t); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, model.TemplateStatusPublished); err != nil {
		s.dropCache(ctx, id)
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("template_id", id.String()).Str("code", t.Code).Msg("Template published")
	return nil
}

// Archive withdraws a PUBLISHED template. Existing responses keep pointing at
// it; no new survey can start.
func (s *TemplateService) Archive(ctx context.Context, id uuid.UUID) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != model.TemplateStatusPublished {
		return ErrTemplateNotPublished
	}
	if err := s.repo.UpdateStatus(ctx, id, model.TemplateStatusArchived); err != nil {
		return err
	}
	s.dropCache(ctx, id)

	s.log.Info().Str("template_id", id.String()).Msg("Template archived")
	return nil
}

// WarmCache writes a template definition into Redis.
func (s *TemplateService) WarmCache(ctx context.Context, t *model.SurveyTemplate) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TemplateDefinitionKey(t.ID.String()), payload, s.cfg.TemplateCacheTTL)
	pipe.SAdd(ctx, config.CacheKey.PublishedTemplatesKey(), t.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("template_id", t.ID.String()).
		Int("sections", len(t.Sections)).
		Msg("Cache warmed")
	return nil
}

func (s *TemplateService) dropCache(ctx context.Context, id uuid.UUID) {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.TemplateDefinitionKey(id.String()))
	pipe.SRem(ctx, config.CacheKey.PublishedTemplatesKey(), id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("template_id", id.String()).Msg("Failed to drop template cache")
	}
}

// PrewarmAllCaches loads all published templates into Redis on startup.
func (s *TemplateService) PrewarmAllCaches(ctx context.Context) error {
	templates, err := s.repo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published templates: %w", err)
	}

	if len(templates) == 0 {
		s.log.Info().Msg("No published templates to prewarm")
		return nil
	}

	warmed := 0
	for i := range templates {
		if err := s.WarmCache(ctx, &templates[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("template_id", templates[i].ID.String()).
				Msg("Failed to warm template, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(templates)).
		Msg("Prewarming complete")
	return nil
}

// GetByID retrieves any template from Postgres.
func (s *TemplateService) GetByID(ctx context.Context, id uuid.UUID) (*model.SurveyTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPublished returns a PUBLISHED template, reading through the Redis cache.
func (s *TemplateService) GetPublished(ctx context.Context, id uuid.UUID) (*model.SurveyTemplate, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.TemplateDefinitionKey(id.String())).Bytes()
	if err == nil {
		var t model.SurveyTemplate
		if err := json.Unmarshal(data, &t); err == nil {
			return &t, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Template cache unavailable, reading from database")
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TemplateStatusPublished {
		return nil, ErrTemplateNotPublished
	}
	if err := s.WarmCache(ctx, t); err != nil {
		s.log.Warn().Err(err).Str("template_id", id.String()).Msg("Failed to re-cache template")
	}
	return t, nil
}

// List retrieves a page of template summaries.
func (s *TemplateService) List(ctx context.Context, status model.TemplateStatus, page, perPage int) ([]model.TemplateSummary, *response.Pagination, error) {
	templates, total, err := s.repo.List(ctx, status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return templates, response.NewPagination(page, perPage, total), nil
}

// Engine builds a questionnaire engine for a template with the district list
// filled in. Non-published templates are accepted so that authors can preview
// drafts.
func (s *TemplateService) Engine(ctx context.Context, t *model.SurveyTemplate) (*questionnaire.Engine, error) {
	choices, err := s.regions.Choices(ctx)
	if err != nil {
		return nil, fmt.Errorf("load districts: %w", err)
	}
	return questionnaire.NewEngine(t.Definition().WithDistricts(choices)), nil
}

// PublishedEngine loads a published template and builds its engine.
func (s *TemplateService) PublishedEngine(ctx context.Context, id uuid.UUID) (*questionnaire.Engine, *model.SurveyTemplate, error) {
	t, err := s.GetPublished(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	engine, err := s.Engine(ctx, t)
	if err != nil {
		return nil, nil, err
	}
	return engine, t, nil
}

// Evaluate derives active sections, progress and optionally validation errors
// for an answer set against any stored template.
func (s *TemplateService) Evaluate(ctx context.Context, id uuid.UUID, answers questionnaire.AnswerSet, validate bool) (*questionnaire.Outline, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	engine, err := s.Engine(ctx, t)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = questionnaire.AnswerSet{}
	}
	out := engine.Outline(answers, validate)
	return &out, nil
}
