package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
	"github.com/stemsi/pemetaan-keswa/internal/response"
)

// Survey errors.
var (
	ErrResponseSubmitted   = errors.New("survey response has been submitted")
	ErrNotSurveyOwner      = errors.New("survey response belongs to another surveyor")
	ErrSurveyOpenElsewhere = errors.New("survey response is open on another device")
	ErrUnknownFacility     = errors.New("unknown facility")
	ErrTemplateMismatch    = errors.New("template cannot change after the first save")
	ErrInvalidPeriod       = errors.New("period_end is before period_start")
)

const (
	dateLayout       = "2006-01-02"
	surveyLockTTL    = 2 * time.Minute
	answerBufferTTL  = 7 * 24 * time.Hour
	publishTimeout   = 2 * time.Second
	lockTokenUnknown = ""
)

var (
	refreshLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// UnknownQuestionsError lists answer codes that the template does not define.
type UnknownQuestionsError struct {
	Codes []string
}

func (e *UnknownQuestionsError) Error() string {
	return fmt.Sprintf("%s: %s", questionnaire.ErrUnknownQuestion, strings.Join(e.Codes, ", "))
}

// Is makes errors.Is(err, questionnaire.ErrUnknownQuestion) hold.
func (e *UnknownQuestionsError) Is(target error) bool {
	return target == questionnaire.ErrUnknownQuestion
}

// SurveyService runs facility surveys: it owns the persistence side of the
// questionnaire wizard, buffers live answers in Redis and reports progress to
// the monitor channel.
type SurveyService struct {
	responses  *repository.SurveyResponseRepository
	facilities *repository.FacilityRepository
	monitor    *repository.MonitorRepository
	templates  *TemplateService
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewSurveyService creates a new SurveyService.
func NewSurveyService(
	responses *repository.SurveyResponseRepository,
	facilities *repository.FacilityRepository,
	monitor *repository.MonitorRepository,
	templates *TemplateService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SurveyService {
	return &SurveyService{
		responses:  responses,
		facilities: facilities,
		monitor:    monitor,
		templates:  templates,
		rdb:        rdb,
		log:        log.With().Str("component", "survey_service").Logger(),
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Queries
// ────────────────────────────────────────────────────────────────────────────

// Get returns a response with its live answers. Surveyors only see their own
// responses unless readAll is set.
func (s *SurveyService) Get(ctx context.Context, id uuid.UUID, viewerID int, readAll bool) (*model.SurveyResponse, error) {
	resp, err := s.responses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !readAll && resp.SurveyorID != viewerID {
		return nil, ErrNotSurveyOwner
	}
	if resp.Status == questionnaire.StatusDraft {
		resp.Answers = s.liveAnswers(ctx, resp)
	}
	return resp, nil
}

// List retrieves a page of response summaries.
func (s *SurveyService) List(ctx context.Context, filter model.SurveyFilter, page, perPage int) ([]model.SurveyResponseSummary, *response.Pagination, error) {
	rows, total, err := s.responses.List(ctx, filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return rows, response.NewPagination(page, perPage, total), nil
}

// Outline evaluates a response's live answers against its template.
func (s *SurveyService) Outline(ctx context.Context, id uuid.UUID, viewerID int, readAll bool) (*questionnaire.Outline, error) {
	resp, err := s.Get(ctx, id, viewerID, readAll)
	if err != nil {
		return nil, err
	}
	engine, err := s.engineFor(ctx, resp.TemplateID, false)
	if err != nil {
		return nil, err
	}
	out := engine.Outline(resp.Answers, resp.Status == questionnaire.StatusDraft)
	return &out, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Draft and finalize over REST
// ────────────────────────────────────────────────────────────────────────────

// ParseSurveyMeta validates the non-answer fields of a save request.
func ParseSurveyMeta(req *model.SaveSurveyRequest) (model.SurveyMeta, error) {
	meta := model.SurveyMeta{TemplateID: req.TemplateID, FacilityID: req.FacilityID}

	date, err := time.Parse(dateLayout, req.SurveyDate)
	if err != nil {
		return meta, fmt.Errorf("survey_date: %w", err)
	}
	meta.SurveyDate = date

	if req.PeriodStart != "" {
		t, err := time.Parse(dateLayout, req.PeriodStart)
		if err != nil {
			return meta, fmt.Errorf("period_start: %w", err)
		}
		meta.PeriodStart = &t
	}
	if req.PeriodEnd != "" {
		t, err := time.Parse(dateLayout, req.PeriodEnd)
		if err != nil {
			return meta, fmt.Errorf("period_end: %w", err)
		}
		meta.PeriodEnd = &t
	}
	if meta.PeriodStart != nil && meta.PeriodEnd != nil && meta.PeriodEnd.Before(*meta.PeriodStart) {
		return meta, ErrInvalidPeriod
	}
	return meta, nil
}

// UnknownCodes returns the answer codes the engine's template does not define,
// sorted.
func UnknownCodes(engine *questionnaire.Engine, answers questionnaire.AnswerSet) []string {
	var unknown []string
	for code := range answers {
		if _, ok := engine.Question(code); !ok {
			unknown = append(unknown, code)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// SaveDraft creates a response on the first save (id == nil) or overwrites the
// answers of an existing DRAFT. The answer set is stored as given.
func (s *SurveyService) SaveDraft(ctx context.Context, surveyorID int, id *uuid.UUID, req *model.SaveSurveyRequest) (*model.SurveyResponse, error) {
	meta, err := ParseSurveyMeta(req)
	if err != nil {
		return nil, err
	}

	p, err := s.persisterFor(ctx, surveyorID, id, meta)
	if err != nil {
		return nil, err
	}

	answers := req.Answers
	if answers == nil {
		answers = questionnaire.AnswerSet{}
	}
	if unknown := UnknownCodes(p.engine, answers); len(unknown) > 0 {
		return nil, &UnknownQuestionsError{Codes: unknown}
	}

	if _, err := p.SaveDraft(ctx, answers.Clone()); err != nil {
		return nil, err
	}
	return p.resp, nil
}

// Finalize submits a DRAFT response. When answers is nil the live answers are
// submitted. A validation refusal is a *questionnaire.FinalizeError.
func (s *SurveyService) Finalize(ctx context.Context, surveyorID int, id uuid.UUID, answers questionnaire.AnswerSet) (*questionnaire.Receipt, error) {
	p, err := s.persisterFor(ctx, surveyorID, &id, model.SurveyMeta{})
	if err != nil {
		return nil, err
	}

	if answers == nil {
		answers = s.liveAnswers(ctx, p.resp)
	} else if unknown := UnknownCodes(p.engine, answers); len(unknown) > 0 {
		return nil, &UnknownQuestionsError{Codes: unknown}
	}

	return questionnaire.NewWizard(p.engine, p, answers).Finalize(ctx)
}

// persisterFor resolves the response (if any), the template engine and the
// metadata of a save. For an existing response a zero meta keeps the stored
// metadata.
func (s *SurveyService) persisterFor(ctx context.Context, surveyorID int, id *uuid.UUID, meta model.SurveyMeta) (*responsePersister, error) {
	p := &responsePersister{svc: s, surveyorID: surveyorID, meta: meta}

	if id == nil {
		engine, err := s.engineFor(ctx, meta.TemplateID, true)
		if err != nil {
			return nil, err
		}
		if err := s.checkFacility(ctx, meta.FacilityID); err != nil {
			return nil, err
		}
		p.engine = engine
		return p, nil
	}

	resp, err := s.responses.GetByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	if resp.SurveyorID != surveyorID {
		return nil, ErrNotSurveyOwner
	}
	if resp.Status != questionnaire.StatusDraft {
		return nil, ErrResponseSubmitted
	}
	if err := s.ensureNotOpen(ctx, resp.ID); err != nil {
		return nil, err
	}

	if meta.TemplateID == uuid.Nil {
		p.meta = model.SurveyMeta{
			TemplateID:  resp.TemplateID,
			FacilityID:  resp.FacilityID,
			SurveyDate:  resp.SurveyDate,
			PeriodStart: resp.PeriodStart,
			PeriodEnd:   resp.PeriodEnd,
		}
	} else {
		if meta.TemplateID != resp.TemplateID {
			return nil, ErrTemplateMismatch
		}
		if meta.FacilityID != resp.FacilityID {
			if err := s.checkFacility(ctx, meta.FacilityID); err != nil {
				return nil, err
			}
		}
	}

	engine, err := s.engineFor(ctx, resp.TemplateID, false)
	if err != nil {
		return nil, err
	}
	p.engine = engine
	p.resp = resp
	return p, nil
}

// ensureNotOpen refuses writes to a response that a live session holds. The
// session keeps its own answers and would overwrite them on its next save.
func (s *SurveyService) ensureNotOpen(ctx context.Context, id uuid.UUID) error {
	n, err := s.rdb.Exists(ctx, config.CacheKey.SurveyLockKey(id.String())).Result()
	if err != nil {
		return fmt.Errorf("check survey lock: %w", err)
	}
	if n > 0 {
		return ErrSurveyOpenElsewhere
	}
	return nil
}

func (s *SurveyService) checkFacility(ctx context.Context, id uuid.UUID) error {
	if _, err := s.facilities.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownFacility
		}
		return err
	}
	return nil
}

// engineFor builds the engine of a template. New surveys need a published
// template; existing drafts keep working after their template is archived.
func (s *SurveyService) engineFor(ctx context.Context, templateID uuid.UUID, requirePublished bool) (*questionnaire.Engine, error) {
	if requirePublished {
		engine, _, err := s.templates.PublishedEngine(ctx, templateID)
		return engine, err
	}
	t, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return s.templates.Engine(ctx, t)
}

// ────────────────────────────────────────────────────────────────────────────
// Persister
// ────────────────────────────────────────────────────────────────────────────

// responsePersister stores wizard snapshots of one survey response. The
// response row is created by the first SaveDraft or Finalize.
type responsePersister struct {
	svc        *SurveyService
	surveyorID int
	meta       model.SurveyMeta
	engine     *questionnaire.Engine
	resp       *model.SurveyResponse
}

func (p *responsePersister) SaveDraft(ctx context.Context, answers questionnaire.AnswerSet) (*questionnaire.Receipt, error) {
	if err := p.store(ctx, answers); err != nil {
		return nil, err
	}
	p.svc.afterWrite(ctx, p.resp)

	p.svc.log.Info().
		Str("response_id", p.resp.ID.String()).
		Int("progress", p.resp.Progress).
		Msg("Draft saved")
	return &questionnaire.Receipt{ID: p.resp.ID, Status: questionnaire.StatusDraft, SavedAt: p.resp.UpdatedAt}, nil
}

func (p *responsePersister) Finalize(ctx context.Context, answers questionnaire.AnswerSet) (*questionnaire.Receipt, error) {
	if p.resp == nil {
		if err := p.store(ctx, answers); err != nil {
			return nil, err
		}
	}

	next := *p.resp
	next.Answers = answers
	next.Progress = p.engine.Progress(answers)
	if err := p.svc.responses.Submit(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, p.svc.frozenOrMissing(ctx, p.resp.ID)
		}
		return nil, err
	}
	p.resp = &next
	p.svc.afterWrite(ctx, p.resp)

	p.svc.log.Info().
		Str("response_id", p.resp.ID.String()).
		Str("facility_id", p.resp.FacilityID.String()).
		Int("surveyor_id", p.resp.SurveyorID).
		Msg("Survey submitted")
	return &questionnaire.Receipt{ID: p.resp.ID, Status: questionnaire.StatusSubmitted, SavedAt: *p.resp.SubmittedAt}, nil
}

func (p *responsePersister) store(ctx context.Context, answers questionnaire.AnswerSet) error {
	progress := p.engine.Progress(answers)

	if p.resp == nil {
		resp := &model.SurveyResponse{
			TemplateID:  p.meta.TemplateID,
			FacilityID:  p.meta.FacilityID,
			SurveyorID:  p.surveyorID,
			SurveyDate:  p.meta.SurveyDate,
			PeriodStart: p.meta.PeriodStart,
			PeriodEnd:   p.meta.PeriodEnd,
			Answers:     answers,
			Progress:    progress,
		}
		if err := p.svc.responses.Create(ctx, resp); err != nil {
			return err
		}
		p.resp = resp
		return nil
	}

	next := *p.resp
	next.FacilityID = p.meta.FacilityID
	next.SurveyDate = p.meta.SurveyDate
	next.PeriodStart = p.meta.PeriodStart
	next.PeriodEnd = p.meta.PeriodEnd
	next.Answers = answers
	next.Progress = progress
	if err := p.svc.responses.UpdateDraft(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return p.svc.frozenOrMissing(ctx, p.resp.ID)
		}
		return err
	}
	p.resp = &next
	return nil
}

// frozenOrMissing explains why a DRAFT-only write matched no row.
func (s *SurveyService) frozenOrMissing(ctx context.Context, id uuid.UUID) error {
	resp, err := s.responses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if resp.Status == questionnaire.StatusSubmitted {
		return ErrResponseSubmitted
	}
	return repository.ErrNotFound
}

// afterWrite drops the live answer buffer, which the stored snapshot now
// covers, and announces the new state.
func (s *SurveyService) afterWrite(ctx context.Context, resp *model.SurveyResponse) {
	if err := s.rdb.Del(ctx, config.CacheKey.SurveyAnswersKey(resp.ID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("response_id", resp.ID.String()).Msg("Failed to clear answer buffer")
	}
	s.publish(ctx, resp, resp.Progress, resp.Status, "")
}

func (s *SurveyService) publish(ctx context.Context, resp *model.SurveyResponse, progress int, status questionnaire.Status, section string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	evt := model.SurveyProgressEvent{
		ResponseID: resp.ID,
		TemplateID: resp.TemplateID,
		FacilityID: resp.FacilityID,
		SurveyorID: resp.SurveyorID,
		Progress:   progress,
		Status:     status,
		Section:    section,
		At:         time.Now().UTC(),
	}
	if err := s.monitor.PublishProgress(ctx, evt); err != nil {
		s.log.Warn().Err(err).Str("response_id", resp.ID.String()).Msg("Failed to publish progress")
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Live answer buffer
// ────────────────────────────────────────────────────────────────────────────

// liveAnswers overlays the Redis answer buffer on the stored answers.
func (s *SurveyService) liveAnswers(ctx context.Context, resp *model.SurveyResponse) questionnaire.AnswerSet {
	answers := resp.Answers.Clone()
	if answers == nil {
		answers = questionnaire.AnswerSet{}
	}

	buffered, err := s.rdb.HGetAll(ctx, config.CacheKey.SurveyAnswersKey(resp.ID.String())).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("response_id", resp.ID.String()).Msg("Answer buffer unavailable")
		return answers
	}
	ApplyBuffered(answers, buffered)
	return answers
}

// ApplyBuffered merges JSON-encoded buffered answers into answers. A null
// value removes the answer; undecodable entries are skipped.
func ApplyBuffered(answers questionnaire.AnswerSet, buffered map[string]string) {
	for code, raw := range buffered {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		if v == nil {
			delete(answers, code)
			continue
		}
		answers[code] = v
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Live sessions
// ────────────────────────────────────────────────────────────────────────────

// SurveySession is one device editing one DRAFT response through the wizard.
// It holds the response's device lock until Close.
type SurveySession struct {
	Wizard *questionnaire.Wizard

	svc       *SurveyService
	store     *responsePersister
	lockToken string
}

// OpenSession locks a DRAFT response to the caller's device and starts a
// wizard over its live answers.
func (s *SurveyService) OpenSession(ctx context.Context, surveyorID int, id uuid.UUID) (*SurveySession, error) {
	p, err := s.persisterFor(ctx, surveyorID, &id, model.SurveyMeta{})
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, config.CacheKey.SurveyLockKey(id.String()), token, surveyLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock survey: %w", err)
	}
	if !ok {
		return nil, ErrSurveyOpenElsewhere
	}

	sess := &SurveySession{
		Wizard:    questionnaire.NewWizard(p.engine, p, s.liveAnswers(ctx, p.resp)),
		svc:       s,
		store:     p,
		lockToken: token,
	}

	s.log.Info().Str("response_id", id.String()).Int("surveyor_id", surveyorID).Msg("Survey session opened")
	return sess, nil
}

// ID returns the response ID of the session.
func (ss *SurveySession) ID() uuid.UUID {
	return ss.store.resp.ID
}

// Response returns the last stored state of the response.
func (ss *SurveySession) Response() *model.SurveyResponse {
	return ss.store.resp
}

// SetAnswer records an answer in the wizard and the live buffer. When the
// buffer write fails the wizard keeps its previous answer.
func (ss *SurveySession) SetAnswer(ctx context.Context, code string, value any) error {
	prev := ss.Wizard.Answer(code)
	if err := ss.Wizard.SetAnswer(code, value); err != nil {
		return err
	}
	if err := ss.buffer(ctx, code, value); err != nil {
		_ = ss.Wizard.SetAnswer(code, prev)
		return err
	}
	return nil
}

// ClearAnswer removes an answer from the wizard and the live buffer.
func (ss *SurveySession) ClearAnswer(ctx context.Context, code string) error {
	return ss.SetAnswer(ctx, code, nil)
}

func (ss *SurveySession) buffer(ctx context.Context, code string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}

	id := ss.store.resp.ID
	progress := ss.Wizard.Progress()
	answerJob, _ := json.Marshal(model.PersistAnswerJob{ResponseID: id, Code: code, Value: raw})
	progressJob, _ := json.Marshal(model.PersistProgressJob{ResponseID: id, Progress: progress, At: time.Now().UTC()})

	key := config.CacheKey.SurveyAnswersKey(id.String())
	pipe := ss.svc.rdb.TxPipeline()
	pipe.HSet(ctx, key, code, string(raw))
	pipe.Expire(ctx, key, answerBufferTTL)
	pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, answerJob)
	pipe.RPush(ctx, config.WorkerKey.PersistProgressQueue, progressJob)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("buffer answer: %w", err)
	}

	section := ""
	if cur, ok := ss.Wizard.Current(); ok {
		section = cur.Code
	}
	ss.svc.publish(ctx, ss.store.resp, progress, questionnaire.StatusDraft, section)
	return nil
}

// Touch extends the device lock. It fails with ErrSurveyOpenElsewhere when the
// lock was lost.
func (ss *SurveySession) Touch(ctx context.Context) error {
	n, err := refreshLockScript.Run(ctx, ss.svc.rdb,
		[]string{config.CacheKey.SurveyLockKey(ss.store.resp.ID.String())},
		ss.lockToken, surveyLockTTL.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("refresh survey lock: %w", err)
	}
	if n == 0 {
		return ErrSurveyOpenElsewhere
	}
	return nil
}

// Close releases the device lock.
func (ss *SurveySession) Close(ctx context.Context) {
	if ss.lockToken == lockTokenUnknown {
		return
	}
	err := releaseLockScript.Run(ctx, ss.svc.rdb,
		[]string{config.CacheKey.SurveyLockKey(ss.store.resp.ID.String())}, ss.lockToken).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		ss.svc.log.Warn().Err(err).Str("response_id", ss.store.resp.ID.String()).Msg("Failed to release survey lock")
	}
	ss.lockToken = lockTokenUnknown
}
