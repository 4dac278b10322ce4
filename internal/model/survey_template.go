package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
)

// TemplateStatus enumerates the lifecycle states of a survey template.
type TemplateStatus string

const (
	TemplateStatusDraft     TemplateStatus = "DRAFT"
	TemplateStatusPublished TemplateStatus = "PUBLISHED"
	TemplateStatusArchived  TemplateStatus = "ARCHIVED"
)

// SurveyTemplate is a stored questionnaire definition. Sections holds the
// full section and question tree as JSONB.
type SurveyTemplate struct {
	ID          uuid.UUID               `json:"id"`
	Code        string                  `json:"code"`
	Title       string                  `json:"title"`
	Description string                  `json:"description,omitempty"`
	Version     int                     `json:"version"`
	Status      TemplateStatus          `json:"status"`
	Sections    []questionnaire.Section `json:"sections,omitempty"`
	CreatedBy   int                     `json:"created_by"`
	PublishedAt *time.Time              `json:"published_at,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// Definition returns the engine view of the template.
func (t *SurveyTemplate) Definition() *questionnaire.Template {
	return &questionnaire.Template{
		ID:       t.ID,
		Code:     t.Code,
		Version:  t.Version,
		Sections: t.Sections,
	}
}

// TemplateSummary is a list row without the section tree.
type TemplateSummary struct {
	ID            uuid.UUID      `json:"id"`
	Code          string         `json:"code"`
	Title         string         `json:"title"`
	Version       int            `json:"version"`
	Status        TemplateStatus `json:"status"`
	SectionCount  int            `json:"section_count"`
	ResponseCount int            `json:"response_count"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TemplateRequest is the payload for creating or replacing a draft template.
type TemplateRequest struct {
	Code        string                  `json:"code" binding:"required,code,max=64"`
	Title       string                  `json:"title" binding:"required,min=3,max=255"`
	Description string                  `json:"description" binding:"omitempty,max=2000"`
	Sections    []questionnaire.Section `json:"sections" binding:"required,min=1"`
}

// EvaluateRequest asks the engine to derive state from an answer set.
type EvaluateRequest struct {
	Answers  questionnaire.AnswerSet `json:"answers"`
	Validate bool                    `json:"validate"`
}
