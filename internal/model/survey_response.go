package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
)

// SurveyResponse is one facility survey filled in by a surveyor. It is created
// on the first draft save and frozen once SUBMITTED.
type SurveyResponse struct {
	ID          uuid.UUID               `json:"id"`
	TemplateID  uuid.UUID               `json:"template_id"`
	FacilityID  uuid.UUID               `json:"facility_id"`
	SurveyorID  int                     `json:"surveyor_id"`
	SurveyDate  time.Time               `json:"survey_date"`
	PeriodStart *time.Time              `json:"period_start,omitempty"`
	PeriodEnd   *time.Time              `json:"period_end,omitempty"`
	Answers     questionnaire.AnswerSet `json:"answers"`
	Progress    int                     `json:"progress"`
	Status      questionnaire.Status    `json:"status"`
	SubmittedAt *time.Time              `json:"submitted_at,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// SurveyResponseSummary is a list row without answers.
type SurveyResponseSummary struct {
	ID            uuid.UUID            `json:"id"`
	TemplateID    uuid.UUID            `json:"template_id"`
	TemplateTitle string               `json:"template_title"`
	FacilityID    uuid.UUID            `json:"facility_id"`
	FacilityName  string               `json:"facility_name"`
	SurveyorID    int                  `json:"surveyor_id"`
	SurveyorName  string               `json:"surveyor_name"`
	SurveyDate    time.Time            `json:"survey_date"`
	Progress      int                  `json:"progress"`
	Status        questionnaire.Status `json:"status"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// SurveyFilter narrows a response listing.
type SurveyFilter struct {
	TemplateID *uuid.UUID
	FacilityID *uuid.UUID
	SurveyorID *int
	Status     questionnaire.Status
}

// SaveSurveyRequest is the payload of a draft save. Dates use YYYY-MM-DD.
type SaveSurveyRequest struct {
	TemplateID  uuid.UUID               `json:"template_id" binding:"required"`
	FacilityID  uuid.UUID               `json:"facility_id" binding:"required"`
	SurveyDate  string                  `json:"survey_date" binding:"required,datetime=2006-01-02"`
	PeriodStart string                  `json:"period_start" binding:"omitempty,datetime=2006-01-02"`
	PeriodEnd   string                  `json:"period_end" binding:"omitempty,datetime=2006-01-02"`
	Answers     questionnaire.AnswerSet `json:"answers"`
}

// SurveyMeta is the parsed, non-answer part of a save request.
type SurveyMeta struct {
	TemplateID  uuid.UUID
	FacilityID  uuid.UUID
	SurveyDate  time.Time
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// SurveyProgressEvent is published on the monitor channel whenever a
// response's progress or status changes.
type SurveyProgressEvent struct {
	ResponseID uuid.UUID            `json:"response_id"`
	TemplateID uuid.UUID            `json:"template_id"`
	FacilityID uuid.UUID            `json:"facility_id"`
	SurveyorID int                  `json:"surveyor_id"`
	Progress   int                  `json:"progress"`
	Status     questionnaire.Status `json:"status"`
	Section    string               `json:"section,omitempty"`
	At         time.Time            `json:"at"`
}

// PersistAnswerJob is queued for every live answer change and merged into the
// stored answer document by the answer worker. A null Value removes the key.
type PersistAnswerJob struct {
	ResponseID uuid.UUID       `json:"response_id"`
	Code       string          `json:"code"`
	Value      json.RawMessage `json:"value"`
}

// PersistProgressJob is queued whenever a live change moves the progress of a
// response.
type PersistProgressJob struct {
	ResponseID uuid.UUID `json:"response_id"`
	Progress   int       `json:"progress"`
	At         time.Time `json:"at"`
}
