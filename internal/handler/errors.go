package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
	"github.com/stemsi/pemetaan-keswa/internal/response"
	"github.com/stemsi/pemetaan-keswa/internal/service"
)

type errorMapping struct {
	target error
	status int
	code   response.ErrCode
}

// errorMappings is checked in order with errors.Is; the first hit wins.
var errorMappings = []errorMapping{
	{repository.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{repository.ErrConflict, http.StatusConflict, response.ErrConflict},
	{repository.ErrReferenced, http.StatusConflict, response.ErrDependencyExists},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrAccountInactive, http.StatusForbidden, response.ErrAccountInactive},
	{service.ErrUnknownRole, http.StatusBadRequest, response.ErrValidation},
	{service.ErrSystemRole, http.StatusForbidden, response.ErrActionForbidden},
	{service.ErrUnknownPermission, http.StatusBadRequest, response.ErrValidation},
	{service.ErrUnknownDistrict, http.StatusBadRequest, response.ErrValidation},

	{service.ErrTemplateNotDraft, http.StatusConflict, response.ErrTemplateNotDraft},
	{service.ErrTemplateNotPublished, http.StatusConflict, response.ErrTemplateNotPublished},

	{service.ErrNotSurveyOwner, http.StatusForbidden, response.ErrNotSurveyOwner},
	{service.ErrResponseSubmitted, http.StatusConflict, response.ErrSurveySubmitted},
	{service.ErrSurveyOpenElsewhere, http.StatusConflict, response.ErrSurveyOpenElsewhere},
	{service.ErrUnknownFacility, http.StatusBadRequest, response.ErrValidation},
	{service.ErrTemplateMismatch, http.StatusBadRequest, response.ErrValidation},
	{service.ErrInvalidPeriod, http.StatusBadRequest, response.ErrValidation},

	{questionnaire.ErrUnknownQuestion, http.StatusBadRequest, response.ErrUnknownQuestion},
	{questionnaire.ErrValidationFailed, http.StatusUnprocessableEntity, response.ErrSurveyIncomplete},
	{questionnaire.ErrSubmitted, http.StatusConflict, response.ErrSurveySubmitted},
	{questionnaire.ErrBusy, http.StatusConflict, response.ErrSurveyBusy},
	{questionnaire.ErrAtFirstSection, http.StatusConflict, response.ErrNoPreviousSection},
	{questionnaire.ErrNoNextSection, http.StatusConflict, response.ErrNoNextSection},

	{service.ErrUnsupportedFileType, http.StatusBadRequest, response.ErrUnsupportedFile},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},
}

// classify maps a service error to an HTTP status and error code.
func classify(err error) (int, response.ErrCode) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// fail writes the error response for err. Structured refusals carry their
// details; unexpected errors are logged.
func fail(c *gin.Context, log zerolog.Logger, err error) {
	var (
		lintErr     *service.LintError
		finalizeErr *questionnaire.FinalizeError
		unknownErr  *service.UnknownQuestionsError
	)
	switch {
	case errors.As(err, &lintErr):
		response.FailWithDetails(c, http.StatusUnprocessableEntity, response.ErrTemplateInvalid, gin.H{"issues": lintErr.Issues})
		return
	case errors.As(err, &finalizeErr):
		response.FailWithDetails(c, http.StatusUnprocessableEntity, response.ErrSurveyIncomplete, gin.H{"sections": localizeSections(finalizeErr.Sections)})
		return
	case errors.As(err, &unknownErr):
		response.FailWithDetails(c, http.StatusBadRequest, response.ErrUnknownQuestion, gin.H{"codes": unknownErr.Codes})
		return
	}

	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	response.Fail(c, status, code)
}

func localizeSections(sections []questionnaire.SectionErrors) []questionnaire.SectionErrors {
	out := make([]questionnaire.SectionErrors, len(sections))
	for i, s := range sections {
		out[i] = questionnaire.SectionErrors{
			Section: s.Section,
			Name:    s.Name,
			Errors:  response.LocalizeFields(s.Errors),
		}
	}
	return out
}

// uuidParam parses a UUID path parameter, writing the 400 response on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// intParam parses an integer path parameter, writing the 400 response on
// failure.
func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

func localizeOutline(o *questionnaire.Outline) {
	for i := range o.Sections {
		if o.Sections[i].Errors != nil {
			o.Sections[i].Errors = response.LocalizeFields(o.Sections[i].Errors)
		}
	}
}
