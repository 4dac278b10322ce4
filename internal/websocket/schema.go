package websocket

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSetAnswer   Action = "set_answer"
	ActionClearAnswer Action = "clear_answer"
	ActionAdvance     Action = "advance"
	ActionRetreat     Action = "retreat"
	ActionSaveDraft   Action = "save_draft"
	ActionFinalize    Action = "finalize"
	ActionState       Action = "state"
	ActionPing        Action = "ping"
)

// RequestPayload is every client message. Code and Value are only read by
// set_answer and clear_answer.
type RequestPayload struct {
	Action Action          `json:"action"`
	Code   string          `json:"code,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// DecodeValue returns the JSON value of a set_answer request as plain Go
// values (maps, slices, float64, string, bool).
func (p *RequestPayload) DecodeValue() (any, error) {
	if len(p.Value) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(p.Value, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState            Event = "state"
	EventSaved            Event = "saved"
	EventSubmitted        Event = "submitted"
	EventValidationFailed Event = "validation_failed"
	EventError            Event = "error"
	EventPong             Event = "pong"
)

// ResponsePayload wraps every server message.
type ResponsePayload struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// SectionRef names one active section.
type SectionRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// StatePayload is the wizard state after every mutation or navigation.
// Index equal to len(Sections) is the review position.
type StatePayload struct {
	ResponseID uuid.UUID            `json:"response_id"`
	Status     questionnaire.Status `json:"status"`
	Index      int                  `json:"index"`
	Section    string               `json:"section,omitempty"`
	Sections   []SectionRef         `json:"sections"`
	Progress   int                  `json:"progress"`
	Errors     map[string]string    `json:"errors,omitempty"`
}

// SavedPayload acknowledges a stored snapshot.
type SavedPayload struct {
	Receipt *questionnaire.Receipt `json:"receipt"`
}

// ValidationPayload lists what blocks advancing or submitting.
type ValidationPayload struct {
	Section  string                        `json:"section,omitempty"`
	Errors   map[string]string             `json:"errors,omitempty"`
	Sections []questionnaire.SectionErrors `json:"sections,omitempty"`
}

// ErrorPayload carries a machine-readable code and a display message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BuildState snapshots a wizard. errs is attached when a navigation was
// refused.
func BuildState(responseID uuid.UUID, w *questionnaire.Wizard, errs questionnaire.ErrorSet) StatePayload {
	active := w.ActiveSections()
	refs := make([]SectionRef, len(active))
	for i, s := range active {
		refs[i] = SectionRef{Code: s.Code, Name: s.Name}
	}

	state := StatePayload{
		ResponseID: responseID,
		Status:     questionnaire.StatusDraft,
		Index:      w.Index(),
		Sections:   refs,
		Progress:   w.Progress(),
	}
	if w.Submitted() {
		state.Status = questionnaire.StatusSubmitted
	}
	if cur, ok := w.Current(); ok {
		state.Section = cur.Code
	}
	if len(errs) > 0 {
		state.Errors = errs
	}
	return state
}
