package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Wizard errors.
var (
	ErrValidationFailed = errors.New("section has validation errors")
	ErrAtFirstSection   = errors.New("already at the first section")
	ErrNoNextSection    = errors.New("no section after the current one")
	ErrBusy             = errors.New("a save is already in progress")
	ErrSubmitted        = errors.New("survey has been submitted")
	ErrUnknownQuestion  = errors.New("unknown question code")
)

// Status tags what the persistence collaborator is asked to store.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
)

// Receipt is what the persistence collaborator returns for a stored snapshot.
type Receipt struct {
	ID      uuid.UUID `json:"id"`
	Status  Status    `json:"status"`
	SavedAt time.Time `json:"saved_at"`
}

// Persister stores answer snapshots. Implementations may block on I/O and may
// fail; the wizard returns their errors unchanged and keeps its answers.
type Persister interface {
	SaveDraft(ctx context.Context, answers AnswerSet) (*Receipt, error)
	Finalize(ctx context.Context, answers AnswerSet) (*Receipt, error)
}

// FinalizeError lists the active sections that failed validation on Finalize.
type FinalizeError struct {
	Sections []SectionErrors
}

func (e *FinalizeError) Error() string {
	codes := make([]string, len(e.Sections))
	for i, s := range e.Sections {
		codes[i] = s.Section
	}
	return fmt.Sprintf("validation failed in sections: %s", strings.Join(codes, ", "))
}

// Is makes errors.Is(err, ErrValidationFailed) hold for finalize refusals.
func (e *FinalizeError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Wizard walks a respondent through the active sections of one survey. It owns
// the canonical AnswerSet of the session and is meant for a single goroutine;
// the only concurrency it guards against is overlapping SaveDraft/Finalize
// calls.
//
// The position is anchored on a section code rather than an index, since the
// active list shifts as answers change. Index len(ActiveSections) is the
// review position after the last section.
type Wizard struct {
	engine    *Engine
	persister Persister
	answers   AnswerSet

	current   string
	submitted bool
	inFlight  atomic.Bool
}

// NewWizard starts a session at the first active section. The initial answers
// are copied.
func NewWizard(engine *Engine, persister Persister, answers AnswerSet) *Wizard {
	w := &Wizard{
		engine:    engine,
		persister: persister,
		answers:   answers.Clone(),
	}
	if active := engine.ActiveSections(w.answers); len(active) > 0 {
		w.current = active[0].Code
	}
	return w
}

// Engine returns the engine the wizard evaluates with.
func (w *Wizard) Engine() *Engine {
	return w.engine
}

// Answer returns the current answer for code.
func (w *Wizard) Answer(code string) any {
	return w.answers.Get(code)
}

// Answers returns a copy of the current answers.
func (w *Wizard) Answers() AnswerSet {
	return w.answers.Clone()
}

// SetAnswer records an answer. A nil value removes it.
func (w *Wizard) SetAnswer(code string, value any) error {
	if w.submitted {
		return ErrSubmitted
	}
	if _, ok := w.engine.Question(code); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, code)
	}
	if value == nil {
		delete(w.answers, code)
		return nil
	}
	w.answers[code] = value
	return nil
}

// ClearAnswer removes the answer for code.
func (w *Wizard) ClearAnswer(code string) error {
	return w.SetAnswer(code, nil)
}

// ActiveSections returns the sections active under the current answers.
func (w *Wizard) ActiveSections() []Section {
	return w.engine.ActiveSections(w.answers)
}

// Index returns the position in ActiveSections. It equals the number of
// active sections once the respondent advanced past the last one.
func (w *Wizard) Index() int {
	return w.position(w.ActiveSections())
}

// Current returns the section at the current position, or false at the review
// position.
func (w *Wizard) Current() (Section, bool) {
	active := w.ActiveSections()
	i := w.position(active)
	if i >= len(active) {
		return Section{}, false
	}
	return active[i], true
}

// Progress returns the completion percentage of the whole form.
func (w *Wizard) Progress() int {
	return w.engine.Progress(w.answers)
}

// ValidateCurrent validates the current section without moving.
func (w *Wizard) ValidateCurrent() ErrorSet {
	s, ok := w.Current()
	if !ok {
		return ErrorSet{}
	}
	return w.engine.ValidateSection(s, w.answers)
}

// Submitted reports whether Finalize succeeded.
func (w *Wizard) Submitted() bool {
	return w.submitted
}

// Advance moves to the next active section if the current one validates. On
// failure the position is unchanged and the errors are returned together with
// ErrValidationFailed.
func (w *Wizard) Advance() (ErrorSet, error) {
	if w.submitted {
		return nil, ErrSubmitted
	}
	active := w.ActiveSections()
	i := w.position(active)
	if i >= len(active) {
		return nil, ErrNoNextSection
	}
	if errs := w.engine.ValidateSection(active[i], w.answers); len(errs) > 0 {
		return errs, ErrValidationFailed
	}
	if i+1 < len(active) {
		w.current = active[i+1].Code
	} else {
		w.current = ""
	}
	return nil, nil
}

// Retreat moves to the previous active section without validating.
func (w *Wizard) Retreat() error {
	if w.submitted {
		return ErrSubmitted
	}
	active := w.ActiveSections()
	i := w.position(active)
	if i == 0 {
		return ErrAtFirstSection
	}
	w.current = active[i-1].Code
	return nil
}

// SaveDraft hands a snapshot of the answers to the persister, from any
// position and without validation.
func (w *Wizard) SaveDraft(ctx context.Context) (*Receipt, error) {
	if w.submitted {
		return nil, ErrSubmitted
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer w.inFlight.Store(false)

	return w.persister.SaveDraft(ctx, w.answers.Clone())
}

// Finalize validates every active section and, if all pass, hands the answers
// to the persister for submission. A validation refusal returns a
// *FinalizeError; calling again without changing answers yields the same
// sections and errors.
func (w *Wizard) Finalize(ctx context.Context) (*Receipt, error) {
	if w.submitted {
		return nil, ErrSubmitted
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer w.inFlight.Store(false)

	if failed := w.engine.ValidateActive(w.answers); len(failed) > 0 {
		return nil, &FinalizeError{Sections: failed}
	}

	receipt, err := w.persister.Finalize(ctx, w.answers.Clone())
	if err != nil {
		return nil, err
	}
	w.submitted = true
	w.current = ""
	return receipt, nil
}

// position resolves the anchored section code against the active list. If the
// anchored section is no longer active, the next active section in template
// order takes its place.
func (w *Wizard) position(active []Section) int {
	if w.current == "" {
		return len(active)
	}
	for i, s := range active {
		if s.Code == w.current {
			return i
		}
	}

	anchor := w.engine.sectionIndex(w.current)
	for i, s := range active {
		if w.engine.sectionIndex(s.Code) > anchor {
			return i
		}
	}
	return len(active)
}
