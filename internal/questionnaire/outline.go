package questionnaire

// SectionOutline is the presentation-facing view of one active section.
type SectionOutline struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Questions []string `json:"questions"`
	Errors    ErrorSet `json:"errors,omitempty"`
}

// Outline is a consistent snapshot of everything derived from one answer set.
type Outline struct {
	TemplateID string           `json:"template_id"`
	Sections   []SectionOutline `json:"sections"`
	Summary
}

// Outline derives active sections, their active question codes and the
// completion summary from a single answers snapshot. When validate is true
// every section also carries its validation errors.
func (e *Engine) Outline(answers AnswerSet, validate bool) Outline {
	out := Outline{
		TemplateID: e.tpl.ID.String(),
		Sections:   []SectionOutline{},
		Summary:    e.Summary(answers),
	}
	for _, s := range e.ActiveSections(answers) {
		so := SectionOutline{Code: s.Code, Name: s.Name, Questions: []string{}}
		for _, q := range e.ActiveQuestions(s, answers) {
			so.Questions = append(so.Questions, q.Code)
		}
		if validate {
			so.Errors = e.ValidateSection(s, answers)
		}
		out.Sections = append(out.Sections, so)
	}
	return out
}
