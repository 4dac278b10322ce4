package questionnaire

// ActiveSections returns the sections whose visibility holds, in template
// order. Answers of hidden questions are kept and still read by conditions, so
// re-activating a question restores what the respondent entered earlier.
func (e *Engine) ActiveSections(answers AnswerSet) []Section {
	active := make([]Section, 0, len(e.tpl.Sections))
	for _, s := range e.tpl.Sections {
		if e.Evaluate(s.Visibility, answers) {
			active = append(active, s)
		}
	}
	return active
}

// ActiveQuestions returns the questions of section whose visibility holds, in
// template order. The section's own visibility is not consulted.
func (e *Engine) ActiveQuestions(section Section, answers AnswerSet) []Question {
	active := make([]Question, 0, len(section.Questions))
	for _, q := range section.Questions {
		if e.Evaluate(q.Visibility, answers) {
			active = append(active, q)
		}
	}
	return active
}

// IsActive reports whether the question with code is reachable: its section
// and the question itself are both visible.
func (e *Engine) IsActive(code string, answers AnswerSet) bool {
	for _, s := range e.tpl.Sections {
		for _, q := range s.Questions {
			if q.Code != code {
				continue
			}
			return e.Evaluate(s.Visibility, answers) && e.Evaluate(q.Visibility, answers)
		}
	}
	return false
}
