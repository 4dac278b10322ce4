package questionnaire

// Engine evaluates one template. It holds no answer state and is safe for
// concurrent use; every method is a pure function of its arguments.
type Engine struct {
	tpl       *Template
	questions map[string]*Question
	sections  map[string]int
}

// NewEngine indexes the template. The template must not be modified while the
// engine is in use. When a question code is duplicated the first occurrence
// wins; Template.Lint reports the defect.
func NewEngine(tpl *Template) *Engine {
	e := &Engine{
		tpl:       tpl,
		questions: make(map[string]*Question, tpl.QuestionCount()),
		sections:  make(map[string]int, len(tpl.Sections)),
	}
	for i := range tpl.Sections {
		if _, dup := e.sections[tpl.Sections[i].Code]; !dup {
			e.sections[tpl.Sections[i].Code] = i
		}
		for j := range tpl.Sections[i].Questions {
			q := &tpl.Sections[i].Questions[j]
			if _, dup := e.questions[q.Code]; !dup {
				e.questions[q.Code] = q
			}
		}
	}
	return e
}

// Template returns the template the engine evaluates.
func (e *Engine) Template() *Template {
	return e.tpl
}

// Question looks up a question by code.
func (e *Engine) Question(code string) (*Question, bool) {
	q, ok := e.questions[code]
	return q, ok
}

// sectionIndex returns the template position of the section, or -1.
func (e *Engine) sectionIndex(code string) int {
	if i, ok := e.sections[code]; ok {
		return i
	}
	return -1
}
