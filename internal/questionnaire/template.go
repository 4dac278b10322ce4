// Package questionnaire evaluates survey templates against a respondent's answers.
//
// Everything here is pure and synchronous: given a Template and an AnswerSet the
// Engine derives which sections and questions are active, how complete the form
// is, and which fields fail validation. The only I/O boundary is the Persister
// used by the Wizard.
package questionnaire

import (
	"fmt"

	"github.com/google/uuid"
)

// AnswerType tags a question with the shape of its answer.
type AnswerType string

const (
	AnswerText     AnswerType = "TEXT"
	AnswerNumber   AnswerType = "NUMBER"
	AnswerInteger  AnswerType = "INTEGER"
	AnswerDate     AnswerType = "DATE"
	AnswerTime     AnswerType = "TIME"
	AnswerBoolean  AnswerType = "BOOLEAN"
	AnswerPhone    AnswerType = "PHONE"
	AnswerEmail    AnswerType = "EMAIL"
	AnswerURL      AnswerType = "URL"
	AnswerTextarea AnswerType = "TEXTAREA"

	AnswerSingleChoice   AnswerType = "SINGLE_CHOICE"
	AnswerMultipleChoice AnswerType = "MULTIPLE_CHOICE"
	AnswerCoverageLevel  AnswerType = "COVERAGE_LEVEL"

	AnswerGeoProvinsi  AnswerType = "GEO_PROVINSI"
	AnswerGeoKabupaten AnswerType = "GEO_KABUPATEN"
	AnswerGeoKecamatan AnswerType = "GEO_KECAMATAN"
	AnswerGeoDesa      AnswerType = "GEO_DESA"
	AnswerGeoFull      AnswerType = "GEO_FULL"
	AnswerLocation     AnswerType = "LOCATION"
	AnswerGPS          AnswerType = "GPS"

	AnswerStaffTable     AnswerType = "STAFF_TABLE"
	AnswerDiagnosisTable AnswerType = "DIAGNOSIS_TABLE"

	AnswerFile AnswerType = "FILE"
)

// Kind groups answer types into families that share metadata and validation.
type Kind int

const (
	KindUnknown Kind = iota
	KindScalar
	KindEnumerated
	KindGeographic
	KindTabular
	KindFile
)

// Kind returns the family of the answer type.
func (t AnswerType) Kind() Kind {
	switch t {
	case AnswerText, AnswerNumber, AnswerInteger, AnswerDate, AnswerTime,
		AnswerBoolean, AnswerPhone, AnswerEmail, AnswerURL, AnswerTextarea:
		return KindScalar
	case AnswerSingleChoice, AnswerMultipleChoice, AnswerCoverageLevel:
		return KindEnumerated
	case AnswerGeoProvinsi, AnswerGeoKabupaten, AnswerGeoKecamatan, AnswerGeoDesa,
		AnswerGeoFull, AnswerLocation, AnswerGPS:
		return KindGeographic
	case AnswerStaffTable, AnswerDiagnosisTable:
		return KindTabular
	case AnswerFile:
		return KindFile
	default:
		return KindUnknown
	}
}

// IsComposite reports whether answers of this type are nested objects.
func (t AnswerType) IsComposite() bool {
	switch t {
	case AnswerGeoFull, AnswerLocation, AnswerGPS, AnswerStaffTable, AnswerDiagnosisTable:
		return true
	}
	return false
}

// Choice is one selectable option of an enumerated question.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// TableAxis is a row or column definition of a tabular question.
type TableAxis struct {
	Code  string `json:"code" yaml:"code"`
	Label string `json:"label" yaml:"label"`
}

// Metadata carries the type-specific parts of a question. Which fields are
// meaningful depends on the owning question's AnswerType.
type Metadata struct {
	Choices   []Choice    `json:"choices,omitempty" yaml:"choices,omitempty"`
	Rows      []TableAxis `json:"rows,omitempty" yaml:"rows,omitempty"`
	Columns   []TableAxis `json:"columns,omitempty" yaml:"columns,omitempty"`
	Min       *float64    `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64    `json:"max,omitempty" yaml:"max,omitempty"`
	Unit      string      `json:"unit,omitempty" yaml:"unit,omitempty"`
	Provinsi  string      `json:"provinsi,omitempty" yaml:"provinsi,omitempty"`
	Kabupaten string      `json:"kabupaten,omitempty" yaml:"kabupaten,omitempty"`
}

// Question is a single field of a section.
type Question struct {
	Code       string     `json:"code" yaml:"code"`
	Text       string     `json:"text" yaml:"text"`
	HelpText   string     `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	AnswerType AnswerType `json:"answer_type" yaml:"answer_type"`
	IsRequired bool       `json:"is_required" yaml:"is_required"`
	Visibility *Condition `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Metadata   Metadata   `json:"metadata" yaml:"metadata"`
}

// Section is an ordered group of questions shown as one wizard step.
type Section struct {
	ID          uuid.UUID  `json:"id" yaml:"id"`
	Code        string     `json:"code" yaml:"code"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Order       int        `json:"order" yaml:"order"`
	Visibility  *Condition `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

// Template is the read-only definition of a questionnaire.
type Template struct {
	ID       uuid.UUID `json:"id" yaml:"id"`
	Code     string    `json:"code" yaml:"code"`
	Version  int       `json:"version" yaml:"version"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Question looks up a question by code across all sections.
func (t *Template) Question(code string) (*Question, bool) {
	for i := range t.Sections {
		for j := range t.Sections[i].Questions {
			if t.Sections[i].Questions[j].Code == code {
				return &t.Sections[i].Questions[j], true
			}
		}
	}
	return nil, false
}

// Section looks up a section by code.
func (t *Template) Section(code string) (*Section, bool) {
	for i := range t.Sections {
		if t.Sections[i].Code == code {
			return &t.Sections[i], true
		}
	}
	return nil, false
}

// QuestionCount returns the number of questions across all sections.
func (t *Template) QuestionCount() int {
	n := 0
	for _, s := range t.Sections {
		n += len(s.Questions)
	}
	return n
}

// WithDistricts returns a copy of the template in which every GEO_KECAMATAN
// question (and the kecamatan part of GEO_FULL/LOCATION) offers the given
// districts as choices. The receiver is not modified.
func (t *Template) WithDistricts(districts []Choice) *Template {
	out := *t
	out.Sections = make([]Section, len(t.Sections))
	for i, s := range t.Sections {
		s.Questions = append([]Question(nil), s.Questions...)
		for j := range s.Questions {
			switch s.Questions[j].AnswerType {
			case AnswerGeoKecamatan, AnswerGeoFull, AnswerLocation:
				s.Questions[j].Metadata.Choices = append([]Choice(nil), districts...)
			}
		}
		out.Sections[i] = s
	}
	return &out
}

// LintIssue is an authoring defect found by Lint.
type LintIssue struct {
	Section  string `json:"section,omitempty"`
	Question string `json:"question,omitempty"`
	Message  string `json:"message"`
}

func (i LintIssue) String() string {
	switch {
	case i.Question != "":
		return fmt.Sprintf("question %s: %s", i.Question, i.Message)
	case i.Section != "":
		return fmt.Sprintf("section %s: %s", i.Section, i.Message)
	default:
		return i.Message
	}
}

// Lint checks the template for authoring defects the evaluator tolerates at
// runtime: duplicate codes, dangling condition references, missing type
// metadata and visibility cycles. An empty result means the template is clean.
func (t *Template) Lint() []LintIssue {
	var issues []LintIssue

	questions := make(map[string]*Question)
	sections := make(map[string]bool)
	for i := range t.Sections {
		s := &t.Sections[i]
		if s.Code == "" {
			issues = append(issues, LintIssue{Section: s.Name, Message: "section code is empty"})
		} else if sections[s.Code] {
			issues = append(issues, LintIssue{Section: s.Code, Message: "duplicate section code"})
		}
		sections[s.Code] = true

		for j := range s.Questions {
			q := &s.Questions[j]
			if q.Code == "" {
				issues = append(issues, LintIssue{Section: s.Code, Message: "question code is empty"})
				continue
			}
			if _, dup := questions[q.Code]; dup {
				issues = append(issues, LintIssue{Question: q.Code, Message: "duplicate question code"})
				continue
			}
			questions[q.Code] = q
			issues = append(issues, lintMetadata(q)...)
		}
	}

	for i := range t.Sections {
		s := &t.Sections[i]
		for _, ref := range s.Visibility.References() {
			if _, ok := questions[ref]; !ok {
				issues = append(issues, LintIssue{Section: s.Code, Message: "visibility references unknown question " + ref})
			}
		}
		for j := range s.Questions {
			q := &s.Questions[j]
			for _, ref := range q.Visibility.References() {
				if _, ok := questions[ref]; !ok {
					issues = append(issues, LintIssue{Question: q.Code, Message: "visibility references unknown question " + ref})
				}
			}
		}
	}

	for _, code := range t.visibilityCycles() {
		issues = append(issues, LintIssue{Question: code, Message: "visibility depends on itself"})
	}

	return issues
}

func lintMetadata(q *Question) []LintIssue {
	var issues []LintIssue
	switch q.AnswerType.Kind() {
	case KindUnknown:
		issues = append(issues, LintIssue{Question: q.Code, Message: "unknown answer type " + string(q.AnswerType)})
	case KindEnumerated:
		if len(q.Metadata.Choices) == 0 {
			issues = append(issues, LintIssue{Question: q.Code, Message: "choice list is empty"})
		}
	case KindTabular:
		if len(q.Metadata.Rows) == 0 || len(q.Metadata.Columns) == 0 {
			issues = append(issues, LintIssue{Question: q.Code, Message: "table needs rows and columns"})
		}
	}
	if q.Metadata.Min != nil && q.Metadata.Max != nil && *q.Metadata.Min > *q.Metadata.Max {
		issues = append(issues, LintIssue{Question: q.Code, Message: "min is greater than max"})
	}
	return issues
}

// visibilityCycles returns, in template order, the codes of questions whose
// visibility transitively depends on their own answer. A question inherits the
// visibility of its section.
func (t *Template) visibilityCycles() []string {
	deps := make(map[string][]string)
	var order []string
	for _, s := range t.Sections {
		sectionRefs := s.Visibility.References()
		for _, q := range s.Questions {
			if _, seen := deps[q.Code]; seen {
				continue
			}
			order = append(order, q.Code)
			deps[q.Code] = append(append([]string(nil), sectionRefs...), q.Visibility.References()...)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(deps))
	cyclic := make(map[string]bool)

	var visit func(code string, stack []string)
	visit = func(code string, stack []string) {
		switch state[code] {
		case visiting:
			for i := len(stack) - 1; i >= 0; i-- {
				cyclic[stack[i]] = true
				if stack[i] == code {
					break
				}
			}
			return
		case done:
			return
		}
		state[code] = visiting
		stack = append(stack, code)
		for _, ref := range deps[code] {
			if _, ok := deps[ref]; ok {
				visit(ref, stack)
			}
		}
		state[code] = done
	}

	for _, code := range order {
		visit(code, nil)
	}

	var out []string
	for _, code := range order {
		if cyclic[code] {
			out = append(out, code)
		}
	}
	return out
}
