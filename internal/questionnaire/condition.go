package questionnaire

import (
	"strconv"
	"strings"
)

// Operator is the comparison applied by a leaf condition.
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpIn        Operator = "in"
	OpNotIn     Operator = "not_in"
	OpContains  Operator = "contains"
	OpExists    Operator = "exists"
	OpNotExists Operator = "not_exists"
	OpGt        Operator = "gt"
	OpGte       Operator = "gte"
	OpLt        Operator = "lt"
	OpLte       Operator = "lte"
)

// Condition controls the visibility of a section or question.
//
// A leaf names a question (optionally a dotted path into a composite answer
// such as "lokasi.kecamatan"), an operator and a literal value. A composite
// node combines children with All, Any and Not; all present parts must hold.
type Condition struct {
	Question string   `json:"question,omitempty" yaml:"question,omitempty"`
	Operator Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`

	All []*Condition `json:"all,omitempty" yaml:"all,omitempty"`
	Any []*Condition `json:"any,omitempty" yaml:"any,omitempty"`
	Not *Condition   `json:"not,omitempty" yaml:"not,omitempty"`
}

// IsLeaf reports whether the condition compares a single answer.
func (c *Condition) IsLeaf() bool {
	return c != nil && c.Question != ""
}

// References returns the question codes the condition reads, in first-seen
// order. Dotted paths are reduced to their question code.
func (c *Condition) References() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool)
	var refs []string
	var walk func(n *Condition)
	walk = func(n *Condition) {
		if n == nil {
			return
		}
		if n.Question != "" {
			code := rootCode(n.Question)
			if !seen[code] {
				seen[code] = true
				refs = append(refs, code)
			}
		}
		for _, child := range n.All {
			walk(child)
		}
		for _, child := range n.Any {
			walk(child)
		}
		walk(n.Not)
	}
	walk(c)
	return refs
}

// Evaluate reports whether cond holds for answers. A nil condition always
// holds. A condition that references a question missing from the template is
// false as a whole, so an authoring defect can only ever hide an element.
func (e *Engine) Evaluate(cond *Condition, answers AnswerSet) bool {
	if cond == nil {
		return true
	}
	for _, ref := range cond.References() {
		if _, ok := e.questions[ref]; !ok {
			return false
		}
	}
	return evaluate(cond, answers)
}

func evaluate(c *Condition, answers AnswerSet) bool {
	if c == nil {
		return true
	}
	if c.IsLeaf() {
		return compare(c.Operator, resolve(answers, c.Question), c.Value)
	}
	for _, child := range c.All {
		if !evaluate(child, answers) {
			return false
		}
	}
	if len(c.Any) > 0 {
		matched := false
		for _, child := range c.Any {
			if evaluate(child, answers) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if c.Not != nil && evaluate(c.Not, answers) {
		return false
	}
	return true
}

func rootCode(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}

// resolve reads the answer at a question code or a dotted path into it.
func resolve(answers AnswerSet, path string) any {
	parts := strings.Split(path, ".")
	v := answers.Get(parts[0])
	for _, p := range parts[1:] {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[p]
	}
	return v
}

func compare(op Operator, actual, expected any) bool {
	switch op {
	case OpExists:
		return !IsEmpty(actual)
	case OpNotExists:
		return IsEmpty(actual)
	}

	// Every other operator compares against a value; an unanswered question
	// never satisfies it.
	if IsEmpty(actual) {
		return false
	}

	switch op {
	case OpEquals, OpContains:
		return matchesAny(actual, []any{expected})
	case OpNotEquals:
		return !matchesAny(actual, []any{expected})
	case OpIn:
		return matchesAny(actual, listOf(expected))
	case OpNotIn:
		return !matchesAny(actual, listOf(expected))
	case OpGt, OpGte, OpLt, OpLte:
		a, b := floatOf(actual), floatOf(expected)
		if a == nil || b == nil {
			return false
		}
		switch op {
		case OpGt:
			return *a > *b
		case OpGte:
			return *a >= *b
		case OpLt:
			return *a < *b
		default:
			return *a <= *b
		}
	default:
		return false
	}
}

// matchesAny reports whether the answer (or, for multi-valued answers, any of
// its elements) equals one of the candidates.
func matchesAny(actual any, candidates []any) bool {
	for _, have := range valuesOf(actual) {
		for _, want := range candidates {
			if canonical(have) == canonical(want) {
				return true
			}
		}
	}
	return false
}

func valuesOf(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func listOf(v any) []any {
	if v == nil {
		return nil
	}
	return valuesOf(v)
}

// canonical renders scalars so that "3", 3 and 3.0 compare equal, as do
// true and "true".
func canonical(v any) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case string:
		s := strings.TrimSpace(val)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return s
	default:
		if f := floatOf(v); f != nil {
			return strconv.FormatFloat(*f, 'f', -1, 64)
		}
		return stringOf(v)
	}
}
