package questionnaire

import "math"

// Summary is the completion state across every active section.
type Summary struct {
	Progress       int `json:"progress"`
	Required       int `json:"required"`
	Answered       int `json:"answered"`
	ActiveSections int `json:"active_sections"`
}

// Progress returns the completion percentage in [0, 100]: the share of active,
// required questions that carry a non-empty answer. A form without active
// required questions is complete. Progress is not monotonic, since an answer
// may hide or reveal required questions.
func (e *Engine) Progress(answers AnswerSet) int {
	return e.Summary(answers).Progress
}

// Summary computes Progress together with its inputs.
func (e *Engine) Summary(answers AnswerSet) Summary {
	var sum Summary
	for _, s := range e.ActiveSections(answers) {
		sum.ActiveSections++
		for _, q := range e.ActiveQuestions(s, answers) {
			if !q.IsRequired {
				continue
			}
			sum.Required++
			if answers.Has(q.Code) {
				sum.Answered++
			}
		}
	}
	sum.Progress = percent(sum.Answered, sum.Required)
	return sum
}

func percent(answered, required int) int {
	if required == 0 {
		return 100
	}
	p := int(math.Round(100 * float64(answered) / float64(required)))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
