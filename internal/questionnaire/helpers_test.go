package questionnaire

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

func eq(code string, value any) *Condition {
	return &Condition{Question: code, Operator: OpEquals, Value: value}
}

func text(code string, required bool, vis *Condition) Question {
	return Question{Code: code, Text: code, AnswerType: AnswerText, IsRequired: required, Visibility: vis}
}

func section(code string, vis *Condition, qs ...Question) Section {
	return Section{ID: uuid.New(), Code: code, Name: "Bagian " + code, Visibility: vis, Questions: qs}
}

func newTemplate(sections ...Section) *Template {
	for i := range sections {
		sections[i].Order = i + 1
	}
	return &Template{ID: uuid.New(), Code: "keswa", Version: 1, Sections: sections}
}

// fakePersister records snapshots and can be made to block or fail.
type fakePersister struct {
	mu        sync.Mutex
	drafts    []AnswerSet
	finalized []AnswerSet
	err       error
	release   chan struct{}
	entered   chan struct{}
}

func (p *fakePersister) wait() {
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
}

func (p *fakePersister) SaveDraft(_ context.Context, answers AnswerSet) (*Receipt, error) {
	p.wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.drafts = append(p.drafts, answers)
	return &Receipt{ID: uuid.New(), Status: StatusDraft, SavedAt: time.Now()}, nil
}

func (p *fakePersister) Finalize(_ context.Context, answers AnswerSet) (*Receipt, error) {
	p.wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.finalized = append(p.finalized, answers)
	return &Receipt{ID: uuid.New(), Status: StatusSubmitted, SavedAt: time.Now()}, nil
}

func codesOf(qs []Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Code
	}
	return out
}

func sectionCodes(ss []Section) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Code
	}
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
