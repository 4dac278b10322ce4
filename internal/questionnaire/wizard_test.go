package questionnaire

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func twoSectionTemplate() *Template {
	return newTemplate(
		section("S1", nil, text("A", true, nil)),
		section("S2", nil, text("B", true, nil)),
	)
}

func TestWizard_FinalizeAttributesFailingSection(t *testing.T) {
	p := &fakePersister{}
	w := NewWizard(NewEngine(twoSectionTemplate()), p, nil)

	if err := w.SetAnswer("A", "jawaban"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	_, err := w.Finalize(context.Background())

	var fe *FinalizeError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FinalizeError, got %v", err)
	}
	if !errors.Is(err, ErrValidationFailed) {
		t.Error("expected errors.Is(err, ErrValidationFailed)")
	}
	if len(fe.Sections) != 1 || fe.Sections[0].Section != "S2" {
		t.Fatalf("failing sections = %+v, want only S2", fe.Sections)
	}
	if fe.Sections[0].Errors["B"] != MsgRequired {
		t.Errorf("errors = %v", fe.Sections[0].Errors)
	}
	if len(p.finalized) != 0 {
		t.Error("persister must not be called when validation fails")
	}
	if w.Submitted() {
		t.Error("wizard must not be submitted")
	}
}

func TestWizard_FinalizeGateIsIdempotent(t *testing.T) {
	w := NewWizard(NewEngine(facilityTemplate()), &fakePersister{}, AnswerSet{"JENIS_LAYANAN": "rawat_inap"})

	_, first := w.Finalize(context.Background())
	_, second := w.Finalize(context.Background())

	var fe1, fe2 *FinalizeError
	if !errors.As(first, &fe1) || !errors.As(second, &fe2) {
		t.Fatalf("expected two finalize refusals, got %v and %v", first, second)
	}
	if !reflect.DeepEqual(fe1.Sections, fe2.Sections) {
		t.Errorf("refusals differ:\n%+v\n%+v", fe1.Sections, fe2.Sections)
	}
}

func TestWizard_FinalizeSuccess(t *testing.T) {
	p := &fakePersister{}
	w := NewWizard(NewEngine(twoSectionTemplate()), p, AnswerSet{"A": "x", "B": "y"})

	receipt, err := w.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if receipt.Status != StatusSubmitted {
		t.Errorf("Status = %s", receipt.Status)
	}
	if !w.Submitted() {
		t.Error("expected wizard to be submitted")
	}
	if len(p.finalized) != 1 || p.finalized[0]["B"] != "y" {
		t.Errorf("finalized = %v", p.finalized)
	}

	if err := w.SetAnswer("A", "z"); !errors.Is(err, ErrSubmitted) {
		t.Errorf("SetAnswer after submit: %v", err)
	}
	if _, err := w.Finalize(context.Background()); !errors.Is(err, ErrSubmitted) {
		t.Errorf("second Finalize: %v", err)
	}
	if _, err := w.SaveDraft(context.Background()); !errors.Is(err, ErrSubmitted) {
		t.Errorf("SaveDraft after submit: %v", err)
	}
}

func TestWizard_FinalizeRevalidatesActivation(t *testing.T) {
	// An earlier answer changed after visiting a later section must be
	// reflected when finalizing.
	w := NewWizard(NewEngine(facilityTemplate()), &fakePersister{}, AnswerSet{
		"NAMA":          "RSJ",
		"JENIS_LAYANAN": "rawat_jalan",
		"KEPALA":        "dr. A",
	})
	if _, err := w.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize with outpatient answers: %v", err)
	}

	w = NewWizard(NewEngine(facilityTemplate()), &fakePersister{}, AnswerSet{
		"NAMA":          "RSJ",
		"JENIS_LAYANAN": "rawat_inap",
		"KEPALA":        "dr. A",
	})
	_, err := w.Finalize(context.Background())
	var fe *FinalizeError
	if !errors.As(err, &fe) || fe.Sections[0].Section != "RAWAT_INAP" {
		t.Errorf("expected RAWAT_INAP to fail, got %v", err)
	}
}

func TestWizard_RetreatAtFirstSection(t *testing.T) {
	w := NewWizard(NewEngine(twoSectionTemplate()), &fakePersister{}, nil)

	if err := w.Retreat(); !errors.Is(err, ErrAtFirstSection) {
		t.Fatalf("Retreat() = %v, want ErrAtFirstSection", err)
	}
	if w.Index() != 0 {
		t.Errorf("Index() = %d, want 0", w.Index())
	}
}

func TestWizard_Navigation(t *testing.T) {
	w := NewWizard(NewEngine(twoSectionTemplate()), &fakePersister{}, nil)

	errs, err := w.Advance()
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Advance() = %v, want ErrValidationFailed", err)
	}
	if errs["A"] != MsgRequired {
		t.Errorf("errs = %v", errs)
	}
	if w.Index() != 0 {
		t.Fatalf("Index() = %d after refused advance", w.Index())
	}

	_ = w.SetAnswer("A", "x")
	if _, err := w.Advance(); err != nil {
		t.Fatalf("Advance(): %v", err)
	}
	if s, ok := w.Current(); !ok || s.Code != "S2" {
		t.Fatalf("Current() = %v, %v", s.Code, ok)
	}

	// Going back never validates.
	if err := w.Retreat(); err != nil {
		t.Fatalf("Retreat(): %v", err)
	}
	if w.Index() != 0 {
		t.Errorf("Index() = %d, want 0", w.Index())
	}

	_, _ = w.Advance()
	_ = w.SetAnswer("B", "y")
	if _, err := w.Advance(); err != nil {
		t.Fatalf("Advance() from last section: %v", err)
	}
	if w.Index() != 2 {
		t.Errorf("Index() = %d, want review position 2", w.Index())
	}
	if _, ok := w.Current(); ok {
		t.Error("expected no current section at the review position")
	}
	if _, err := w.Advance(); !errors.Is(err, ErrNoNextSection) {
		t.Errorf("Advance() at review = %v", err)
	}
	if err := w.Retreat(); err != nil || w.Index() != 1 {
		t.Errorf("Retreat() from review = %v, index %d", err, w.Index())
	}
}

func TestWizard_ReanchorsWhenSectionHides(t *testing.T) {
	w := NewWizard(NewEngine(facilityTemplate()), &fakePersister{}, AnswerSet{
		"NAMA":          "RSJ",
		"JENIS_LAYANAN": "rawat_inap",
	})
	if _, err := w.Advance(); err != nil {
		t.Fatalf("Advance(): %v", err)
	}
	if s, _ := w.Current(); s.Code != "RAWAT_INAP" {
		t.Fatalf("Current() = %s", s.Code)
	}

	_ = w.SetAnswer("JENIS_LAYANAN", "rawat_jalan")
	if s, ok := w.Current(); !ok || s.Code != "SDM" {
		t.Errorf("Current() = %s, %v, want SDM", s.Code, ok)
	}
	if w.Index() != 1 {
		t.Errorf("Index() = %d, want 1", w.Index())
	}
}

func TestWizard_AnswerRetainedAcrossReactivation(t *testing.T) {
	w := NewWizard(NewEngine(facilityTemplate()), &fakePersister{}, nil)

	_ = w.SetAnswer("JENIS_LAYANAN", "rawat_inap")
	_ = w.SetAnswer("JUMLAH_TT", 12)
	_ = w.SetAnswer("JENIS_LAYANAN", "rawat_jalan")

	if w.Engine().IsActive("JUMLAH_TT", w.Answers()) {
		t.Fatal("expected JUMLAH_TT hidden for outpatient facilities")
	}

	_ = w.SetAnswer("JENIS_LAYANAN", "rawat_inap")
	if got := w.Answer("JUMLAH_TT"); got != 12 {
		t.Errorf("Answer(JUMLAH_TT) = %v, want 12", got)
	}
}

func TestWizard_SetAnswerUnknownQuestion(t *testing.T) {
	w := NewWizard(NewEngine(twoSectionTemplate()), &fakePersister{}, nil)
	if err := w.SetAnswer("TIDAK_ADA", "x"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("SetAnswer() = %v, want ErrUnknownQuestion", err)
	}
}

func TestWizard_ClearAnswer(t *testing.T) {
	w := NewWizard(NewEngine(twoSectionTemplate()), &fakePersister{}, AnswerSet{"A": "x"})
	if err := w.ClearAnswer("A"); err != nil {
		t.Fatal(err)
	}
	if _, ok := w.Answers()["A"]; ok {
		t.Error("expected A removed")
	}
}

func TestWizard_InitialAnswersAreCopied(t *testing.T) {
	initial := AnswerSet{"A": "x"}
	w := NewWizard(NewEngine(twoSectionTemplate()), &fakePersister{}, initial)

	_ = w.SetAnswer("A", "y")
	if initial["A"] != "x" {
		t.Error("wizard mutated the caller's answers")
	}
	out := w.Answers()
	out["A"] = "z"
	if w.Answer("A") != "y" {
		t.Error("Answers() must return a copy")
	}
}

func TestWizard_SaveDraftFromAnySection(t *testing.T) {
	p := &fakePersister{}
	w := NewWizard(NewEngine(twoSectionTemplate()), p, nil)

	for i := 0; i < 2; i++ {
		receipt, err := w.SaveDraft(context.Background())
		if err != nil {
			t.Fatalf("SaveDraft: %v", err)
		}
		if receipt.Status != StatusDraft {
			t.Errorf("Status = %s", receipt.Status)
		}
	}
	if len(p.drafts) != 2 {
		t.Errorf("drafts = %d, want 2", len(p.drafts))
	}
}

func TestWizard_PersistenceFailureKeepsAnswers(t *testing.T) {
	boom := errors.New("server unavailable")
	p := &fakePersister{err: boom}
	w := NewWizard(NewEngine(twoSectionTemplate()), p, AnswerSet{"A": "x", "B": "y"})

	if _, err := w.SaveDraft(context.Background()); !errors.Is(err, boom) {
		t.Errorf("SaveDraft() = %v, want %v", err, boom)
	}
	if _, err := w.Finalize(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Finalize() = %v, want %v", err, boom)
	}
	if w.Submitted() {
		t.Error("failed finalize must not submit")
	}
	if w.Answer("A") != "x" || w.Answer("B") != "y" {
		t.Errorf("answers lost: %v", w.Answers())
	}

	p.err = nil
	if _, err := w.Finalize(context.Background()); err != nil {
		t.Errorf("retry Finalize: %v", err)
	}
}

func TestWizard_RejectsOverlappingSaves(t *testing.T) {
	p := &fakePersister{
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	w := NewWizard(NewEngine(twoSectionTemplate()), p, AnswerSet{"A": "x", "B": "y"})

	done := make(chan error, 1)
	go func() {
		_, err := w.SaveDraft(context.Background())
		done <- err
	}()
	<-p.entered

	if _, err := w.SaveDraft(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second SaveDraft() = %v, want ErrBusy", err)
	}
	if _, err := w.Finalize(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Finalize() during save = %v, want ErrBusy", err)
	}

	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("first SaveDraft: %v", err)
	}

	p.entered = nil
	if _, err := w.Finalize(context.Background()); err != nil {
		t.Errorf("Finalize after save completed: %v", err)
	}
}
