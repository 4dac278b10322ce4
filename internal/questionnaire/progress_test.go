package questionnaire

import "testing"

func TestProgress_ConditionalRequired(t *testing.T) {
	e := NewEngine(newTemplate(
		section("S1", nil,
			text("Q1", true, nil),
			text("Q2", true, eq("Q1", "yes")),
		),
	))

	tests := []struct {
		name    string
		answers AnswerSet
		active  []string
		want    int
	}{
		{"empty", AnswerSet{}, []string{"Q1"}, 0},
		{"yes reveals Q2", AnswerSet{"Q1": "yes"}, []string{"Q1", "Q2"}, 50},
		{"both answered", AnswerSet{"Q1": "yes", "Q2": "done"}, []string{"Q1", "Q2"}, 100},
		{"no keeps Q2 hidden", AnswerSet{"Q1": "no"}, []string{"Q1"}, 100},
		{"hidden answer retained", AnswerSet{"Q1": "no", "Q2": "done"}, []string{"Q1"}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active := codesOf(e.ActiveQuestions(e.Template().Sections[0], tt.answers))
			if !sameStrings(active, tt.active) {
				t.Errorf("ActiveQuestions() = %v, want %v", active, tt.active)
			}
			if got := e.Progress(tt.answers); got != tt.want {
				t.Errorf("Progress() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProgress_NoRequiredQuestions(t *testing.T) {
	e := NewEngine(newTemplate(section("S", nil, text("OPSIONAL", false, nil))))
	if got := e.Progress(AnswerSet{}); got != 100 {
		t.Errorf("Progress() = %d, want 100", got)
	}

	empty := NewEngine(newTemplate())
	if got := empty.Progress(nil); got != 100 {
		t.Errorf("Progress() on empty template = %d, want 100", got)
	}
}

func TestProgress_Rounding(t *testing.T) {
	e := NewEngine(newTemplate(section("S", nil,
		text("A", true, nil),
		text("B", true, nil),
		text("C", true, nil),
	)))

	tests := []struct {
		answers AnswerSet
		want    int
	}{
		{AnswerSet{"A": "x"}, 33},
		{AnswerSet{"A": "x", "B": "x"}, 67},
		{AnswerSet{"A": "x", "B": "  "}, 33},
	}
	for _, tt := range tests {
		if got := e.Progress(tt.answers); got != tt.want {
			t.Errorf("Progress(%v) = %d, want %d", tt.answers, got, tt.want)
		}
	}
}

func TestProgress_Bounds(t *testing.T) {
	e := NewEngine(facilityTemplate())
	inputs := []AnswerSet{
		nil,
		{},
		{"NAMA": "RSJ"},
		{"JENIS_LAYANAN": "rawat_inap"},
		{"JENIS_LAYANAN": "rawat_inap", "JUMLAH_TT": 0, "ALASAN_TT_KOSONG": "renovasi"},
		{"NAMA": "RSJ", "JENIS_LAYANAN": "rawat_jalan", "KEPALA": "dr. A", "UNKNOWN": "x"},
	}
	for i, a := range inputs {
		p := e.Progress(a)
		if p < 0 || p > 100 {
			t.Errorf("input %d: Progress() = %d out of bounds", i, p)
		}
	}
}

func TestSummary(t *testing.T) {
	e := NewEngine(facilityTemplate())
	sum := e.Summary(AnswerSet{"NAMA": "RSJ", "JENIS_LAYANAN": "rawat_inap"})

	want := Summary{Progress: 50, Required: 4, Answered: 2, ActiveSections: 3}
	if sum != want {
		t.Errorf("Summary() = %+v, want %+v", sum, want)
	}
}
