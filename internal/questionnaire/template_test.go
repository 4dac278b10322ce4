package questionnaire

import (
	"strings"
	"testing"
)

func lintMessages(issues []LintIssue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.String()
	}
	return out
}

func TestLint_CleanTemplate(t *testing.T) {
	if issues := facilityTemplate().Lint(); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", lintMessages(issues))
	}
}

func TestLint(t *testing.T) {
	lo, hi := 10.0, 1.0

	tests := []struct {
		name string
		tpl  *Template
		want string
	}{
		{
			name: "duplicate question code",
			tpl:  newTemplate(section("A", nil, text("Q", false, nil)), section("B", nil, text("Q", false, nil))),
			want: "question Q: duplicate question code",
		},
		{
			name: "duplicate section code",
			tpl:  newTemplate(section("A", nil, text("Q1", false, nil)), section("A", nil, text("Q2", false, nil))),
			want: "section A: duplicate section code",
		},
		{
			name: "dangling question reference",
			tpl:  newTemplate(section("A", nil, text("Q", false, eq("GHOST", "x")))),
			want: "question Q: visibility references unknown question GHOST",
		},
		{
			name: "dangling section reference",
			tpl:  newTemplate(section("A", eq("GHOST.kecamatan", "x"), text("Q", false, nil))),
			want: "section A: visibility references unknown question GHOST",
		},
		{
			name: "empty choices",
			tpl:  newTemplate(section("A", nil, Question{Code: "PILIH", AnswerType: AnswerSingleChoice})),
			want: "question PILIH: choice list is empty",
		},
		{
			name: "table without columns",
			tpl: newTemplate(section("A", nil, Question{Code: "SDM", AnswerType: AnswerStaffTable,
				Metadata: Metadata{Rows: []TableAxis{{Code: "psikiater"}}}})),
			want: "question SDM: table needs rows and columns",
		},
		{
			name: "unknown answer type",
			tpl:  newTemplate(section("A", nil, Question{Code: "X", AnswerType: "SLIDER"})),
			want: "question X: unknown answer type SLIDER",
		},
		{
			name: "inverted range",
			tpl:  newTemplate(section("A", nil, Question{Code: "N", AnswerType: AnswerNumber, Metadata: Metadata{Min: &lo, Max: &hi}})),
			want: "question N: min is greater than max",
		},
		{
			name: "self reference",
			tpl:  newTemplate(section("A", nil, text("Q", false, &Condition{Question: "Q", Operator: OpExists}))),
			want: "question Q: visibility depends on itself",
		},
		{
			name: "cycle through section visibility",
			tpl: newTemplate(
				section("A", nil, text("P", false, eq("Q", "x"))),
				section("B", eq("P", "x"), text("Q", false, nil)),
			),
			want: "question P: visibility depends on itself",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := lintMessages(tt.tpl.Lint())
			for _, m := range msgs {
				if m == tt.want {
					return
				}
			}
			t.Errorf("expected issue %q, got %v", tt.want, msgs)
		})
	}
}

func TestLint_CycleReportsEveryMember(t *testing.T) {
	tpl := newTemplate(section("A", nil,
		text("P", false, eq("R", "x")),
		text("Q", false, eq("P", "x")),
		text("R", false, eq("Q", "x")),
		text("S", false, eq("P", "x")),
	))

	var cyclic []string
	for _, is := range tpl.Lint() {
		if strings.Contains(is.Message, "depends on itself") {
			cyclic = append(cyclic, is.Question)
		}
	}
	if !sameStrings(cyclic, []string{"P", "Q", "R"}) {
		t.Errorf("cyclic questions = %v, want [P Q R]", cyclic)
	}
}

func TestAnswerTypeKind(t *testing.T) {
	tests := []struct {
		typ       AnswerType
		kind      Kind
		composite bool
	}{
		{AnswerText, KindScalar, false},
		{AnswerCoverageLevel, KindEnumerated, false},
		{AnswerGeoKecamatan, KindGeographic, false},
		{AnswerLocation, KindGeographic, true},
		{AnswerGPS, KindGeographic, true},
		{AnswerDiagnosisTable, KindTabular, true},
		{AnswerFile, KindFile, false},
		{"SLIDER", KindUnknown, false},
	}
	for _, tt := range tests {
		if got := tt.typ.Kind(); got != tt.kind {
			t.Errorf("%s.Kind() = %v, want %v", tt.typ, got, tt.kind)
		}
		if got := tt.typ.IsComposite(); got != tt.composite {
			t.Errorf("%s.IsComposite() = %v, want %v", tt.typ, got, tt.composite)
		}
	}
}

func TestWithDistricts(t *testing.T) {
	tpl := newTemplate(section("A", nil,
		Question{Code: "KEC", AnswerType: AnswerGeoKecamatan},
		Question{Code: "LOK", AnswerType: AnswerLocation},
		text("NAMA", false, nil),
	))
	districts := []Choice{{Value: "5171010", Label: "Denpasar Selatan"}, {Value: "5171020", Label: "Denpasar Timur"}}

	out := tpl.WithDistricts(districts)

	kec, _ := out.Question("KEC")
	lok, _ := out.Question("LOK")
	nama, _ := out.Question("NAMA")
	if len(kec.Metadata.Choices) != 2 || len(lok.Metadata.Choices) != 2 {
		t.Errorf("district choices not applied: %v / %v", kec.Metadata.Choices, lok.Metadata.Choices)
	}
	if len(nama.Metadata.Choices) != 0 {
		t.Error("text question must not receive district choices")
	}

	orig, _ := tpl.Question("KEC")
	if len(orig.Metadata.Choices) != 0 {
		t.Error("WithDistricts must not modify the source template")
	}
}

func TestOutline(t *testing.T) {
	e := NewEngine(facilityTemplate())
	out := e.Outline(AnswerSet{"NAMA": "RSJ", "JENIS_LAYANAN": "rawat_inap", "JUMLAH_TT": 0}, true)

	if len(out.Sections) != 3 {
		t.Fatalf("sections = %d, want 3", len(out.Sections))
	}
	inpatient := out.Sections[1]
	if !sameStrings(inpatient.Questions, []string{"JUMLAH_TT", "ALASAN_TT_KOSONG"}) {
		t.Errorf("questions = %v", inpatient.Questions)
	}
	if inpatient.Errors["ALASAN_TT_KOSONG"] != MsgRequired {
		t.Errorf("errors = %v", inpatient.Errors)
	}
	if out.Required != 5 || out.Answered != 3 || out.Progress != 60 {
		t.Errorf("summary = %+v", out.Summary)
	}

	plain := e.Outline(AnswerSet{}, false)
	for _, s := range plain.Sections {
		if s.Errors != nil {
			t.Errorf("section %s carries errors without validation", s.Code)
		}
	}
}
