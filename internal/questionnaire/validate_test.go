package questionnaire

import "testing"

func locationTemplate(required bool) *Template {
	return newTemplate(section("LOKASI", nil,
		Question{Code: "ALAMAT", AnswerType: AnswerLocation, IsRequired: required},
		Question{Code: "TITIK", AnswerType: AnswerGPS, IsRequired: required},
	))
}

func coords(lat, lng any) map[string]any {
	return map[string]any{"latitude": lat, "longitude": lng}
}

func TestValidateSection_Location(t *testing.T) {
	e := NewEngine(locationTemplate(true))
	s := e.Template().Sections[0]
	full := map[string]any{"kecamatan": "Denpasar Barat", "desa": "Dauh Puri", "koordinat": coords(-8.65, 115.21)}

	tests := []struct {
		name    string
		alamat  any
		want    string
		wantErr bool
	}{
		{"missing", nil, MsgRequired, true},
		{"empty object", map[string]any{"kecamatan": "", "koordinat": map[string]any{}}, MsgRequired, true},
		{"complete", full, "", false},
		{"no coordinates", map[string]any{"kecamatan": "Denpasar Barat", "desa": "Dauh Puri"}, MsgKoordinat, true},
		{"half coordinates", map[string]any{"kecamatan": "Denpasar Barat", "desa": "Dauh Puri", "koordinat": coords(-8.65, nil)}, MsgKoordinat, true},
		{"no kecamatan", map[string]any{"desa": "Dauh Puri", "koordinat": coords(-8.65, 115.21)}, MsgKecamatan, true},
		{"no desa", map[string]any{"kecamatan": "Denpasar Barat", "koordinat": coords(-8.65, 115.21)}, MsgDesa, true},
		{"coordinates reported first", map[string]any{"kecamatan": "Denpasar Barat"}, MsgKoordinat, true},
		{"only desa", map[string]any{"desa": "Dauh Puri"}, MsgKoordinat, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := AnswerSet{"TITIK": coords(-8.65, 115.21)}
			if tt.alamat != nil {
				answers["ALAMAT"] = tt.alamat
			}
			errs := e.ValidateSection(s, answers)
			got, ok := errs["ALAMAT"]
			if ok != tt.wantErr {
				t.Fatalf("error present = %v, want %v (errs=%v)", ok, tt.wantErr, errs)
			}
			if got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateSection_LocationCoordinatesFilledIn(t *testing.T) {
	e := NewEngine(locationTemplate(true))
	s := e.Template().Sections[0]
	alamat := map[string]any{
		"kecamatan": "Denpasar Barat",
		"desa":      "Dauh Puri",
		"koordinat": coords(nil, 115.21),
	}
	answers := AnswerSet{"ALAMAT": alamat, "TITIK": coords(-8.65, 115.21)}

	errs := e.ValidateSection(s, answers)
	if len(errs) != 1 || errs["ALAMAT"] != MsgKoordinat {
		t.Fatalf("errs = %v, want only ALAMAT=%q", errs, MsgKoordinat)
	}

	alamat["koordinat"] = coords(-8.65, 115.21)
	if errs := e.ValidateSection(s, answers); len(errs) != 0 {
		t.Errorf("expected no errors after filling coordinates, got %v", errs)
	}
}

func TestValidateSection_GPS(t *testing.T) {
	e := NewEngine(locationTemplate(true))
	s := e.Template().Sections[0]
	alamat := map[string]any{"kecamatan": "Denpasar Barat", "desa": "Dauh Puri", "koordinat": coords(-8.65, 115.21)}

	errs := e.ValidateSection(s, AnswerSet{"ALAMAT": alamat, "TITIK": coords("-8.65", nil)})
	if errs["TITIK"] != MsgKoordinat {
		t.Errorf("TITIK = %q, want %q", errs["TITIK"], MsgKoordinat)
	}

	errs = e.ValidateSection(s, AnswerSet{"ALAMAT": alamat, "TITIK": coords("-8.65", "115.21")})
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateSection_OptionalCompositeNotChecked(t *testing.T) {
	e := NewEngine(locationTemplate(false))
	errs := e.ValidateSection(e.Template().Sections[0], AnswerSet{"ALAMAT": map[string]any{"kecamatan": "X"}})
	if len(errs) != 0 {
		t.Errorf("expected optional composites to pass, got %v", errs)
	}
}

func TestValidateSection_OnlyActiveRequired(t *testing.T) {
	tpl := facilityTemplate()
	e := NewEngine(tpl)
	inpatient, _ := tpl.Section("RAWAT_INAP")

	errs := e.ValidateSection(*inpatient, AnswerSet{"JUMLAH_TT": 10})
	if len(errs) != 0 {
		t.Errorf("expected hidden required question to be skipped, got %v", errs)
	}

	errs = e.ValidateSection(*inpatient, AnswerSet{"JUMLAH_TT": 0})
	if errs["ALASAN_TT_KOSONG"] != MsgRequired || len(errs) != 1 {
		t.Errorf("errs = %v", errs)
	}
}

func TestValidateSection_Completeness(t *testing.T) {
	// Every active required question with an empty answer is reported, and
	// nothing else is.
	tpl := facilityTemplate()
	e := NewEngine(tpl)
	answers := AnswerSet{"JENIS_LAYANAN": "rawat_inap", "CATATAN": ""}

	for _, s := range e.ActiveSections(answers) {
		errs := e.ValidateSection(s, answers)
		for _, q := range e.ActiveQuestions(s, answers) {
			_, reported := errs[q.Code]
			missing := q.IsRequired && !answers.Has(q.Code)
			if reported != missing {
				t.Errorf("section %s question %s: reported=%v missing=%v", s.Code, q.Code, reported, missing)
			}
		}
	}
}

func TestValidateSection_FreshSetEachCall(t *testing.T) {
	e := NewEngine(facilityTemplate())
	s := e.Template().Sections[0]

	first := e.ValidateSection(s, AnswerSet{})
	if len(first) != 2 {
		t.Fatalf("expected 2 errors, got %v", first)
	}
	second := e.ValidateSection(s, AnswerSet{"NAMA": "RSJ", "JENIS_LAYANAN": "rawat_jalan"})
	if len(second) != 0 {
		t.Errorf("expected errors cleared, got %v", second)
	}
	if len(first) != 2 {
		t.Error("earlier error set was mutated")
	}
}

func TestValidateActive(t *testing.T) {
	e := NewEngine(facilityTemplate())

	failed := e.ValidateActive(AnswerSet{"NAMA": "RSJ", "JENIS_LAYANAN": "rawat_inap"})
	var codes []string
	for _, f := range failed {
		codes = append(codes, f.Section)
	}
	if !sameStrings(codes, []string{"RAWAT_INAP", "SDM"}) {
		t.Errorf("failed sections = %v", codes)
	}
	if len(failed) == 0 || failed[0].Name != "Bagian RAWAT_INAP" {
		t.Errorf("Name = %q", failed[0].Name)
	}

	ok := e.ValidateActive(AnswerSet{"NAMA": "RSJ", "JENIS_LAYANAN": "rawat_jalan", "KEPALA": "dr. A"})
	if len(ok) != 0 {
		t.Errorf("expected no failures, got %v", ok)
	}
}
