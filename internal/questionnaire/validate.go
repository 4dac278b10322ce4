package questionnaire

// Validation messages. MsgRequired is a key the presentation layer localizes;
// the composite messages are shown to the surveyor as-is.
const (
	MsgRequired  = "required"
	MsgKoordinat = "Koordinat harus diisi (latitude dan longitude)"
	MsgKecamatan = "Kecamatan harus dipilih"
	MsgDesa      = "Desa/Kelurahan harus diisi"
)

// ErrorSet maps question codes to a validation message. Each validation pass
// builds a fresh set; sets are never merged.
type ErrorSet map[string]string

// SectionErrors is the validation result of one section.
type SectionErrors struct {
	Section string   `json:"section"`
	Name    string   `json:"name"`
	Errors  ErrorSet `json:"errors"`
}

// ValidateSection checks the active questions of section against answers. It
// enforces required-ness and composite completeness only; numeric bounds are
// enforced by the input layer.
func (e *Engine) ValidateSection(section Section, answers AnswerSet) ErrorSet {
	errs := make(ErrorSet)
	for _, q := range e.ActiveQuestions(section, answers) {
		if !q.IsRequired {
			continue
		}
		v := answers.Get(q.Code)
		if IsEmpty(v) {
			errs[q.Code] = MsgRequired
			continue
		}
		validateComposite(q, v, errs)
	}
	return errs
}

// validateComposite applies the structural rules of composite answer types.
// Only the first failing check is reported: coordinates, then kecamatan, then
// desa.
func validateComposite(q Question, v any, errs ErrorSet) {
	switch q.AnswerType {
	case AnswerLocation, AnswerGeoFull:
		loc := LocationOf(v)
		switch {
		case !loc.Koordinat.Complete():
			errs[q.Code] = MsgKoordinat
		case loc.Kecamatan == "":
			errs[q.Code] = MsgKecamatan
		case loc.Desa == "":
			errs[q.Code] = MsgDesa
		}
	case AnswerGPS:
		if !CoordinatesOf(v).Complete() {
			errs[q.Code] = MsgKoordinat
		}
	}
}

// ValidateActive validates every active section, re-deriving activation from
// answers, and returns only the sections that fail, in template order.
func (e *Engine) ValidateActive(answers AnswerSet) []SectionErrors {
	var failed []SectionErrors
	for _, s := range e.ActiveSections(answers) {
		if errs := e.ValidateSection(s, answers); len(errs) > 0 {
			failed = append(failed, SectionErrors{Section: s.Code, Name: s.Name, Errors: errs})
		}
	}
	return failed
}
