package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
)

const yamlTemplate = `
code: KESWA_FASYANKES
title: Pemetaan Fasilitas Keswa
sections:
  - code: A
    name: Identitas
    questions:
      - code: A1
        text: Jenis fasilitas
        answer_type: SINGLE_CHOICE
        is_required: true
        metadata:
          choices:
            - {value: rsj, label: Rumah Sakit Jiwa}
            - {value: puskesmas, label: Puskesmas}
  - code: B
    name: Layanan Rawat Inap
    visibility:
      question: A1
      operator: equals
      value: rsj
    questions:
      - code: B1
        text: Jumlah tempat tidur
        answer_type: NUMBER
        is_required: true
        metadata:
          min: 0
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadTemplate_YAML(t *testing.T) {
	req, err := loadTemplate(writeTemp(t, "tpl.yaml", yamlTemplate))
	if err != nil {
		t.Fatalf("loadTemplate: %v", err)
	}
	if req.Code != "KESWA_FASYANKES" || len(req.Sections) != 2 {
		t.Fatalf("got code=%q sections=%d", req.Code, len(req.Sections))
	}
	if req.Sections[1].Order != 2 {
		t.Errorf("order = %d, want 2", req.Sections[1].Order)
	}
	if req.Sections[1].Visibility == nil || req.Sections[1].Visibility.Question != "A1" {
		t.Errorf("visibility not decoded: %+v", req.Sections[1].Visibility)
	}
	if m := req.Sections[1].Questions[0].Metadata.Min; m == nil || *m != 0 {
		t.Errorf("min not decoded: %v", m)
	}
}

func TestLoadTemplate_Errors(t *testing.T) {
	tests := []struct {
		name, file, content string
	}{
		{"missing code", "a.yaml", "title: x\nsections: [{code: A, name: A, questions: []}]\n"},
		{"no sections", "b.json", `{"code":"x","title":"x","sections":[]}`},
		{"bad yaml", "c.yaml", "code: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadTemplate(writeTemp(t, tt.file, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEvaluateFromFiles(t *testing.T) {
	req, err := loadTemplate(writeTemp(t, "tpl.yml", yamlTemplate))
	if err != nil {
		t.Fatalf("loadTemplate: %v", err)
	}
	answers, err := loadAnswers(writeTemp(t, "answers.yaml", "A1: rsj\n"))
	if err != nil {
		t.Fatalf("loadAnswers: %v", err)
	}

	out := questionnaire.NewEngine(definition(req)).Outline(answers, true)
	if len(out.Sections) != 2 {
		t.Fatalf("active sections = %d, want 2", len(out.Sections))
	}
	if out.Progress != 50 {
		t.Errorf("progress = %d, want 50", out.Progress)
	}
	if _, ok := out.Sections[1].Errors["B1"]; !ok {
		t.Errorf("expected B1 required error, got %v", out.Sections[1].Errors)
	}
}

func TestParseDistricts(t *testing.T) {
	got := parseDistricts([]string{"510101=Denpasar Selatan", "Kuta"})
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Value != "510101" || got[0].Label != "Denpasar Selatan" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Value != "Kuta" || got[1].Label != "Kuta" {
		t.Errorf("second = %+v", got[1])
	}
}
