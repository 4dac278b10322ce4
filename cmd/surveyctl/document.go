package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
	"gopkg.in/yaml.v3"
)

// decodeDocument reads YAML or JSON into dst. YAML is normalised through
// JSON so that both formats share the json tags and number handling of the
// API payloads.
func decodeDocument(name string, data []byte, dst any) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".json" {
		return json.Unmarshal(data, dst)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalise yaml: %w", err)
	}
	return json.Unmarshal(raw, dst)
}

func readDocument(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := decodeDocument(path, data, dst); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// loadTemplate reads a template file into an import request.
func loadTemplate(path string) (*model.TemplateRequest, error) {
	var req model.TemplateRequest
	if err := readDocument(path, &req); err != nil {
		return nil, err
	}
	if req.Code == "" {
		return nil, fmt.Errorf("%s: template code is required", path)
	}
	if len(req.Sections) == 0 {
		return nil, fmt.Errorf("%s: template has no sections", path)
	}
	for i := range req.Sections {
		req.Sections[i].Order = i + 1
	}
	return &req, nil
}

func definition(req *model.TemplateRequest) *questionnaire.Template {
	return &questionnaire.Template{Code: req.Code, Version: 1, Sections: req.Sections}
}

func loadAnswers(path string) (questionnaire.AnswerSet, error) {
	answers := questionnaire.AnswerSet{}
	if path == "" {
		return answers, nil
	}
	if err := readDocument(path, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}
