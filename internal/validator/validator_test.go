package validator

import (
	"errors"
	"testing"

	govalidator "github.com/go-playground/validator/v10"
)

type templateRequest struct {
	Code  string `json:"code" binding:"required,code" validate:"required,code"`
	Title string `json:"title" validate:"required,max=20"`
}

func TestCodeValidation(t *testing.T) {
	v := govalidator.New()
	register(v)

	tests := []struct {
		code  string
		valid bool
	}{
		{"KESWA_2024", true},
		{"A", true},
		{"keswa", false},
		{"2024_KESWA", false},
		{"KESWA-2024", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := v.Struct(templateRequest{Code: tt.code, Title: "Pemetaan"})
			if (err == nil) != tt.valid {
				t.Errorf("valid = %v, err = %v", err == nil, err)
			}
		})
	}
}

func TestTranslateErrors_UsesJSONNames(t *testing.T) {
	v := govalidator.New()
	register(v)

	err := v.Struct(templateRequest{Code: "lower", Title: ""})
	fields := TranslateErrors(err)

	if got := fields["code"]; got != "code must be an uppercase code (A-Z, 0-9, _)" {
		t.Errorf("code message = %q", got)
	}
	if got := fields["title"]; got != "title is a required field" {
		t.Errorf("title message = %q", got)
	}
}

func TestTranslateErrors_NonValidationError(t *testing.T) {
	fields := TranslateErrors(errors.New("unexpected EOF"))
	if len(fields) != 1 || fields["detail"] != "unexpected EOF" {
		t.Errorf("fields = %v", fields)
	}
}
