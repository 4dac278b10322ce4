package model

import "github.com/stemsi/pemetaan-keswa/internal/questionnaire"

// District is a kecamatan of the deployment's kabupaten, identified by its
// BPS region code.
type District struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kabupaten string `json:"kabupaten"`
}

// DistrictChoices converts districts into GEO_KECAMATAN choices.
func DistrictChoices(districts []District) []questionnaire.Choice {
	out := make([]questionnaire.Choice, len(districts))
	for i, d := range districts {
		out[i] = questionnaire.Choice{Value: d.ID, Label: d.Name}
	}
	return out
}

// DistrictInput is one entry of a district list replacement.
type DistrictInput struct {
	ID   string `json:"id" binding:"required,max=16"`
	Name string `json:"name" binding:"required,max=255"`
}

// ReplaceDistrictsRequest replaces the whole district list of the kabupaten.
type ReplaceDistrictsRequest struct {
	Districts []DistrictInput `json:"districts" binding:"required,min=1,dive"`
}
