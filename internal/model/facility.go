package model

import (
	"time"

	"github.com/google/uuid"
)

// FacilityType classifies a mental-health service provider.
type FacilityType string

const (
	FacilityRSJ         FacilityType = "RSJ"
	FacilityRSU         FacilityType = "RSU"
	FacilityPuskesmas   FacilityType = "PUSKESMAS"
	FacilityKlinik      FacilityType = "KLINIK"
	FacilityPraktik     FacilityType = "PRAKTIK_MANDIRI"
	FacilityPanti       FacilityType = "PANTI_REHABILITASI"
	FacilityKomunitas   FacilityType = "KOMUNITAS"
	FacilityTypeUnknown FacilityType = "LAINNYA"
)

// Facility is a surveyed mental-health service location.
type Facility struct {
	ID           uuid.UUID    `json:"id"`
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Type         FacilityType `json:"type"`
	Address      string       `json:"address,omitempty"`
	DistrictID   *string      `json:"district_id,omitempty"`
	DistrictName string       `json:"district_name,omitempty"`
	Desa         string       `json:"desa,omitempty"`
	Latitude     *float64     `json:"latitude,omitempty"`
	Longitude    *float64     `json:"longitude,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// FacilityRequest is the payload for registering or updating a facility.
type FacilityRequest struct {
	Code       string       `json:"code" binding:"required,max=32"`
	Name       string       `json:"name" binding:"required,min=3,max=255"`
	Type       FacilityType `json:"type" binding:"required,oneof=RSJ RSU PUSKESMAS KLINIK PRAKTIK_MANDIRI PANTI_REHABILITASI KOMUNITAS LAINNYA"`
	Address    string       `json:"address" binding:"omitempty,max=500"`
	DistrictID *string      `json:"district_id" binding:"omitempty,max=16"`
	Desa       string       `json:"desa" binding:"omitempty,max=255"`
	Latitude   *float64     `json:"latitude" binding:"omitempty,latitude"`
	Longitude  *float64     `json:"longitude" binding:"omitempty,longitude"`
	Phone      string       `json:"phone" binding:"omitempty,max=32"`
}

// FacilityFilter narrows a facility listing.
type FacilityFilter struct {
	Search     string
	Type       FacilityType
	DistrictID string
}
