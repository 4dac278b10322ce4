package model

// DashboardData consolidates all metrics for the admin dashboard.
type DashboardData struct {
	TotalFacilities      int                     `json:"total_facilities"`
	TotalTemplates       int                     `json:"total_templates"`
	TotalResponses       int                     `json:"total_responses"`
	TotalSurveyors       int                     `json:"total_surveyors"`
	ResponseStatusCounts map[string]int          `json:"response_status_counts"`
	FacilityTypeCounts   map[FacilityType]int    `json:"facility_type_counts"`
	DistrictCoverage     []DistrictCoverage      `json:"district_coverage"`
	RecentResponses      []SurveyResponseSummary `json:"recent_responses"`
}

// DistrictCoverage counts facilities and submitted surveys per kecamatan.
type DistrictCoverage struct {
	DistrictID    string `json:"district_id"`
	DistrictName  string `json:"district_name"`
	Facilities    int    `json:"facilities"`
	SurveyedCount int    `json:"surveyed_count"`
}
