package config

import (
	"fmt"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding the JTI of a user's active login.
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// TemplateDefinitionKey returns the cache key for a published template definition.
func (r *CacheKeyStruct) TemplateDefinitionKey(templateID string) string {
	return fmt.Sprintf("template:%s:definition", templateID)
}

// PublishedTemplatesKey returns the cache key for the set of published template IDs.
func (r *CacheKeyStruct) PublishedTemplatesKey() string {
	return "template:published"
}

// DistrictsKey returns the cache key for the kecamatan list of a kabupaten.
func (r *CacheKeyStruct) DistrictsKey(kabupaten string) string {
	return fmt.Sprintf("region:%s:districts", strings.ToLower(strings.ReplaceAll(kabupaten, " ", "_")))
}

// SurveyAnswersKey returns the cache key for the live answers of a survey response.
func (r *CacheKeyStruct) SurveyAnswersKey(responseID string) string {
	return fmt.Sprintf("survey:%s:answers", responseID)
}

// SurveyLockKey returns the cache key that marks a survey as open on one device.
func (r *CacheKeyStruct) SurveyLockKey(responseID string) string {
	return fmt.Sprintf("survey:%s:lock", responseID)
}

// SurveyMonitorChannel returns the Redis PubSub channel for live survey progress
// of a template.
func (r *CacheKeyStruct) SurveyMonitorChannel(templateID string) string {
	return fmt.Sprintf("template:%s:monitor", templateID)
}

var CacheKey = NewCacheKeyStruct()
