package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Settings is the typed form of a provider's opaque config blob. It is
// parsed and validated once when the registry loads the provider, never ad
// hoc at call sites.
type Settings struct {
	Endpoint       string          `json:"endpoint,omitempty"`
	Model          string          `json:"model,omitempty"`
	APIKey         string          `json:"api_key,omitempty"`
	TimeoutSeconds int             `json:"timeout_seconds,omitempty"`
	Scraping       *ScrapeSettings `json:"scraping,omitempty"`
}

// ScrapeSettings carries the scraper-specific sub-config.
type ScrapeSettings struct {
	DomainRequestsPerWindow int `json:"domain_requests_per_window,omitempty"`
	ChunkSize               int `json:"chunk_size,omitempty"`
	ChunkDelaySeconds       int `json:"chunk_delay_seconds,omitempty"`
}

// Limits holds the optional usage ceilings enforced by the quota guard.
type Limits struct {
	MonthlyQuota       *int     `json:"monthly_quota,omitempty"`
	ConcurrentRequests *int     `json:"concurrent_requests,omitempty"`
	CostPerRequest     *float64 `json:"cost_per_request,omitempty"`
}

// ParseSettings decodes and validates a raw config blob. A nil or empty blob
// yields zero settings; malformed input is a ConfigurationError.
func ParseSettings(providerID string, raw json.RawMessage) (Settings, error) {
	var s Settings
	if len(raw) == 0 {
		return s, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, &ConfigurationError{ProviderID: providerID, Field: "config", Err: err}
	}
	if s.TimeoutSeconds < 0 {
		return Settings{}, &ConfigurationError{
			ProviderID: providerID,
			Field:      "config.timeout_seconds",
			Err:        fmt.Errorf("must not be negative, got %d", s.TimeoutSeconds),
		}
	}
	return s, nil
}

// ParseLimits decodes and validates a raw limits blob. Malformed input is a
// ConfigurationError so callers fail closed rather than defaulting to
// "allowed".
func ParseLimits(providerID string, raw json.RawMessage) (Limits, error) {
	var l Limits
	if len(raw) == 0 {
		return l, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&l); err != nil {
		return Limits{}, &ConfigurationError{ProviderID: providerID, Field: "limits", Err: err}
	}
	if l.MonthlyQuota != nil && *l.MonthlyQuota < 0 {
		return Limits{}, &ConfigurationError{
			ProviderID: providerID,
			Field:      "limits.monthly_quota",
			Err:        fmt.Errorf("must not be negative, got %d", *l.MonthlyQuota),
		}
	}
	if l.ConcurrentRequests != nil && *l.ConcurrentRequests < 0 {
		return Limits{}, &ConfigurationError{
			ProviderID: providerID,
			Field:      "limits.concurrent_requests",
			Err:        fmt.Errorf("must not be negative, got %d", *l.ConcurrentRequests),
		}
	}
	if l.CostPerRequest != nil && *l.CostPerRequest < 0 {
		return Limits{}, &ConfigurationError{
			ProviderID: providerID,
			Field:      "limits.cost_per_request",
			Err:        fmt.Errorf("must not be negative, got %v", *l.CostPerRequest),
		}
	}
	return l, nil
}
