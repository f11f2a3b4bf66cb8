// Package provider defines the core types shared by the routing and
// execution subsystems: configured providers, operation mappings, and the
// append-only usage ledger entries that drive quota accounting.
package provider

import (
	"encoding/json"
	"time"
)

// Type identifies the kind of external service a provider fronts.
type Type string

// Provider types persisted in the registry.
const (
	TypeAIEngine         Type = "AI_ENGINE"
	TypeScraper          Type = "SCRAPER"
	TypeSiteAnalyzer     Type = "SITE_ANALYZER"
	TypeContentAnalyzer  Type = "CONTENT_ANALYZER"
	TypeKeywordExtractor Type = "KEYWORD_EXTRACTOR"
)

// Operations routable through the selector.
const (
	OpAIDiscovery       = "AI_DISCOVERY"
	OpWebScraping       = "WEB_SCRAPING"
	OpSiteAnalysis      = "SITE_ANALYSIS"
	OpContentAnalysis   = "CONTENT_ANALYSIS"
	OpKeywordExtraction = "KEYWORD_EXTRACTION"
)

// ValidType reports whether t is a known provider type.
func ValidType(t Type) bool {
	switch t {
	case TypeAIEngine, TypeScraper, TypeSiteAnalyzer, TypeContentAnalyzer, TypeKeywordExtractor:
		return true
	default:
		return false
	}
}

// DefaultCapabilities returns the operations a provider type serves unless
// the registry entry declares an explicit capability set.
func DefaultCapabilities(t Type) []string {
	switch t {
	case TypeAIEngine:
		return []string{OpAIDiscovery, OpContentAnalysis}
	case TypeScraper:
		return []string{OpWebScraping}
	case TypeSiteAnalyzer:
		return []string{OpSiteAnalysis}
	case TypeContentAnalyzer:
		return []string{OpContentAnalysis}
	case TypeKeywordExtractor:
		return []string{OpKeywordExtraction}
	default:
		return nil
	}
}

// Provider is a configured external service endpoint able to serve one or
// more operations. Config and Limits are stored raw and parsed once at load
// via ParseSettings/ParseLimits.
type Provider struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         Type            `json:"type"`
	IsActive     bool            `json:"is_active"`
	Priority     int             `json:"priority"`
	Capabilities []string        `json:"capabilities"`
	Config       json.RawMessage `json:"config,omitempty"`
	Limits       json.RawMessage `json:"limits,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// HasCapability reports whether the provider declares the operation.
func (p Provider) HasCapability(operation string) bool {
	for _, c := range p.Capabilities {
		if c == operation {
			return true
		}
	}
	return false
}

// OperationMapping binds an abstract operation to a provider. Priority is
// duplicated from the owning provider and kept in step by the registry's
// sync operation rather than automatically.
type OperationMapping struct {
	Operation  string          `json:"operation"`
	ProviderID string          `json:"provider_id"`
	IsEnabled  bool            `json:"is_enabled"`
	Priority   int             `json:"priority"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// UsageRecord is appended once per provider invocation attempt and never
// mutated. It is the only input to quota accounting.
type UsageRecord struct {
	ProviderID   string        `json:"provider_id"`
	UserID       string        `json:"user_id,omitempty"`
	Operation    string        `json:"operation"`
	TokensUsed   int           `json:"tokens_used,omitempty"`
	Cost         float64       `json:"cost,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Success      bool          `json:"success"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}
