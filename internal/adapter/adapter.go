// Package adapter builds the closed set of provider invokers. The variant
// is chosen once from the provider's type at construction, never by
// re-inspecting strings per call.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/prospecta/leadengine/internal/provider"
	"github.com/prospecta/leadengine/internal/scrape"
	"github.com/prospecta/leadengine/internal/secrets"
)

const defaultInvokeTimeout = 30 * time.Second

// Factory constructs invokers for registry providers.
type Factory struct {
	client  *http.Client
	cipher  secrets.Cipher
	scraper *scrape.Engine
	logger  *zap.Logger
}

// NewFactory builds a Factory. The scraper engine serves SCRAPER providers
// in process; every other type is invoked over HTTP.
func NewFactory(client *http.Client, cipher secrets.Cipher, scraper *scrape.Engine, logger *zap.Logger) *Factory {
	if client == nil {
		client = &http.Client{Timeout: defaultInvokeTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{client: client, cipher: cipher, scraper: scraper, logger: logger}
}

// Adapter returns the invoker for a provider. Settings are parsed and
// validated here, once, so every Invoke call runs against typed config.
func (f *Factory) Adapter(p provider.Provider, m provider.OperationMapping) (provider.Invoker, error) {
	raw := p.Config
	if len(m.Config) > 0 {
		raw = m.Config
	}
	settings, err := provider.ParseSettings(p.ID, raw)
	if err != nil {
		return nil, err
	}

	switch p.Type {
	case provider.TypeScraper:
		if f.scraper == nil {
			return nil, fmt.Errorf("scrape engine is not configured")
		}
		return &ScraperAdapter{engine: f.scraper}, nil
	case provider.TypeAIEngine:
		inv, err := f.httpInvoker(p, settings)
		if err != nil {
			return nil, err
		}
		return &AIEngineAdapter{httpInvoker: inv}, nil
	case provider.TypeSiteAnalyzer:
		inv, err := f.httpInvoker(p, settings)
		if err != nil {
			return nil, err
		}
		return &SiteAnalyzerAdapter{httpInvoker: inv}, nil
	case provider.TypeContentAnalyzer:
		inv, err := f.httpInvoker(p, settings)
		if err != nil {
			return nil, err
		}
		return &ContentAnalyzerAdapter{httpInvoker: inv}, nil
	case provider.TypeKeywordExtractor:
		inv, err := f.httpInvoker(p, settings)
		if err != nil {
			return nil, err
		}
		return &KeywordExtractorAdapter{httpInvoker: inv}, nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", p.Type)
	}
}

func (f *Factory) httpInvoker(p provider.Provider, settings provider.Settings) (*httpInvoker, error) {
	if settings.Endpoint == "" {
		return nil, &provider.ConfigurationError{
			ProviderID: p.ID,
			Field:      "config.endpoint",
			Err:        fmt.Errorf("required for %s providers", p.Type),
		}
	}
	token := ""
	if settings.APIKey != "" {
		decrypted, err := f.cipher.Decrypt(settings.APIKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt credential for %s: %w", p.ID, err)
		}
		token = decrypted
	}
	timeout := defaultInvokeTimeout
	if settings.TimeoutSeconds > 0 {
		timeout = time.Duration(settings.TimeoutSeconds) * time.Second
	}
	return &httpInvoker{
		client:   f.client,
		endpoint: settings.Endpoint,
		model:    settings.Model,
		token:    token,
		timeout:  timeout,
		logger:   f.logger,
	}, nil
}

// AIEngineAdapter invokes an AI language engine endpoint.
type AIEngineAdapter struct{ *httpInvoker }

// SiteAnalyzerAdapter invokes a site analyzer endpoint.
type SiteAnalyzerAdapter struct{ *httpInvoker }

// ContentAnalyzerAdapter invokes a content analyzer endpoint.
type ContentAnalyzerAdapter struct{ *httpInvoker }

// KeywordExtractorAdapter invokes a keyword extraction endpoint.
type KeywordExtractorAdapter struct{ *httpInvoker }

// ScraperAdapter serves the web-scraping operation in process through the
// scraping engine instead of an external endpoint.
type ScraperAdapter struct {
	engine *scrape.Engine
}

// Invoke scrapes either a single "url" or a "urls" batch from the payload.
func (a *ScraperAdapter) Invoke(ctx context.Context, payload map[string]any) (map[string]any, error) {
	industry, _ := payload["industry"].(string)

	if rawURLs, ok := payload["urls"]; ok {
		urls, err := stringSlice(rawURLs)
		if err != nil {
			return nil, fmt.Errorf("payload urls: %w", err)
		}
		job, err := a.engine.ScrapeBatch(ctx, urls, industry)
		if err != nil {
			return nil, err
		}
		return map[string]any{"job": job}, nil
	}

	rawURL, ok := payload["url"].(string)
	if !ok || rawURL == "" {
		return nil, fmt.Errorf("payload requires url or urls")
	}
	result := a.engine.ScrapeURL(ctx, rawURL, industry)
	return map[string]any{"result": result}, nil
}

func stringSlice(v any) ([]string, error) {
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
}
