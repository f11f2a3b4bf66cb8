package scrape

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	// minContentLength is the threshold a content-area candidate must clear.
	minContentLength = 100
	// maxContentLength bounds extracted text.
	maxContentLength = 10000
)

// contentSelectors is the ordered list of content-area candidates. The full
// body is the last resort.
var contentSelectors = []string{
	"main",
	"article",
	"[role=main]",
	".main-content",
	"#content",
	".content",
	"#main",
	"body",
}

// companySelectors is the ordered candidate list for a company name.
var companySelectors = []string{
	"meta[property='og:site_name']",
	"[itemprop=name]",
	".company-name",
	".site-title",
	"header .logo img",
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\s().\-]{7,18}[0-9]`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Extract runs the extraction pipeline over fetched markup: content-area
// text, page metadata, and structured entity data.
func Extract(body []byte, headers http.Header, industry string) (string, Metadata, Structured, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", Metadata{}, Structured{}, fmt.Errorf("parse markup: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	content := extractContent(doc)
	md := extractMetadata(doc, headers)
	sd := extractStructured(doc, industry)
	return content, md, sd, nil
}

func extractContent(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := normalizeWhitespace(node.Text())
		if len(text) > minContentLength {
			return truncate(text, maxContentLength)
		}
	}
	return ""
}

func extractMetadata(doc *goquery.Document, headers http.Header) Metadata {
	md := Metadata{}

	md.Title = normalizeWhitespace(doc.Find("title").First().Text())
	if md.Title == "" {
		md.Title = normalizeWhitespace(doc.Find("h1").First().Text())
	}
	md.Description = strings.TrimSpace(metaContent(doc, "meta[name=description]"))

	if raw := metaContent(doc, "meta[name=keywords]"); raw != "" {
		for _, kw := range strings.Split(raw, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				md.Keywords = append(md.Keywords, kw)
			}
		}
	}

	if lang, ok := doc.Find("html").Attr("lang"); ok {
		md.Language = strings.TrimSpace(lang)
	}

	md.LastModified = headers.Get("Last-Modified")
	if md.LastModified == "" {
		md.LastModified = metaContent(doc, "meta[http-equiv=last-modified]")
	}
	return md
}

func extractStructured(doc *goquery.Document, industry string) Structured {
	sd := Structured{}

	for _, sel := range companySelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		name := strings.TrimSpace(node.AttrOr("content", ""))
		if name == "" {
			name = strings.TrimSpace(node.AttrOr("alt", ""))
		}
		if name == "" {
			name = normalizeWhitespace(node.Text())
		}
		if name != "" {
			sd.CompanyName = name
			break
		}
	}

	pageText := doc.Text()
	sd.Emails = dedupe(emailPattern.FindAllString(pageText, -1))
	sd.Phones = dedupe(cleanPhones(phonePattern.FindAllString(pageText, -1)))

	lowered := strings.ToLower(pageText)
	sd.Technologies = matchTags(lowered, technologyTags(industry))
	sd.Certifications = matchTags(lowered, certificationTags(industry))
	return sd
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return content
}

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back off to a rune boundary so a multi-byte character is never
	// split at the cut point.
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func cleanPhones(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		trimmed := strings.TrimSpace(p)
		if countDigits(trimmed) >= 8 {
			out = append(out, trimmed)
		}
	}
	return out
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func matchTags(loweredText string, tags []industryTag) []string {
	var out []string
	for _, tag := range tags {
		for _, pattern := range tag.patterns {
			if strings.Contains(loweredText, pattern) {
				out = append(out, tag.name)
				break
			}
		}
	}
	return out
}
