// Package parser turns raw transcript-page HTML into structured
// transcript data. All functions are pure: they never touch the network.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/internal/utils"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

const (
	// Pages shorter than this many words cannot be a real transcript and
	// fail parsing outright. Full-transcript plausibility is validated
	// later with a higher bar.
	minParseWords = 50
)

var (
	// Primary title shape: "Apple (AAPL) Q3 2025 Earnings Call Transcript"
	titleFullPattern = regexp.MustCompile(`^(.+?)\s*\(([A-Za-z.]{1,7})\)\s+Q([1-4])\s+(?:FY\s*)?(\d{4})`)
	// Degraded: ticker + quarter + year anywhere
	titleTickerPattern = regexp.MustCompile(`\(([A-Za-z.]{1,7})\)\s+Q([1-4])\s+(?:FY\s*)?(\d{4})`)
	// Last resort: quarter + year only
	titleQuarterPattern = regexp.MustCompile(`Q([1-4])\s+(?:FY\s*)?(\d{4})`)

	// URL path shape: /2025/07/30/apple-aapl-q3-2025-earnings-call-transcript
	urlTickerPattern = regexp.MustCompile(`-([a-z]{1,5})-q[1-4]-\d{4}`)

	// Date shapes scanned out of body text when no structured date exists.
	bodyDatePattern = regexp.MustCompile(`(?i)\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?\s+\d{1,2},?\s+\d{4}\b`)

	// Participant line shape: "Tim Cook -- Chief Executive Officer"
	participantPattern = regexp.MustCompile(`(?m)^\s*([A-Z][A-Za-z.'-]+(?:\s+[A-Z][A-Za-z.'-]+){1,3})\s*(?:--|–|—)\s*(.{3,80})\s*$`)
)

// titleSelectors is the fallback chain for the headline element.
var titleSelectors = []string{
	"h1.article-header",
	"header h1",
	"h1",
}

// contentSelectors is the fallback chain for the transcript body.
var contentSelectors = []string{
	"div.article-body",
	"div.tailwind-article-body",
	"div.transcript-content",
	"article .content",
	"article",
}

// strippedSelectors are removed from the content before text extraction.
var strippedSelectors = []string{
	"script", "style", "nav", "aside", "footer", "header",
	".paywall", ".subscribe-prompt", ".article-pitch", ".interad",
}

// Parse extracts structured transcript data from rendered page HTML.
// It returns errors (and nil data) when the page cannot plausibly be a
// transcript: no partial silent success.
func Parse(html, sourceURL string) (*transcript.Extracted, []error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, []error{fmt.Errorf("parsing HTML: %w", err)}
	}

	data := &transcript.Extracted{
		SourceURL:   sourceURL,
		RawHTML:     html,
		ExtractedAt: time.Now().UTC(),
	}

	data.Title = extractTitle(doc)
	data.SourceTitle = documentTitle(html)
	if data.Title == "" {
		data.Title = data.SourceTitle
	}

	applyTitlePatterns(data)
	if data.Ticker == "" {
		data.Ticker = tickerFromURL(sourceURL)
	}
	if data.Ticker == "" {
		data.Ticker = tickerFromPage(doc)
	}

	data.CallDate, data.CallTime = extractCallDate(doc, html)
	data.Content = extractContent(doc)
	data.WordCount = utils.CountWords(data.Content)
	data.Participants = extractParticipants(doc, data.Content)

	var errs []error
	if data.Content == "" {
		errs = append(errs, fmt.Errorf("no transcript content found at %s", sourceURL))
	} else if data.WordCount < minParseWords {
		errs = append(errs, fmt.Errorf("content implausibly short (%d words)", data.WordCount))
	}
	if data.CompanyName == "" && data.Ticker == "" {
		errs = append(errs, fmt.Errorf("could not determine company name or ticker"))
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return data, nil
}

func extractTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// applyTitlePatterns pulls company, ticker, quarter and fiscal year out of
// the page title, degrading gracefully through the pattern family.
func applyTitlePatterns(data *transcript.Extracted) {
	title := data.Title
	if title == "" {
		title = data.SourceTitle
	}
	if m := titleFullPattern.FindStringSubmatch(title); m != nil {
		data.CompanyName = strings.TrimSpace(m[1])
		data.Ticker = strings.ToUpper(m[2])
		data.Quarter = "Q" + m[3]
		data.FiscalYear, _ = strconv.Atoi(m[4])
		return
	}
	if m := titleTickerPattern.FindStringSubmatch(title); m != nil {
		data.Ticker = strings.ToUpper(m[1])
		data.Quarter = "Q" + m[2]
		data.FiscalYear, _ = strconv.Atoi(m[3])
		return
	}
	if m := titleQuarterPattern.FindStringSubmatch(title); m != nil {
		data.Quarter = "Q" + m[1]
		data.FiscalYear, _ = strconv.Atoi(m[2])
	}
}

func tickerFromURL(sourceURL string) string {
	if m := urlTickerPattern.FindStringSubmatch(strings.ToLower(sourceURL)); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

func tickerFromPage(doc *goquery.Document) string {
	if t, ok := doc.Find("[data-ticker]").First().Attr("data-ticker"); ok {
		return strings.ToUpper(strings.TrimSpace(t))
	}
	if t := strings.TrimSpace(doc.Find(".ticker-symbol").First().Text()); t != "" {
		return strings.ToUpper(strings.Trim(t, "()"))
	}
	return ""
}

// extractCallDate tries, in order: a dated element's machine-readable
// attribute, JSON-LD metadata, the element text, and finally a date-shaped
// scan of the body text. Returns the date string as found plus an optional
// time component from RFC 3339 attributes.
func extractCallDate(doc *goquery.Document, html string) (date, callTime string) {
	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok && dt != "" {
		if t, err := time.Parse(time.RFC3339, dt); err == nil {
			return t.Format("2006-01-02"), t.Format("15:04")
		}
		return dt, ""
	}

	if d := jsonLDDate(doc); d != "" {
		return d, ""
	}

	if txt := strings.TrimSpace(doc.Find("time").First().Text()); txt != "" {
		return txt, ""
	}

	if m := bodyDatePattern.FindString(doc.Find("body").Text()); m != "" {
		return m, ""
	}
	return "", ""
}

// jsonLDDate pulls datePublished (or dateCreated) out of any embedded
// application/ld+json blob.
func jsonLDDate(doc *goquery.Document) string {
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := s.Text()
		for _, key := range []string{"datePublished", "dateCreated"} {
			if v := gjson.Get(raw, key); v.Exists() && v.Str != "" {
				found = v.Str
				return false
			}
		}
		return true
	})
	return found
}

func extractContent(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		cleaned := node.Clone()
		cleaned.Find(strings.Join(strippedSelectors, ", ")).Remove()
		if text := strings.TrimSpace(cleaned.Text()); text != "" {
			return text
		}
	}

	// Paragraph-concatenation fallback for pages with no recognizable
	// content container.
	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

// extractParticipants reads the list following a "Call Participants"
// heading, falling back to a name-plus-title scan of the content text.
func extractParticipants(doc *goquery.Document, content string) []transcript.Participant {
	var out []transcript.Participant
	seen := make(map[string]struct{})

	add := func(name, role string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		out = append(out, transcript.Participant{Name: name, Role: strings.TrimSpace(role)})
	}

	doc.Find("h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(s.Text()), "call participants") {
			return true
		}
		list := s.NextFiltered("ul")
		if list.Length() == 0 {
			list = s.NextAllFiltered("ul").First()
		}
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			line := strings.TrimSpace(li.Text())
			if m := participantPattern.FindStringSubmatch(line); m != nil {
				add(m[1], m[2])
			} else if line != "" {
				add(line, "")
			}
		})
		// Some layouts list participants as sibling paragraphs instead.
		if list.Length() == 0 {
			s.NextAllFiltered("p").EachWithBreak(func(i int, p *goquery.Selection) bool {
				if i >= 20 {
					return false
				}
				if m := participantPattern.FindStringSubmatch(strings.TrimSpace(p.Text())); m != nil {
					add(m[1], m[2])
					return true
				}
				return i < 3
			})
		}
		return false
	})

	if len(out) == 0 {
		for _, m := range participantPattern.FindAllStringSubmatch(content, 30) {
			add(m[1], m[2])
		}
	}
	return out
}
