package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const transcriptScoreThreshold = 50

// brandMarkers identify the expected transcript source inside the page.
var brandMarkers = []string{
	"The Motley Fool",
	"fool.com",
}

// paywallSelectors are elements that only appear on gated pages.
var paywallSelectors = []string{
	".paywall",
	".premium-gate",
	"#subscription-wall",
	"[data-paywall]",
}

// paywallPhrases are subscription prompts seen in gated body text.
var paywallPhrases = []string{
	"subscribe to continue reading",
	"already a member? log in",
	"this content is for members only",
	"start your free trial to read",
	"premium content requires a subscription",
}

var (
	earningsTitlePattern = regexp.MustCompile(`(?i)earnings\s+call\s+transcript`)
	quarterYearPattern   = regexp.MustCompile(`(?i)\bQ[1-4]\s+(?:FY\s*)?\d{4}\b`)
	transcriptLinkShape  = regexp.MustCompile(`(?i)earnings-call-transcript|/call-transcripts/`)
)

// IsTranscriptPage scores structural markers of a transcript page and
// classifies at a fixed threshold. The contributing reasons are returned
// for diagnosability.
func IsTranscriptPage(htmlText string) (bool, int, []string) {
	score := 0
	var reasons []string

	lower := strings.ToLower(htmlText)
	for _, brand := range brandMarkers {
		if strings.Contains(lower, strings.ToLower(brand)) {
			score += 20
			reasons = append(reasons, "source brand present (+20)")
			break
		}
	}

	title := documentTitle(htmlText)
	if earningsTitlePattern.MatchString(title) {
		score += 30
		reasons = append(reasons, "earnings-call title (+30)")
	}
	if quarterYearPattern.MatchString(htmlText) {
		score += 20
		reasons = append(reasons, "quarter/year pattern (+20)")
	}
	if strings.Contains(lower, "call participants") {
		score += 15
		reasons = append(reasons, "call participants marker (+15)")
	}
	if strings.Contains(lower, "operator") {
		score += 10
		reasons = append(reasons, "operator mentions (+10)")
	}
	if len(strings.Fields(htmlText)) > 1500 {
		score += 5
		reasons = append(reasons, "sufficient body length (+5)")
	}

	reasons = append(reasons, fmt.Sprintf("score %d (threshold %d)", score, transcriptScoreThreshold))
	return score >= transcriptScoreThreshold, score, reasons
}

// DetectPaywall reports whether the page is gated. Paywalled fetches are
// terminal: retrying cannot fix missing authorization.
func DetectPaywall(htmlText string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err == nil {
		for _, sel := range paywallSelectors {
			if doc.Find(sel).Length() > 0 {
				return true
			}
		}
	}
	lower := strings.ToLower(htmlText)
	for _, phrase := range paywallPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ListingLinks returns hrefs on a listing page that look like individual
// transcript pages, in document order.
func ListingLinks(htmlText string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}
	var links []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !transcriptLinkShape.MatchString(href) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})
	return links
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

// documentTitle extracts the <title> text, tolerating broken markup.
func documentTitle(htmlText string) string {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return ""
	}
	title, _ := traverse(doc)
	return strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", " "), "\r", " "))
}
