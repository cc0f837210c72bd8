// Package fetcher retrieves transcript pages from the source site under a
// sliding-window rate limit, with bounded retries, session recycling,
// paywall detection and at most one listing-page redirect hop.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/internal/utils"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/hashing"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/parser"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

const maxRedirectHops = 1

// ErrPaywalled marks a fetch that hit a subscription wall. Terminal:
// retrying cannot fix missing authorization.
var ErrPaywalled = errors.New("page is paywalled")

// ErrWrongDomain marks a URL outside the configured source domain.
var ErrWrongDomain = errors.New("url outside expected source domain")

// Config controls fetcher behavior. Zero values fall back to defaults.
type Config struct {
	SourceDomain          string
	RequestsPerMinute     int
	DailyLimit            int
	MaxRetries            int
	RetryDelay            time.Duration
	NavTimeout            time.Duration
	MaxRequestsPerSession int
	CookiePath            string
	HTMLCacheDir          string
}

// DefaultConfig returns conservative production settings.
func DefaultConfig() Config {
	return Config{
		SourceDomain:          "fool.com",
		RequestsPerMinute:     10,
		DailyLimit:            200,
		MaxRetries:            3,
		RetryDelay:            5 * time.Second,
		NavTimeout:            30 * time.Second,
		MaxRequestsPerSession: 50,
		CookiePath:            "",
		HTMLCacheDir:          "",
	}
}

// Fetcher drives a Session through rate-limited, retrying page loads.
// Not safe for concurrent FetchPage calls; the rate limiter it owns is.
type Fetcher struct {
	cfg     Config
	limiter *RateLimiter
	session Session

	served int
	sleep  func(ctx context.Context, d time.Duration) error
}

// New builds a Fetcher over the given session. A nil session gets the
// default HTTP-backed implementation.
func New(cfg Config, session Session) *Fetcher {
	def := DefaultConfig()
	if cfg.SourceDomain == "" {
		cfg.SourceDomain = def.SourceDomain
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.DailyLimit == 0 {
		cfg.DailyLimit = def.DailyLimit
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.NavTimeout == 0 {
		cfg.NavTimeout = def.NavTimeout
	}
	if cfg.MaxRequestsPerSession == 0 {
		cfg.MaxRequestsPerSession = def.MaxRequestsPerSession
	}
	if session == nil {
		session = NewHTTPSession()
	}
	return &Fetcher{
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.DailyLimit),
		session: session,
		sleep:   sleepCtx,
	}
}

// Launch starts the browser session and loads persisted cookies.
// Cookie problems are logged and ignored.
func (f *Fetcher) Launch() error {
	if err := f.session.Launch(); err != nil {
		return fmt.Errorf("launching session: %w", err)
	}
	f.served = 0
	f.restoreCookies()
	return nil
}

// Close tears down the browser session, persisting cookies first.
func (f *Fetcher) Close() error {
	f.persistCookies()
	return f.session.Close()
}

// FetchPage retrieves the transcript page at pageURL. It always returns a
// ScrapeResult; Success is false when the page could not be retrieved.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) *transcript.ScrapeResult {
	return f.fetchPage(ctx, pageURL, 0)
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string, hops int) *transcript.ScrapeResult {
	result := &transcript.ScrapeResult{}
	result.Timing.StartedAt = time.Now().UTC()
	defer func() {
		result.Timing.CompletedAt = time.Now().UTC()
		result.Timing.DurationMS = result.Timing.CompletedAt.Sub(result.Timing.StartedAt).Milliseconds()
	}()

	fail := func(err error) *transcript.ScrapeResult {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if err := f.validateSourceURL(pageURL); err != nil {
		// Wrong domain fails immediately, no retry.
		return fail(err)
	}

	if err := f.limiter.WaitForSlot(ctx); err != nil {
		return fail(fmt.Errorf("rate limiter: %w", err))
	}

	if f.served >= f.cfg.MaxRequestsPerSession {
		utils.Log.Debugf("Session served %d pages, recycling", f.served)
		if err := f.recycleSession(); err != nil {
			return fail(err)
		}
	}

	var (
		html    string
		lastErr error
	)
	for attempt := 0; attempt < f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			result.RetryCount++
			if err := f.sleep(ctx, f.cfg.RetryDelay); err != nil {
				return fail(err)
			}
		}

		body, finalURL, err := f.session.Navigate(ctx, pageURL, f.cfg.NavTimeout)
		if err != nil {
			lastErr = err
			utils.Log.Warnf("Navigation attempt %d for %s failed: %v", attempt+1, pageURL, err)
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			continue
		}
		f.served++

		if parser.DetectPaywall(body) {
			return fail(fmt.Errorf("%w: %s", ErrPaywalled, finalURL))
		}

		html = body
		pageURL = finalURL
		lastErr = nil
		break
	}
	if lastErr != nil {
		return fail(fmt.Errorf("all %d attempts failed, last error: %w", f.cfg.MaxRetries, lastErr))
	}

	// A listing page in place of a transcript page gets one redirect hop to
	// its first candidate link; a second listing page surfaces as-is so the
	// parser reports extraction errors instead of looping.
	if ok, score, reasons := parser.IsTranscriptPage(html); !ok && hops < maxRedirectHops {
		if links := parser.ListingLinks(html); len(links) > 0 {
			target := f.absoluteURL(pageURL, links[0])
			utils.Log.Infof("Listing page detected (score %d), following %s", score, target)
			result.Warnings = append(result.Warnings, fmt.Sprintf("followed listing redirect to %s", target))
			redirected := f.fetchPage(ctx, target, hops+1)
			redirected.Warnings = append(result.Warnings, redirected.Warnings...)
			redirected.RetryCount += result.RetryCount
			return redirected
		}
		utils.Log.Debugf("Page not classified as transcript: %v", reasons)
	}

	result.Success = true
	result.RawHTML = html
	result.RawHTMLHash = hashing.RawHash(html)

	f.cacheRawHTML(result.RawHTMLHash, html)
	f.persistCookies()
	return result
}

// validateSourceURL checks that pageURL belongs to the configured source
// domain, comparing registered domains so subdomains pass.
func (f *Fetcher) validateSourceURL(pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid url %q", pageURL)
	}
	got, err := publicsuffix.Domain(u.Hostname())
	if err != nil {
		return fmt.Errorf("resolving registered domain of %q: %w", u.Hostname(), err)
	}
	want, err := publicsuffix.Domain(f.cfg.SourceDomain)
	if err != nil {
		want = f.cfg.SourceDomain
	}
	if got != want {
		return fmt.Errorf("%w: got %s, want %s", ErrWrongDomain, got, want)
	}
	return nil
}

// recycleSession tears down and relaunches the browser, keeping cookies.
func (f *Fetcher) recycleSession() error {
	f.persistCookies()
	if err := f.session.Close(); err != nil {
		utils.Log.Warnf("Closing session for recycle: %v", err)
	}
	if err := f.session.Launch(); err != nil {
		return fmt.Errorf("relaunching session: %w", err)
	}
	f.served = 0
	f.restoreCookies()
	return nil
}

func (f *Fetcher) sourceURL() *url.URL {
	return &url.URL{Scheme: "https", Host: "www." + f.cfg.SourceDomain}
}

func (f *Fetcher) restoreCookies() {
	if f.cfg.CookiePath == "" {
		return
	}
	cookies, err := loadCookies(f.cfg.CookiePath)
	if err != nil {
		if !os.IsNotExist(err) {
			utils.Log.Warnf("Could not load session cookies: %v", err)
		}
		return
	}
	f.session.SetCookies(f.sourceURL(), cookies)
	utils.Log.Debugf("Restored %d session cookies", len(cookies))
}

func (f *Fetcher) persistCookies() {
	if f.cfg.CookiePath == "" {
		return
	}
	cookies := f.session.Cookies(f.sourceURL())
	if len(cookies) == 0 {
		return
	}
	if err := saveCookies(f.cfg.CookiePath, cookies); err != nil {
		utils.Log.Warnf("Could not persist session cookies: %v", err)
	}
}

// cacheRawHTML writes the fetched page to content-addressed storage.
func (f *Fetcher) cacheRawHTML(hash, html string) {
	if f.cfg.HTMLCacheDir == "" {
		return
	}
	if err := os.MkdirAll(f.cfg.HTMLCacheDir, 0755); err != nil {
		utils.Log.Warnf("Could not create HTML cache dir: %v", err)
		return
	}
	path := filepath.Join(f.cfg.HTMLCacheDir, hash+".html")
	if _, err := os.Stat(path); err == nil {
		return
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		utils.Log.Warnf("Could not cache raw HTML: %v", err)
	}
}

func (f *Fetcher) absoluteURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
