package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

// Session is the browser-automation host contract the fetcher drives.
// The default implementation renders nothing and talks plain HTTP; a
// headless-browser implementation can be swapped in behind this interface.
type Session interface {
	Launch() error
	// Navigate loads url and returns the page HTML together with the URL
	// the navigation ended up at after server-side redirects.
	Navigate(ctx context.Context, url string, timeout time.Duration) (html string, finalURL string, err error)
	Cookies(u *url.URL) []*http.Cookie
	SetCookies(u *url.URL, cookies []*http.Cookie)
	Close() error
}

// httpSession implements Session over a retrying HTTP client with a
// cookie jar and browser-like headers.
type httpSession struct {
	client *http.Client
	jar    http.CookieJar
}

// NewHTTPSession returns the default Session implementation.
func NewHTTPSession() Session {
	return &httpSession{}
}

func (s *httpSession) Launch() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("creating cookie jar: %w", err)
	}
	rc := retryablehttp.NewClient()
	rc.Logger = silentLogger
	rc.RetryMax = 2
	rc.RetryWaitMin = time.Second
	rc.RetryWaitMax = 3 * time.Second
	rc.HTTPClient.Jar = jar

	client := rc.StandardClient()
	client.Jar = jar
	s.client = client
	s.jar = jar
	return nil
}

func (s *httpSession) Navigate(ctx context.Context, pageURL string, timeout time.Duration) (string, string, error) {
	if s.client == nil {
		return "", "", fmt.Errorf("session not launched")
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(navCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("navigation to %s failed with status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("reading response body: %w", err)
	}
	return string(body), resp.Request.URL.String(), nil
}

func (s *httpSession) Cookies(u *url.URL) []*http.Cookie {
	if s.jar == nil {
		return nil
	}
	return s.jar.Cookies(u)
}

func (s *httpSession) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if s.jar == nil {
		return
	}
	s.jar.SetCookies(u, cookies)
}

func (s *httpSession) Close() error {
	s.client = nil
	s.jar = nil
	return nil
}

// persistedCookie is the on-disk shape of one session cookie.
type persistedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
	Secure  bool      `json:"secure,omitempty"`
}

// loadCookies reads persisted session cookies from path. Best-effort:
// absence or corruption is reported to the caller for logging but must
// not abort the fetch.
func loadCookies(path string) ([]*http.Cookie, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stored []persistedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("corrupt cookie file %s: %w", path, err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
			Secure:  c.Secure,
		})
	}
	return cookies, nil
}

// saveCookies writes session cookies to path as JSON.
func saveCookies(path string, cookies []*http.Cookie) error {
	stored := make([]persistedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, persistedCookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
			Secure:  c.Secure,
		})
	}
	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0600)
}

// silentLogger discards retryablehttp's internal chatter; the fetcher does
// its own logging.
var silentLogger = stdlog.New(io.Discard, "", 0)
