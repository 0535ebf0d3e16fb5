// Package remote sends documents to an external extraction API and turns its
// JSON responses into prompt units or tables.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/dgallion1/ragutil/internal/normalize"
	"github.com/dgallion1/ragutil/internal/textio"
	"github.com/dgallion1/ragutil/internal/unit"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const (
	DefaultUserAgent        = "rag-util/1.0"
	DefaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127 Safari/537.36"
	DefaultRedirectMaxHops  = 10
	DefaultMaxResponseBytes = 32 << 20

	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.9"
)

// Mode picks which text field of each response item becomes the body.
type Mode int

const (
	ModeItems Mode = iota
	ModeNotes
)

// ParseMode maps anything starting with n or N to ModeNotes.
func ParseMode(s string) Mode {
	if strings.HasPrefix(strings.ToLower(s), "n") {
		return ModeNotes
	}
	return ModeItems
}

// TextKey is the response field read for this mode.
func (m Mode) TextKey() string {
	if m == ModeNotes {
		return "notes_text"
	}
	return "items_text"
}

func (m Mode) String() string {
	if m == ModeNotes {
		return "notes"
	}
	return "items"
}

// Options configures NewClient. Zero values select the defaults.
type Options struct {
	Timeout          time.Duration // 0 means no client timeout
	RedirectMaxHops  int
	MaxResponseBytes int64
	UserAgent        string
	BrowserUserAgent string
	Recoveries       []Recovery
	FetchASCIIOnly   bool
	Stats            *Stats
}

// Client calls the extraction API. It is safe for concurrent use.
type Client struct {
	HTTPClient       *http.Client
	UserAgent        string
	BrowserUserAgent string
	MaxResponseBytes int64
	Recoveries       []Recovery
	FetchASCIIOnly   bool
	Stats            *Stats
	Log              zerolog.Logger
}

func NewClient(opts Options, log zerolog.Logger) *Client {
	hops := opts.RedirectMaxHops
	if hops <= 0 {
		hops = DefaultRedirectMaxHops
	}
	c := &Client{
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= hops {
					return fmt.Errorf("stopped after %d redirects", hops)
				}
				return nil
			},
		},
		UserAgent:        opts.UserAgent,
		BrowserUserAgent: opts.BrowserUserAgent,
		MaxResponseBytes: opts.MaxResponseBytes,
		Recoveries:       opts.Recoveries,
		FetchASCIIOnly:   opts.FetchASCIIOnly,
		Stats:            opts.Stats,
		Log:              log,
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.BrowserUserAgent == "" {
		c.BrowserUserAgent = DefaultBrowserUserAgent
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if c.Recoveries == nil {
		c.Recoveries = DefaultRecoveries
	}
	return c
}

// ExtractUnits posts the file as {"html": text} and maps each returned item
// with a non-empty string code and text field to a unit.
func (c *Client) ExtractUnits(ctx context.Context, endpoint, path string, mode Mode, headers map[string]string) ([]unit.PromptUnit, error) {
	text, err := textio.ReadLossy(path)
	if err != nil {
		return nil, err
	}

	v, err := c.post(ctx, "units", endpoint, map[string]string{"html": text}, c.UserAgent, headers)
	if err != nil {
		return nil, err
	}

	key := mode.TextKey()
	units := []unit.PromptUnit{}
	for _, item := range responseItems(v) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		code := strings.TrimSpace(stringField(obj, "code"))
		body := strings.TrimSpace(stringField(obj, key))
		if code == "" || body == "" {
			continue
		}
		units = append(units, unit.PromptUnit{ID: code, Body: body})
	}
	return units, nil
}

// responseItems accepts a root array, an items or notes array, or a lone
// object standing for one item.
func responseItems(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	if obj, ok := v.(map[string]any); ok {
		for _, k := range []string{"items", "notes"} {
			if arr, ok := obj[k].([]any); ok {
				return arr
			}
		}
	}
	return []any{v}
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// FetchTableFromFile posts the file as {"data": text} and normalizes the
// response into a table.
func (c *Client) FetchTableFromFile(ctx context.Context, endpoint, path string) (*unit.Table, error) {
	text, err := textio.ReadLossy(path)
	if err != nil {
		return nil, err
	}
	return c.table(ctx, endpoint, text)
}

// FetchTableFromURL downloads sourceURL like a browser, applies at most one
// recovery rule, then posts the page as {"data": text} and normalizes the
// response.
func (c *Client) FetchTableFromURL(ctx context.Context, endpoint, sourceURL string) (*unit.Table, error) {
	page, err := c.fetchPage(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	page, err = c.applyRecovery(ctx, sourceURL, page)
	if err != nil {
		return nil, err
	}
	return c.table(ctx, endpoint, page)
}

func (c *Client) table(ctx context.Context, endpoint, text string) (*unit.Table, error) {
	v, err := c.post(ctx, "table", endpoint, map[string]string{"data": text}, c.BrowserUserAgent, nil)
	if err != nil {
		return nil, err
	}
	table, err := normalize.Normalize(v)
	if err != nil {
		return nil, apperr.NoTableFound("fetch table", endpoint)
	}
	return table, nil
}

// post sends payload as JSON and decodes the 2xx response body.
func (c *Client) post(ctx context.Context, op, endpoint string, payload any, userAgent string, headers map[string]string) (v any, err error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(eris.Wrap(err, "create request"), apperr.KindInvalid, op, "invalid endpoint", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, val := range headers {
		req.Header.Set(k, val)
	}

	start := time.Now()
	defer func() {
		c.Stats.Record(op, time.Since(start).Milliseconds(), err != nil)
	}()

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, apperr.Wrap(eris.Wrap(err, "post"), apperr.KindNetwork, op, "POST failed", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.Log.Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("extraction API rejected request")
		return nil, apperr.New(apperr.KindNetwork, op, fmt.Sprintf("API error %s from %s", statusText(resp.StatusCode), endpoint), "")
	}

	raw, err := c.readBody(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindNetwork, op, "cannot read response", endpoint)
	}
	v, err = normalize.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindDecode, op, "cannot decode response", endpoint)
	}
	return v, nil
}

// fetchPage GETs rawURL with browser headers and returns the decoded body.
func (c *Client) fetchPage(ctx context.Context, rawURL string) (string, error) {
	status, page, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", apperr.New(apperr.KindNetwork, "fetch page", fmt.Sprintf("GET %s returned %s", rawURL, statusText(status)), "")
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", apperr.Wrap(eris.Wrap(err, "create request"), apperr.KindInvalid, "fetch page", "invalid URL", rawURL)
	}
	req.Header.Set("User-Agent", c.BrowserUserAgent)
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, "", apperr.Wrap(eris.Wrap(err, "get"), apperr.KindNetwork, "fetch page", "GET "+rawURL+" failed", "")
	}
	defer resp.Body.Close()

	raw, err := c.readBody(resp.Body)
	if err != nil {
		return 0, "", apperr.Wrap(err, apperr.KindNetwork, "fetch page", "GET "+rawURL+" failed", "")
	}
	if c.FetchASCIIOnly {
		return resp.StatusCode, textio.ASCIIOnly(raw), nil
	}
	return resp.StatusCode, textio.DecodeLossy(raw), nil
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	limit := c.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	if int64(len(raw)) > limit {
		return nil, eris.Errorf("response exceeds %d bytes", limit)
	}
	return raw, nil
}

func statusText(code int) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Recovery swaps one URL segment when a fetched page lacks the marker that
// real content carries, for sites that serve an app shell on some paths.
type Recovery struct {
	HostContains string `json:"hostContains" yaml:"host_contains"`
	Marker       string `json:"marker" yaml:"marker"`
	From         string `json:"from" yaml:"from"`
	To           string `json:"to" yaml:"to"`
}

// DefaultRecoveries retries eCFR point-in-time pages at the current version.
var DefaultRecoveries = []Recovery{
	{HostContains: "ecfr.gov", Marker: "flush-paragraph-2", From: "/on/", To: "/current/"},
}

func (r Recovery) applies(rawURL, page string) bool {
	if r.Marker == "" || r.From == "" || strings.Contains(page, r.Marker) {
		return false
	}
	if !strings.Contains(rawURL, r.From) {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Host, r.HostContains)
}

// applyRecovery tries the first applicable rule once. The alternate page is kept
// only when it succeeds and carries the marker.
func (c *Client) applyRecovery(ctx context.Context, rawURL, page string) (string, error) {
	for _, r := range c.Recoveries {
		if !r.applies(rawURL, page) {
			continue
		}
		alt := strings.Replace(rawURL, r.From, r.To, -1)
		status, altPage, err := c.get(ctx, alt)
		if err != nil {
			return "", err
		}
		if status >= 200 && status <= 299 && strings.Contains(altPage, r.Marker) {
			c.Log.Debug().Str("url", rawURL).Str("alternate", alt).Msg("recovered page from alternate URL")
			return altPage, nil
		}
		c.Log.Debug().Str("alternate", alt).Int("status", status).Msg("alternate URL did not help")
		return page, nil
	}
	return page, nil
}
