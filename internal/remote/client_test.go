package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/rs/zerolog"
)

func newTestClient(recoveries ...Recovery) *Client {
	return NewClient(Options{
		Recoveries: recoveries,
		Stats:      NewStats(time.Hour),
	}, zerolog.Nop())
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.html")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// jsonEndpoint records the decoded request body and answers with resp.
func jsonEndpoint(t *testing.T, status int, resp string, got *map[string]string, hdr *http.Header) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got != nil {
			json.NewDecoder(r.Body).Decode(got)
		}
		if hdr != nil {
			*hdr = r.Header.Clone()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractUnits_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		resp string
		mode Mode
		want string
	}{
		{"root array", `[{"code":"A","items_text":" one "},{"code":"","items_text":"x"},{"code":"B","items_text":"  "}]`, ModeItems, "A=one"},
		{"items key", `{"items":[{"code":"A","items_text":"one","notes_text":"n1"}]}`, ModeNotes, "A=n1"},
		{"notes key", `{"notes":[{"code":"N1","notes_text":"note"}]}`, ModeNotes, "N1=note"},
		{"bare object", `{"code":"solo","items_text":"alone"}`, ModeItems, "solo=alone"},
		{"non-string code skipped", `[{"code":7,"items_text":"x"},{"code":"ok","items_text":"y"}]`, ModeItems, "ok=y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonEndpoint(t, http.StatusOK, tt.resp, nil, nil)
			c := newTestClient()

			units, err := c.ExtractUnits(t.Context(), srv.URL, writeSource(t, "<p>doc</p>"), tt.mode, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var got []string
			for _, u := range units {
				got = append(got, u.ID+"="+u.Body)
			}
			if strings.Join(got, "|") != tt.want {
				t.Errorf("got %q; want %q", strings.Join(got, "|"), tt.want)
			}
		})
	}
}

func TestExtractUnits_SendsHTMLAndHeaders(t *testing.T) {
	var body map[string]string
	var hdr http.Header
	srv := jsonEndpoint(t, http.StatusOK, `[]`, &body, &hdr)
	c := newTestClient()

	path := writeSource(t, "bad \xff byte")
	_, err := c.ExtractUnits(t.Context(), srv.URL, path, ParseMode("items"), map[string]string{"X-Api-Key": "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["html"] != "bad � byte" {
		t.Errorf("expected lossily decoded html, got %q", body["html"])
	}
	if hdr.Get("User-Agent") != DefaultUserAgent {
		t.Errorf("unexpected user agent %q", hdr.Get("User-Agent"))
	}
	if hdr.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content type %q", hdr.Get("Content-Type"))
	}
	if hdr.Get("X-Api-Key") != "k" {
		t.Errorf("caller header not forwarded: %v", hdr)
	}
	if c.Stats.Snapshot().Count != 1 {
		t.Errorf("expected one recorded call")
	}
}

func TestExtractUnits_Errors(t *testing.T) {
	c := newTestClient()

	_, err := c.ExtractUnits(t.Context(), "http://unused", filepath.Join(t.TempDir(), "missing"), ModeItems, nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not-found for missing file, got %v", err)
	}

	srv := jsonEndpoint(t, http.StatusBadGateway, `oops`, nil, nil)
	_, err = c.ExtractUnits(t.Context(), srv.URL, writeSource(t, "x"), ModeItems, nil)
	if !apperr.Is(err, apperr.KindNetwork) || !strings.Contains(err.Error(), "API error 502") || !strings.Contains(err.Error(), srv.URL) {
		t.Errorf("expected API error naming status and endpoint, got %v", err)
	}

	srv = jsonEndpoint(t, http.StatusOK, `not json`, nil, nil)
	_, err = c.ExtractUnits(t.Context(), srv.URL, writeSource(t, "x"), ModeItems, nil)
	if !apperr.Is(err, apperr.KindDecode) {
		t.Errorf("expected decode error, got %v", err)
	}

	if snap := c.Stats.Snapshot(); snap.Count != 2 || snap.Errors != 2 {
		t.Errorf("expected two failed calls recorded, got %+v", snap)
	}
}

func TestFetchTableFromFile(t *testing.T) {
	var body map[string]string
	var hdr http.Header
	srv := jsonEndpoint(t, http.StatusOK, `{"rows":[{"a":1,"b":true},{"a":2}]}`, &body, &hdr)
	c := newTestClient()

	table, err := c.FetchTableFromFile(t.Context(), srv.URL, writeSource(t, "<table></table>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["data"] != "<table></table>" {
		t.Errorf("expected data field, got %v", body)
	}
	if hdr.Get("User-Agent") != DefaultBrowserUserAgent {
		t.Errorf("expected browser user agent, got %q", hdr.Get("User-Agent"))
	}
	if strings.Join(table.Columns, ",") != "a,b" || table.Rows[1]["b"] != "" || table.Rows[0]["b"] != "true" {
		t.Errorf("unexpected table %+v", table)
	}
}

func TestFetchTableFromFile_NoTable(t *testing.T) {
	srv := jsonEndpoint(t, http.StatusOK, `{"message":"nothing"}`, nil, nil)
	_, err := newTestClient().FetchTableFromFile(t.Context(), srv.URL, writeSource(t, "x"))
	if !apperr.Is(err, apperr.KindNoTableFound) {
		t.Fatalf("expected no-table error, got %v", err)
	}
}

// site serves pages for FetchTableFromURL tests and counts GETs per path.
type site struct {
	pages map[string]string
	codes map[string]int
	hits  atomic.Int32
	hdr   http.Header
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	s.hdr = r.Header.Clone()
	if code, ok := s.codes[r.URL.Path]; ok {
		w.WriteHeader(code)
		return
	}
	page, ok := s.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	io.WriteString(w, page)
}

func TestFetchTableFromURL_PostsFetchedPage(t *testing.T) {
	pages := &site{pages: map[string]string{"/doc": "<p>content</p>"}}
	src := httptest.NewServer(pages)
	defer src.Close()

	var body map[string]string
	api := jsonEndpoint(t, http.StatusOK, `[{"k":"v"}]`, &body, nil)

	table, err := newTestClient().FetchTableFromURL(t.Context(), api.URL, src.URL+"/doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["data"] != "<p>content</p>" {
		t.Errorf("expected fetched page posted, got %v", body)
	}
	if len(table.Rows) != 1 || table.Rows[0]["k"] != "v" {
		t.Errorf("unexpected table %+v", table)
	}
	if pages.hdr.Get("User-Agent") != DefaultBrowserUserAgent || pages.hdr.Get("Accept-Language") != acceptLanguage || pages.hdr.Get("Accept") != acceptHTML {
		t.Errorf("missing browser headers: %v", pages.hdr)
	}
}

func TestFetchTableFromURL_GetErrors(t *testing.T) {
	pages := &site{codes: map[string]int{"/gone": http.StatusGone}}
	src := httptest.NewServer(pages)
	defer src.Close()
	api := jsonEndpoint(t, http.StatusOK, `[]`, nil, nil)
	c := newTestClient()

	_, err := c.FetchTableFromURL(t.Context(), api.URL, src.URL+"/gone")
	if !apperr.Is(err, apperr.KindNetwork) || !strings.Contains(err.Error(), "returned 410") {
		t.Errorf("expected status error, got %v", err)
	}

	_, err = c.FetchTableFromURL(t.Context(), api.URL, "http://127.0.0.1:1/unreachable")
	if !apperr.Is(err, apperr.KindNetwork) || !strings.Contains(err.Error(), "failed") {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestFetchTableFromURL_Recovery(t *testing.T) {
	tests := []struct {
		name     string
		pages    map[string]string
		codes    map[string]int
		path     string
		wantData string
		wantHits int32
	}{
		{
			name:     "alternate adopted",
			pages:    map[string]string{"/on/2020/x": "shell", "/current/2020/x": `<p class="flush-paragraph-2">real</p>`},
			path:     "/on/2020/x",
			wantData: `<p class="flush-paragraph-2">real</p>`,
			wantHits: 2,
		},
		{
			name:     "alternate lacks marker",
			pages:    map[string]string{"/on/x": "shell", "/current/x": "still shell"},
			path:     "/on/x",
			wantData: "shell",
			wantHits: 2,
		},
		{
			name:     "alternate fails",
			pages:    map[string]string{"/on/x": "shell"},
			codes:    map[string]int{"/current/x": http.StatusInternalServerError},
			path:     "/on/x",
			wantData: "shell",
			wantHits: 2,
		},
		{
			name:     "marker already present",
			pages:    map[string]string{"/on/x": "flush-paragraph-2"},
			path:     "/on/x",
			wantData: "flush-paragraph-2",
			wantHits: 1,
		},
		{
			name:     "path segment absent",
			pages:    map[string]string{"/x": "shell"},
			path:     "/x",
			wantData: "shell",
			wantHits: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := &site{pages: tt.pages, codes: tt.codes}
			src := httptest.NewServer(pages)
			defer src.Close()

			var body map[string]string
			api := jsonEndpoint(t, http.StatusOK, `[{"k":"v"}]`, &body, nil)
			c := newTestClient(Recovery{HostContains: "127.0.0.1", Marker: "flush-paragraph-2", From: "/on/", To: "/current/"})
			c.Stats = nil

			if _, err := c.FetchTableFromURL(t.Context(), api.URL, src.URL+tt.path); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if body["data"] != tt.wantData {
				t.Errorf("posted %q; want %q", body["data"], tt.wantData)
			}
			if got := pages.hits.Load(); got != tt.wantHits {
				t.Errorf("GET count = %d; want %d", got, tt.wantHits)
			}
		})
	}
}

func TestFetchTableFromURL_DefaultRecoveryIgnoresOtherHosts(t *testing.T) {
	pages := &site{pages: map[string]string{"/on/x": "shell"}}
	src := httptest.NewServer(pages)
	defer src.Close()
	api := jsonEndpoint(t, http.StatusOK, `[{"k":"v"}]`, nil, nil)

	if _, err := newTestClient().FetchTableFromURL(t.Context(), api.URL, src.URL+"/on/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pages.hits.Load(); got != 1 {
		t.Errorf("expected no recovery attempt, got %d GETs", got)
	}
}

func TestFetchTableFromURL_ASCIIOnly(t *testing.T) {
	pages := &site{pages: map[string]string{"/p": "caf\xc3\xa9\x01!"}}
	src := httptest.NewServer(pages)
	defer src.Close()

	var body map[string]string
	api := jsonEndpoint(t, http.StatusOK, `[{"k":"v"}]`, &body, nil)
	c := newTestClient()
	c.FetchASCIIOnly = true

	if _, err := c.FetchTableFromURL(t.Context(), api.URL, src.URL+"/p"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["data"] != "caf!" {
		t.Errorf("expected ASCII-filtered page, got %q", body["data"])
	}
}

func TestClient_RedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, fmt.Sprintf("%s/loop", srv.URL), http.StatusFound)
	}))
	defer srv.Close()

	c := NewClient(Options{RedirectMaxHops: 3}, zerolog.Nop())
	_, err := c.FetchTableFromURL(t.Context(), "http://unused", srv.URL)
	if !apperr.Is(err, apperr.KindNetwork) {
		t.Fatalf("expected network error after redirect limit, got %v", err)
	}
}

func TestClient_ResponseLimit(t *testing.T) {
	pages := &site{pages: map[string]string{"/big": strings.Repeat("x", 64)}}
	src := httptest.NewServer(pages)
	defer src.Close()

	c := NewClient(Options{MaxResponseBytes: 16}, zerolog.Nop())
	_, err := c.FetchTableFromURL(t.Context(), "http://unused", src.URL+"/big")
	if !apperr.Is(err, apperr.KindNetwork) {
		t.Fatalf("expected network error for oversized page, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{"notes": ModeNotes, "N": ModeNotes, "items": ModeItems, "": ModeItems, "x": ModeItems}
	for in, want := range tests {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %v; want %v", in, got, want)
		}
	}
	if ModeNotes.TextKey() != "notes_text" || ModeItems.TextKey() != "items_text" {
		t.Error("unexpected text keys")
	}
}
