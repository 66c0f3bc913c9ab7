package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/eventstatus/internal/config"
	"github.com/gyaneshwarpardhi/eventstatus/internal/event"
	"github.com/gyaneshwarpardhi/eventstatus/internal/eventsapi"
)

// fakeEvents records calls and returns canned answers.
type fakeEvents struct {
	baseURL   string
	page      *event.Page
	listErr   error
	deleteErr error

	queries []string
	deleted []uuid.UUID
}

func (f *fakeEvents) BaseURL() string { return f.baseURL }

func (f *fakeEvents) ListEvents(_ context.Context, query string) (*event.Page, error) {
	f.queries = append(f.queries, query)
	return f.page, f.listErr
}

func (f *fakeEvents) DeleteEvent(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func newLoader(t *testing.T, body string) (*config.Loader, string) {
	t.Helper()
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	return l, path
}

const testConfig = "version: v1\nupstream:\n  base_url: http://events.test\ngrid:\n  default_page_size: 25\n"

func newTestHandler(t *testing.T, fe *fakeEvents) http.Handler {
	t.Helper()
	l, _ := newLoader(t, testConfig)
	return New(fe, l)
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestGetData(t *testing.T) {
	fe := &fakeEvents{page: &event.Page{
		Data: []event.Record{
			{Identifier: json.RawMessage(`"a"`), ParentEvent: json.RawMessage(`{"Title":"one"}`)},
			{Identifier: json.RawMessage(`"a"`), ParentEvent: json.RawMessage(`{"Title":"two"}`)},
			{Identifier: json.RawMessage(`"b"`), ParentEvent: json.RawMessage(`{"Title":"three"}`)},
		},
		TotalRecords: 31,
	}}
	h := newTestHandler(t, fe)

	rec := postForm(h, "/status/getdata", url.Values{
		"draw":             {"5"},
		"start":            {"20"},
		"length":           {"10"},
		"search[value]":    {""},
		"order[0][column]": {"1"},
		"order[0][dir]":    {"desc"},
		"columns[1][data]": {"ParentEvent.Title"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if len(fe.queries) != 1 {
		t.Fatalf("ListEvents called %d times", len(fe.queries))
	}
	wantQuery := "pageSize=10&pageNumber=3&sortColumn=ParentEvent.Title&sortDirection=desc"
	if fe.queries[0] != wantQuery {
		t.Errorf("query = %q, want %q", fe.queries[0], wantQuery)
	}

	body := decode(t, rec)
	if body["draw"] != "5" || body["recordsTotal"] != float64(31) || body["recordsFiltered"] != float64(31) {
		t.Errorf("unexpected envelope: %v", body)
	}
	rows := body["data"].([]interface{})
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	first := rows[0].(map[string]interface{})
	if first["Identifier"] != "a" || len(first["RelatedEvents"].([]interface{})) != 1 {
		t.Errorf("unexpected first row: %v", first)
	}
}

func TestGetDataUsesConfiguredDefaults(t *testing.T) {
	fe := &fakeEvents{page: &event.Page{}}
	h := newTestHandler(t, fe)

	rec := postForm(h, "/status/getdata", url.Values{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	want := "pageSize=25&pageNumber=1&sortColumn=ParentEvent.Title&sortDirection=asc"
	if fe.queries[0] != want {
		t.Errorf("query = %q, want %q", fe.queries[0], want)
	}
	if body := decode(t, rec); body["draw"] != "0" {
		t.Errorf("draw = %v, want \"0\"", body["draw"])
	}
}

func TestGetDataFailuresReturn500(t *testing.T) {
	tests := []struct {
		name     string
		fe       *fakeEvents
		form     url.Values
		wantCall bool
	}{
		{
			name:     "upstream status",
			fe:       &fakeEvents{listErr: &eventsapi.StatusError{StatusCode: 503, Body: "maintenance"}},
			form:     url.Values{"start": {"0"}, "length": {"10"}},
			wantCall: true,
		},
		{
			name:     "network",
			fe:       &fakeEvents{listErr: errors.New("dial tcp: connection refused")},
			form:     url.Values{},
			wantCall: true,
		},
		{
			name: "malformed start",
			fe:   &fakeEvents{},
			form: url.Values{"start": {"twenty"}},
		},
		{
			name: "zero length",
			fe:   &fakeEvents{},
			form: url.Values{"length": {"0"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postForm(newTestHandler(t, tc.fe), "/status/getdata", tc.form)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			if msg, _ := decode(t, rec)["error"].(string); msg == "" {
				t.Errorf("missing error field: %s", rec.Body)
			}
			if called := len(tc.fe.queries) > 0; called != tc.wantCall {
				t.Errorf("ListEvents called = %v, want %v", called, tc.wantCall)
			}
		})
	}
}

func TestDeleteEvent(t *testing.T) {
	id := uuid.MustParse("0b6f7d0e-52b1-4d4c-a7b4-77f3f0b1d9e2")

	tests := []struct {
		name        string
		eventID     string
		deleteErr   error
		wantSuccess bool
		wantMessage string
		wantCall    bool
	}{
		{name: "ok", eventID: id.String(), wantSuccess: true, wantCall: true},
		{name: "uppercase braces", eventID: "{" + strings.ToUpper(id.String()) + "}", wantSuccess: true, wantCall: true},
		{name: "malformed", eventID: "not-a-guid", wantMessage: "Invalid EventId."},
		{name: "empty", eventID: "", wantMessage: "Invalid EventId."},
		{
			name:        "remote refusal",
			eventID:     id.String(),
			deleteErr:   &eventsapi.StatusError{StatusCode: 404, Body: "Event not found"},
			wantMessage: "Event not found",
			wantCall:    true,
		},
		{
			name:        "transport failure",
			eventID:     id.String(),
			deleteErr:   errors.New("delete_event: connection reset"),
			wantMessage: "delete_event: connection reset",
			wantCall:    true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fe := &fakeEvents{deleteErr: tc.deleteErr}
			rec := postForm(newTestHandler(t, fe), "/status/deleteevent", url.Values{"eventId": {tc.eventID}})
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := decode(t, rec)
			if body["success"] != tc.wantSuccess {
				t.Errorf("success = %v, want %v", body["success"], tc.wantSuccess)
			}
			if msg, _ := body["message"].(string); msg != tc.wantMessage {
				t.Errorf("message = %q, want %q", msg, tc.wantMessage)
			}
			if called := len(fe.deleted) > 0; called != tc.wantCall {
				t.Fatalf("DeleteEvent called = %v, want %v", called, tc.wantCall)
			}
			if tc.wantCall && fe.deleted[0] != id {
				t.Errorf("deleted %s, want %s", fe.deleted[0], id)
			}
		})
	}
}

func TestStatusPageRendersBaseURL(t *testing.T) {
	h := newTestHandler(t, &fakeEvents{baseURL: "http://events.test"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `data-base-url="http://events.test"`) {
		t.Errorf("page does not carry base url:\n%s", rec.Body)
	}
}

func TestRootRedirects(t *testing.T) {
	h := newTestHandler(t, &fakeEvents{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/status" {
		t.Errorf("got %d -> %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestReloadConfig(t *testing.T) {
	l, path := newLoader(t, testConfig)
	client := eventsapi.New(l.Config().Upstream.BaseURL, 0)
	l.OnChange(func(c *config.Config) { client.SetBaseURL(c.Upstream.BaseURL) })
	h := New(client, l)

	if err := os.WriteFile(path, []byte("version: v2\nupstream:\n  base_url: http://moved.test\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	rec := postForm(h, "/admin/config/reload", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if client.BaseURL() != "http://moved.test" {
		t.Errorf("client base url = %q", client.BaseURL())
	}

	if err := os.WriteFile(path, []byte("version: v3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	rec = postForm(h, "/admin/config/reload", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid reload status = %d", rec.Code)
	}
	if client.BaseURL() != "http://moved.test" {
		t.Errorf("invalid reload changed base url to %q", client.BaseURL())
	}
}

func TestProbes(t *testing.T) {
	tests := []struct {
		path    string
		baseURL string
		want    int
	}{
		{"/healthz", "", http.StatusOK},
		{"/readyz", "http://events.test", http.StatusOK},
		{"/readyz", "", http.StatusServiceUnavailable},
		{"/metrics", "", http.StatusOK},
	}
	for _, tc := range tests {
		h := newTestHandler(t, &fakeEvents{baseURL: tc.baseURL})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("%s (base %q) = %d, want %d", tc.path, tc.baseURL, rec.Code, tc.want)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestHandler(t, &fakeEvents{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if _, err := uuid.Parse(rec.Header().Get(requestIDHeader)); err != nil {
		t.Errorf("generated request id %q is not a uuid", rec.Header().Get(requestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestGetDataAgainstUpstream(t *testing.T) {
	var gotQuery url.Values
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/getevents" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"Data":[{"Identifier":"x","ParentEvent":{"Title":"t"}}],"TotalRecords":1}`))
	}))
	defer upstream.Close()

	l, _ := newLoader(t, testConfig)
	h := New(eventsapi.New(upstream.URL, 0), l)

	rec := postForm(h, "/status/getdata", url.Values{
		"draw":          {"1"},
		"search[value]": {"disk full"},
		"startDate":     {"2024-05-01"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if gotQuery.Get("searchTerm") != "disk full" || gotQuery.Get("startDate") != "2024-05-01" {
		t.Errorf("upstream query = %v", gotQuery)
	}
	if gotQuery.Has("endDate") {
		t.Errorf("empty endDate was forwarded: %v", gotQuery)
	}
}
