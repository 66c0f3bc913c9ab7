package grid

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Defaults fill in parameters the grid widget left out.
type Defaults struct {
	PageSize      int
	SortColumn    string
	SortDirection string
}

// Request is a decoded grid data request.
type Request struct {
	Draw          string
	Start         int    `validate:"gte=0"`
	Length        int    `validate:"gte=1"`
	Search        string
	StartDate     string
	EndDate       string
	SortIndex     int    `validate:"gte=0"`
	SortColumn    string `validate:"required"`
	SortDirection string `validate:"oneof=asc desc"`
}

// ParseRequest reads the DataTables form fields. Missing fields take their
// defaults; present fields that do not parse are an error.
func ParseRequest(form url.Values, def Defaults) (Request, error) {
	req := Request{
		Draw:      valueOr(form, "draw", "0"),
		Search:    form.Get("search[value]"),
		StartDate: form.Get("startDate"),
		EndDate:   form.Get("endDate"),
	}

	var err error
	if req.Start, err = intOr(form, "start", 0); err != nil {
		return Request{}, err
	}
	if req.Length, err = intOr(form, "length", def.PageSize); err != nil {
		return Request{}, err
	}
	if req.SortIndex, err = intOr(form, "order[0][column]", 0); err != nil {
		return Request{}, err
	}
	// Unbound columns arrive with empty data; sort by the default instead.
	if req.SortColumn = form.Get(fmt.Sprintf("columns[%d][data]", req.SortIndex)); req.SortColumn == "" {
		req.SortColumn = def.SortColumn
	}
	req.SortDirection = strings.ToLower(valueOr(form, "order[0][dir]", def.SortDirection))

	if err := validate.Struct(req); err != nil {
		return Request{}, fmt.Errorf("invalid grid request: %w", err)
	}
	return req, nil
}

// PageNumber converts the row offset into a 1-based page index.
func (r Request) PageNumber() int {
	return r.Start/r.Length + 1
}

// Query builds the list-events query string. Search and date filters are only
// included when set.
func (r Request) Query() string {
	params := []string{
		"pageSize=" + strconv.Itoa(r.Length),
		"pageNumber=" + strconv.Itoa(r.PageNumber()),
		"sortColumn=" + escape(r.SortColumn),
		"sortDirection=" + escape(r.SortDirection),
	}
	if r.Search != "" {
		params = append(params, "searchTerm="+escape(r.Search))
	}
	if r.StartDate != "" {
		params = append(params, "startDate="+escape(r.StartDate))
	}
	if r.EndDate != "" {
		params = append(params, "endDate="+escape(r.EndDate))
	}
	return strings.Join(params, "&")
}

// escape percent-encodes s as a query value, spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func valueOr(form url.Values, key, fallback string) string {
	vs, ok := form[key]
	if !ok || len(vs) == 0 {
		return fallback
	}
	return vs[0]
}

func intOr(form url.Values, key string, fallback int) (int, error) {
	vs, ok := form[key]
	if !ok || len(vs) == 0 {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(vs[0]))
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, vs[0])
	}
	return n, nil
}
