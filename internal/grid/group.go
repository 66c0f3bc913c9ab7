package grid

import (
	"encoding/json"

	"github.com/gyaneshwarpardhi/eventstatus/internal/event"
)

// Related is an event sharing its parent's identifier.
type Related struct {
	Identifier  json.RawMessage `json:"Identifier"`
	ParentEvent json.RawMessage `json:"ParentEvent"`
}

// Row is one grid line: the first record seen for an identifier plus the rest.
type Row struct {
	Identifier    json.RawMessage `json:"Identifier"`
	ParentEvent   json.RawMessage `json:"ParentEvent"`
	RelatedEvents []Related       `json:"RelatedEvents"`
}

// Response is the envelope the grid widget expects.
type Response struct {
	Draw            string `json:"draw"`
	RecordsFiltered int    `json:"recordsFiltered"`
	RecordsTotal    int    `json:"recordsTotal"`
	Data            []Row  `json:"data"`
}

// Group folds records by identifier. Rows come out in first-seen order and
// related events keep the order they arrived in.
func Group(records []event.Record) []Row {
	rows := make([]Row, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		key := rec.Key()
		i, ok := index[key]
		if !ok {
			index[key] = len(rows)
			rows = append(rows, Row{
				Identifier:    rec.Identifier,
				ParentEvent:   rec.ParentEvent,
				RelatedEvents: []Related{},
			})
			continue
		}
		rows[i].RelatedEvents = append(rows[i].RelatedEvents, Related{
			Identifier:  rec.Identifier,
			ParentEvent: rec.ParentEvent,
		})
	}
	return rows
}

// NewResponse shapes an API page into the grid envelope.
func NewResponse(draw string, page *event.Page) Response {
	resp := Response{Draw: draw, Data: []Row{}}
	if page == nil {
		return resp
	}
	resp.RecordsTotal = page.TotalRecords
	resp.RecordsFiltered = page.TotalRecords
	resp.Data = Group(page.Data)
	return resp
}
