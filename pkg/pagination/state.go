package pagination

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/table-scroll/pkg/target"
)

// Response headers carrying paging metadata.
const (
	HeaderHasMorePages = "X-Has-More-Pages"
	HeaderPagingState  = "X-Paging-State"
)

// Query parameters of a fetch request.
const (
	ParamLimit       = "limit"
	ParamPagingState = "paging_state"
)

const (
	// DefaultPageSize is the number of rows requested per fetch until the
	// page-size selector changes it.
	DefaultPageSize = 50

	// DefaultScrollThreshold is the distance from the bottom of the scroll
	// container below which more rows are requested.
	DefaultScrollThreshold = 200
)

// State is a snapshot of the controller's paging state.
type State struct {
	// IsLoading is true while a fetch is outstanding.
	IsLoading bool

	// HasMoreData is true until the server signals exhaustion.
	HasMoreData bool

	// PagingCursor is the opaque continuation token of the next fetch.
	// Empty means "start from the beginning".
	PagingCursor string

	// PageSize is the number of rows requested per fetch.
	PageSize int
}

func initialState(pageSize int) State {
	return State{
		IsLoading:    false,
		HasMoreData:  true,
		PagingCursor: "",
		PageSize:     pageSize,
	}
}

// Request is a fetch issued by the controller.
type Request struct {
	// Ticket identifies the request. Only the most recently issued ticket
	// may change controller state.
	Ticket uint64

	// Target is the table being paged.
	Target target.Target

	// Limit is the number of rows to fetch.
	Limit int

	// PagingState is the continuation token, empty for an initial load.
	PagingState string
}

// IsContinuation reports whether the request resumes from a cursor.
func (r Request) IsContinuation() bool {
	return r.PagingState != ""
}

// Endpoint returns the request path.
func (r Request) Endpoint() string {
	return r.Target.Endpoint()
}

// Query returns the request query parameters. The paging state is passed
// through unmodified; Encode makes it URL-safe.
func (r Request) Query() url.Values {
	q := url.Values{}
	q.Set(ParamLimit, strconv.Itoa(r.Limit))
	if r.PagingState != "" {
		q.Set(ParamPagingState, r.PagingState)
	}
	return q
}

// URL returns the full request URL below baseURL.
func (r Request) URL(baseURL string) string {
	return baseURL + r.Endpoint() + "?" + r.Query().Encode()
}

// MorePages is the tri-state X-Has-More-Pages signal.
type MorePages int8

const (
	// MorePagesUnknown means the header was absent or unrecognised.
	MorePagesUnknown MorePages = iota

	// MorePagesTrue means the server has more rows.
	MorePagesTrue

	// MorePagesFalse means the server has no more rows.
	MorePagesFalse
)

// String implements fmt.Stringer.
func (m MorePages) String() string {
	switch m {
	case MorePagesTrue:
		return "true"
	case MorePagesFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Metadata is the paging information of a completed fetch.
type Metadata struct {
	HasMorePages      MorePages
	ContinuationToken string
}

// MetadataFromHeaders reads paging metadata from response headers.
// Parsing is lenient: only the exact values "true" and "false" are
// recognised, anything else counts as absent.
func MetadataFromHeaders(h http.Header) Metadata {
	meta := Metadata{ContinuationToken: h.Get(HeaderPagingState)}

	switch h.Get(HeaderHasMorePages) {
	case "true":
		meta.HasMorePages = MorePagesTrue
	case "false":
		meta.HasMorePages = MorePagesFalse
	}

	return meta
}
