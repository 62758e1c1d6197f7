package moviereviews

import (
	"net/url"
	"strconv"
	"strings"
)

// Sort orders accepted by the Article Search API
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortRelevance = "relevance"
)

// CriticsPickTerm seeds the filter expression of the critics' pick search
const CriticsPickTerm = "critics_pick:1"

// SearchRequest describes one page of an Article Search query
type SearchRequest struct {
	Query       string
	FilterQuery string
	Sort        string
	Page        int
	BeginDate   string
	EndDate     string
	Limit       int
}

// BuildFilterQuery joins filter terms with " AND ". Terms are passed through
// verbatim; callers own the filter syntax.
func BuildFilterQuery(terms ...string) string {
	return strings.Join(terms, " AND ")
}

// NormaliseSort returns sort when it is a known order and SortNewest otherwise
func NormaliseSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case SortOldest:
		return SortOldest
	case SortRelevance:
		return SortRelevance
	default:
		return SortNewest
	}
}

// clamp applies the page and limit bounds in place
func (r *SearchRequest) clamp() {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Limit < 1 {
		r.Limit = 1
	}
	r.Sort = NormaliseSort(r.Sort)
}

// Values renders the request as API query parameters, excluding the
// credential which the client attaches.
func (r SearchRequest) Values() url.Values {
	r.clamp()

	values := url.Values{}
	if r.Query != "" {
		values.Set("q", r.Query)
	}
	if r.FilterQuery != "" {
		values.Set("fq", r.FilterQuery)
	}
	values.Set("sort", r.Sort)
	values.Set("page", strconv.Itoa(r.Page))
	if r.BeginDate != "" {
		values.Set("begin_date", r.BeginDate)
	}
	if r.EndDate != "" {
		values.Set("end_date", r.EndDate)
	}
	return values
}
