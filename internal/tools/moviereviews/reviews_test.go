package moviereviews

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BoTlInYQ/mcpserver/internal/testutils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearcher records the request it receives and returns a canned outcome
type fakeSearcher struct {
	resp     *SearchResponse
	err      error
	requests []SearchRequest
}

func (f *fakeSearcher) Search(ctx context.Context, logger *logrus.Logger, req SearchRequest) (*SearchResponse, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func responseWith(docs ...Document) *SearchResponse {
	return &SearchResponse{Response: &ResponseBody{Docs: docs}}
}

func numberedDocs(n int, pick Flag) []Document {
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = docWith(fmt.Sprintf("Film %d", i+1), "", pick)
	}
	return docs
}

func TestSearchReviews_APIError(t *testing.T) {
	searcher := &fakeSearcher{err: &APIError{Kind: ErrHTTPStatus, Detail: "HTTP 429 Too Many Requests"}}

	text, err := SearchReviews(context.Background(), testutils.CreateTestLogger(), searcher, Options{Query: "Barbie", Limit: 5})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(text, "Unable to fetch results."))
	assert.Contains(t, text, "Request failed: HTTP 429 Too Many Requests")
}

func TestCriticsPicks_APIError(t *testing.T) {
	searcher := &fakeSearcher{err: &APIError{Kind: ErrMissingCredential}}

	text, err := CriticsPicks(context.Background(), testutils.CreateTestLogger(), searcher, Options{Limit: 5})
	require.Error(t, err)
	assert.Equal(t, "Unable to fetch results. Missing API key", text)
}

func TestSearchReviews_Empty(t *testing.T) {
	searcher := &fakeSearcher{resp: responseWith()}

	text, err := SearchReviews(context.Background(), testutils.CreateTestLogger(), searcher, Options{Query: "nothing", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "No reviews found for the given query/date range.", text)
}

func TestCriticsPicks_EmptyAndNoMatches(t *testing.T) {
	logger := testutils.CreateTestLogger()

	text, err := CriticsPicks(context.Background(), logger, &fakeSearcher{resp: responseWith()}, Options{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "No Critics' Pick reviews found for the given criteria.", text)

	text, err = CriticsPicks(context.Background(), logger, &fakeSearcher{resp: responseWith(numberedDocs(3, 0)...)}, Options{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, MsgNoCriticsPicks, text)
}

func TestSearchReviews_RequestShape(t *testing.T) {
	searcher := &fakeSearcher{resp: responseWith(numberedDocs(1, 0)...)}

	_, err := SearchReviews(context.Background(), testutils.CreateTestLogger(), searcher, Options{
		Query:     "Dune",
		Sort:      "bogus",
		Page:      -1,
		BeginDate: "2021-10-01",
		EndDate:   "not-a-date",
		Limit:     0,
	})
	require.NoError(t, err)
	require.Len(t, searcher.requests, 1)

	req := searcher.requests[0]
	assert.Equal(t, "Dune", req.Query)
	assert.Equal(t, "", req.FilterQuery, "title search has no default filter")
	assert.Equal(t, SortNewest, req.Sort)
	assert.Equal(t, 0, req.Page)
	assert.Equal(t, "20211001", req.BeginDate)
	assert.Equal(t, "", req.EndDate)
	assert.Equal(t, 1, req.Limit)
}

func TestCriticsPicks_RequestShape(t *testing.T) {
	searcher := &fakeSearcher{resp: responseWith()}

	_, err := CriticsPicks(context.Background(), testutils.CreateTestLogger(), searcher, Options{
		Query:   "ignored",
		Sort:    SortRelevance,
		Page:    3,
		EndDate: "20240131",
		Limit:   2,
		Filters: []string{`section_name:"Movies"`},
	})
	require.NoError(t, err)
	require.Len(t, searcher.requests, 1)

	req := searcher.requests[0]
	assert.Empty(t, req.Query, "critics' picks search sends no free text")
	assert.Equal(t, `critics_pick:1 AND section_name:"Movies"`, req.FilterQuery)
	assert.Equal(t, SortRelevance, req.Sort)
	assert.Equal(t, 3, req.Page)
	assert.Equal(t, "20240131", req.EndDate)
}

func TestSearchReviews_LimitsOutput(t *testing.T) {
	searcher := &fakeSearcher{resp: responseWith(numberedDocs(5, 0)...)}

	text, err := SearchReviews(context.Background(), testutils.CreateTestLogger(), searcher, Options{Query: "film", Limit: 2})
	require.NoError(t, err)

	blocks := strings.Split(text, "\n---\n")
	require.Len(t, blocks, 2)
	assert.True(t, strings.HasPrefix(blocks[0], "Title: Film 1"))
	assert.True(t, strings.HasPrefix(blocks[1], "Title: Film 2"))
}

func TestCriticsPicks_FiltersThenLimits(t *testing.T) {
	docs := []Document{
		docWith("Not a pick", "Movies", 0),
		docWith("Flagged", "", 1),
		docWith("Kicker pick", "Critic's Pick", 0),
		docWith("Also flagged", "", 1),
	}
	searcher := &fakeSearcher{resp: responseWith(docs...)}

	text, err := CriticsPicks(context.Background(), testutils.CreateTestLogger(), searcher, Options{Limit: 2})
	require.NoError(t, err)

	blocks := strings.Split(text, ReviewSeparator)
	require.Len(t, blocks, 2)
	assert.True(t, strings.HasPrefix(blocks[0], "Title: Flagged (Critic's Pick)"))
	assert.True(t, strings.HasPrefix(blocks[1], "Title: Kicker pick (Critic's Pick)"))
	assert.NotContains(t, text, "Not a pick")
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions(map[string]any{
		"query":      "  Barbie ",
		"sort":       "OLDEST",
		"page":       float64(2),
		"limit":      "3",
		"begin_date": "2023-01-01",
		"filters":    []any{"a:b", " ", "c:d"},
	}, true, 5)
	require.NoError(t, err)
	assert.Equal(t, "Barbie", opts.Query)
	assert.Equal(t, SortOldest, opts.Sort)
	assert.Equal(t, 2, opts.Page)
	assert.Equal(t, 3, opts.Limit)
	assert.Equal(t, "2023-01-01", opts.BeginDate)
	assert.Equal(t, []string{"a:b", "c:d"}, opts.Filters)
}

func TestParseOptions_Defaults(t *testing.T) {
	opts, err := parseOptions(map[string]any{}, false, 7)
	require.NoError(t, err)
	assert.Equal(t, SortNewest, opts.Sort)
	assert.Equal(t, 0, opts.Page)
	assert.Equal(t, 7, opts.Limit)
	assert.Nil(t, opts.Filters)
}

func TestParseOptions_Errors(t *testing.T) {
	_, err := parseOptions(map[string]any{}, true, 5)
	assert.EqualError(t, err, "missing or invalid required parameter: query")

	_, err = parseOptions(map[string]any{"page": "two"}, false, 5)
	assert.ErrorContains(t, err, "invalid page")

	_, err = parseOptions(map[string]any{"limit": true}, false, 5)
	assert.ErrorContains(t, err, "invalid limit")

	_, err = parseOptions(map[string]any{"filters": []any{1}}, false, 5)
	assert.ErrorContains(t, err, "invalid filters")
}

func TestSearchMovieReviewsTool_Definition(t *testing.T) {
	def := (&SearchMovieReviewsTool{}).Definition()

	assert.Equal(t, "search_movie_reviews", def.Name)
	assert.Contains(t, def.InputSchema.Required, "query")
	for _, name := range []string{"query", "sort", "page", "begin_date", "end_date", "limit", "filters"} {
		assert.Contains(t, def.InputSchema.Properties, name)
	}
}

func TestGetCriticsPicksTool_Definition(t *testing.T) {
	def := (&GetCriticsPicksTool{}).Definition()

	assert.Equal(t, "get_critics_picks", def.Name)
	assert.NotContains(t, def.InputSchema.Properties, "query")
	assert.Empty(t, def.InputSchema.Required)
}

func TestSearchMovieReviewsTool_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Barbie", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"response":{"docs":[
			{"headline":{"main":"Barbie"},"byline":{"original":"By Manohla Dargis"},"pub_date":"2023-07-20T13:00:00+0000","web_url":"https://example.com/barbie","abstract":"Pink."},
			{"headline":{"main":"Barbie 2"}}
		]}}`))
	}))
	defer server.Close()

	client := NewClientWithHTTPClient(testConfig(server.URL), server.Client())
	tool := NewSearchMovieReviewsTool(client, 1)

	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), map[string]any{"query": "Barbie"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, strings.Join([]string{
		"Title: Barbie",
		"By Manohla Dargis",
		"Published: 2023-07-20",
		"URL: https://example.com/barbie",
		"Summary: Pink.",
	}, "\n"), testutils.ResultText(t, result))
}

func TestSearchMovieReviewsTool_ExecuteMissingQuery(t *testing.T) {
	tool := NewSearchMovieReviewsTool(&fakeSearcher{}, 5)

	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), map[string]any{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, testutils.ResultText(t, result), "query")
}

func TestGetCriticsPicksTool_ExecuteDegradesOnError(t *testing.T) {
	tool := NewGetCriticsPicksTool(&fakeSearcher{err: &APIError{Kind: ErrTransport, Detail: "dial tcp: connection refused"}}, 5)

	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), map[string]any{})
	require.NoError(t, err)
	assert.False(t, result.IsError, "API failures are reported as ordinary text")
	assert.Equal(t, "Unable to fetch results. Request failed: dial tcp: connection refused", testutils.ResultText(t, result))
}

func TestTools_ProvideExtendedInfo(t *testing.T) {
	searchHelp := (&SearchMovieReviewsTool{}).ProvideExtendedInfo()
	require.NotNil(t, searchHelp)
	assert.NotEmpty(t, searchHelp.Examples)
	assert.Contains(t, searchHelp.ParameterDetails, "filters")

	picksHelp := (&GetCriticsPicksTool{}).ProvideExtendedInfo()
	require.NotNil(t, picksHelp)
	assert.NotEmpty(t, picksHelp.Troubleshooting)
}
