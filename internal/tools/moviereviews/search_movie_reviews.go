package moviereviews

import (
	"context"

	"github.com/BoTlInYQ/mcpserver/internal/registry"
	"github.com/BoTlInYQ/mcpserver/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// SearchToolName is the MCP name of the title search tool
const SearchToolName = "search_movie_reviews"

// SearchMovieReviewsTool searches New York Times movie reviews by free text
type SearchMovieReviewsTool struct {
	reviewTool
}

// NewSearchMovieReviewsTool creates the tool with an explicit searcher and default limit
func NewSearchMovieReviewsTool(searcher Searcher, defaultLimit int) *SearchMovieReviewsTool {
	return &SearchMovieReviewsTool{reviewTool{searcher: searcher, defaultLimit: defaultLimit}}
}

func init() {
	registry.Register(&SearchMovieReviewsTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *SearchMovieReviewsTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(`Search New York Times movie reviews by title or free text.

Returns one text block per review (title, byline, publication date, URL, summary) separated by "---". Dates accept YYYY-MM-DD or YYYYMMDD; unparseable dates are ignored.`),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Movie title or free-text search terms"),
		),
	}
	opts = append(opts, commonParameters()...)
	return mcp.NewTool(SearchToolName, opts...)
}

// Execute executes the tool
func (t *SearchMovieReviewsTool) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	text, err := t.run(ctx, logger, SearchToolName, args, true, SearchReviews)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

// ProvideExtendedInfo provides usage examples and troubleshooting for the tool
func (t *SearchMovieReviewsTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Find reviews of a film by title",
				Arguments:   map[string]any{"query": "Barbie"},
			},
			{
				Description: "Oldest first, restricted to one year",
				Arguments: map[string]any{
					"query":      "Godzilla",
					"sort":       SortOldest,
					"begin_date": "2014-01-01",
					"end_date":   "2014-12-31",
				},
			},
			{
				Description: "Only pieces from the movies section",
				Arguments: map[string]any{
					"query":   "Oppenheimer",
					"filters": []string{`section_name:"Movies"`},
					"limit":   3,
				},
			},
		},
		CommonPatterns: []string{
			"Use get_critics_picks instead when only recommended films are wanted",
			"Increase page to see older results; each call fetches one page of up to 10 documents",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Unable to fetch results. Missing API key",
				Solution: "Set NYT_API_KEY in the server environment, a .env file or the config file",
			},
			{
				Problem:  "Unable to fetch results. Request failed: HTTP 429 Too Many Requests",
				Solution: "The Article Search quota was exceeded; wait a minute before trying again",
			},
			{
				Problem:  MsgNoReviews,
				Solution: "Broaden the query or remove the date range; the search is not limited to movie reviews, so check spelling",
			},
		},
		ParameterDetails: parameterDetails(),
		WhenToUse:        "Looking up what the New York Times wrote about a particular film or topic",
		WhenNotToUse:     "Fetching the full text of a review; follow the returned URL instead",
	}
}

// commonParameters are the parameters both review tools accept
func commonParameters() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("sort",
			mcp.Description("Result order"),
			mcp.DefaultString(SortNewest),
			mcp.Enum(SortNewest, SortOldest, SortRelevance),
		),
		mcp.WithNumber("page",
			mcp.Description("Zero based result page to fetch (10 documents per page)"),
			mcp.DefaultNumber(0),
			mcp.Min(0),
		),
		mcp.WithString("begin_date",
			mcp.Description("Earliest publication date (YYYY-MM-DD or YYYYMMDD)"),
		),
		mcp.WithString("end_date",
			mcp.Description("Latest publication date (YYYY-MM-DD or YYYYMMDD)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of reviews to return from the page"),
			mcp.Min(1),
		),
		mcp.WithArray("filters",
			mcp.Description(`Extra filter query terms joined with AND, passed verbatim (e.g. section_name:"Movies")`),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	}
}

func parameterDetails() map[string]string {
	return map[string]string{
		"sort":       "newest (default), oldest or relevance; anything else is treated as newest",
		"page":       "Negative values are treated as 0",
		"begin_date": "Ignored when it is not a valid calendar date",
		"end_date":   "Ignored when it is not a valid calendar date",
		"limit":      "Values below 1 are treated as 1; only documents from the fetched page are returned",
		"filters":    "Lucene style Article Search filter terms; no escaping is applied",
	}
}
