package moviereviews

import (
	"context"

	"github.com/BoTlInYQ/mcpserver/internal/registry"
	"github.com/BoTlInYQ/mcpserver/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// CriticsPicksToolName is the MCP name of the Critics' Pick tool
const CriticsPicksToolName = "get_critics_picks"

// GetCriticsPicksTool lists New York Times Critics' Pick reviews
type GetCriticsPicksTool struct {
	reviewTool
}

// NewGetCriticsPicksTool creates the tool with an explicit searcher and default limit
func NewGetCriticsPicksTool(searcher Searcher, defaultLimit int) *GetCriticsPicksTool {
	return &GetCriticsPicksTool{reviewTool{searcher: searcher, defaultLimit: defaultLimit}}
}

func init() {
	registry.Register(&GetCriticsPicksTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *GetCriticsPicksTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(`List New York Times Critics' Pick movie reviews, optionally within a publication date range.

Returns one text block per review separated by "---".`),
	}
	opts = append(opts, commonParameters()...)
	return mcp.NewTool(CriticsPicksToolName, opts...)
}

// Execute executes the tool
func (t *GetCriticsPicksTool) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	text, err := t.run(ctx, logger, CriticsPicksToolName, args, false, CriticsPicks)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

// ProvideExtendedInfo provides usage examples and troubleshooting for the tool
func (t *GetCriticsPicksTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Latest Critics' Picks",
				Arguments:   map[string]any{"limit": 5},
			},
			{
				Description: "Critics' Picks published in March 2024",
				Arguments: map[string]any{
					"begin_date": "2024-03-01",
					"end_date":   "2024-03-31",
				},
			},
		},
		CommonPatterns: []string{
			"Combine with search_movie_reviews to read more about a recommended film",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  MsgNoCriticsPicks,
				Solution: "The page had results but none were marked as a pick; try the next page or a wider date range",
			},
			{
				Problem:  "Unable to fetch results. Missing API key",
				Solution: "Set NYT_API_KEY in the server environment, a .env file or the config file",
			},
		},
		ParameterDetails: parameterDetails(),
		WhenToUse:        "Finding films the New York Times critics recommend",
		WhenNotToUse:     "Searching for a specific title; use search_movie_reviews",
	}
}
