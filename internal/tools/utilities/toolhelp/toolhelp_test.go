package toolhelp

import (
	"context"
	"testing"

	"github.com/BoTlInYQ/mcpserver/internal/registry"
	"github.com/BoTlInYQ/mcpserver/internal/testutils"
	"github.com/BoTlInYQ/mcpserver/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type documentedTool struct {
	*testutils.MockTool
}

func (d documentedTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		WhenToUse: "Looking up a film",
		Examples: []tools.ToolExample{
			{Description: "By title", Arguments: map[string]any{"query": "Barbie"}},
		},
		ParameterDetails: map[string]string{"sort": "newest or oldest", "limit": "at least 1"},
		Troubleshooting: []tools.TroubleshootingTip{
			{Problem: "Missing API key", Solution: "Set NYT_API_KEY"},
		},
	}
}

func TestRender(t *testing.T) {
	def := mcp.NewTool("documented", mcp.WithDescription("Finds things\n"))
	text := Render(def, documentedTool{}.ProvideExtendedInfo())

	assert.Contains(t, text, "# documented\n\nFinds things\n")
	assert.Contains(t, text, "When to use: Looking up a film")
	assert.Contains(t, text, "- limit: at least 1\n- sort: newest or oldest")
	assert.Contains(t, text, `arguments: {"query":"Barbie"}`)
	assert.Contains(t, text, "- Missing API key\n  Set NYT_API_KEY")
	assert.NotContains(t, text, "## Common patterns")
}

func TestRender_NoHelp(t *testing.T) {
	text := Render(mcp.NewTool("bare", mcp.WithDescription("Bare tool")), nil)
	assert.Equal(t, "# bare\n\nBare tool\n\nNo extended help is available for this tool.", text)
}

func TestExecute(t *testing.T) {
	registry.Init(testutils.CreateTestLogger())
	registry.Register(documentedTool{testutils.NewMockTool("toolhelp_documented")})
	registry.Register(testutils.NewMockTool("toolhelp_plain"))
	t.Cleanup(func() {
		registry.Unregister("toolhelp_documented")
		registry.Unregister("toolhelp_plain")
	})

	helpTool := &ToolHelpTool{}
	assert.Contains(t, helpTool.Definition().InputSchema.Properties, "tool_name")

	result, err := helpTool.Execute(context.Background(), testutils.CreateTestLogger(), map[string]any{"tool_name": "toolhelp_documented"})
	require.NoError(t, err)
	assert.Contains(t, testutils.ResultText(t, result), "# toolhelp_documented")

	_, err = helpTool.Execute(context.Background(), testutils.CreateTestLogger(), map[string]any{})
	assert.ErrorContains(t, err, "tool_name")

	_, err = helpTool.Execute(context.Background(), testutils.CreateTestLogger(), map[string]any{"tool_name": "toolhelp_missing"})
	assert.ErrorContains(t, err, "not found or disabled")

	_, err = helpTool.Execute(context.Background(), testutils.CreateTestLogger(), map[string]any{"tool_name": "toolhelp_plain"})
	assert.ErrorContains(t, err, "does not provide extended help")
}
