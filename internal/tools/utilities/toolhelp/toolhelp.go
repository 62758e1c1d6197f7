package toolhelp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/BoTlInYQ/mcpserver/internal/registry"
	"github.com/BoTlInYQ/mcpserver/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// ToolName is the MCP name of the help tool
const ToolName = "get_tool_help"

// ToolHelpTool returns usage examples and troubleshooting notes for the other tools
type ToolHelpTool struct{}

func init() {
	registry.Register(&ToolHelpTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *ToolHelpTool) Definition() mcp.Tool {
	withHelp := registry.GetToolNamesWithExtendedHelp()

	description := "No tools currently provide extended help information."
	if len(withHelp) > 0 {
		description = "Get usage examples, parameter details and troubleshooting tips for the movie review tools. Use it when a review search returns an unexpected message."
	}

	return mcp.NewTool(
		ToolName,
		mcp.WithDescription(description),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Name of the tool to get help for"),
			mcp.Enum(withHelp...),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute executes the get_tool_help tool
func (t *ToolHelpTool) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	toolName, ok := args["tool_name"].(string)
	if !ok || strings.TrimSpace(toolName) == "" {
		return nil, fmt.Errorf("missing or invalid required parameter: tool_name")
	}

	tool, exists := registry.GetTool(toolName)
	if !exists {
		return nil, fmt.Errorf("tool '%s' not found or disabled. Tools with extended help: %s",
			toolName, strings.Join(registry.GetToolNamesWithExtendedHelp(), ", "))
	}

	provider, ok := tool.(tools.ExtendedHelpProvider)
	if !ok {
		return nil, fmt.Errorf("tool '%s' does not provide extended help. Tools with extended help: %s",
			toolName, strings.Join(registry.GetToolNamesWithExtendedHelp(), ", "))
	}

	logger.WithField("tool", toolName).Debug("Rendering extended help")
	return mcp.NewToolResultText(Render(tool.Definition(), provider.ProvideExtendedInfo())), nil
}

// Render formats a tool definition and its extended help as plain text
func Render(def mcp.Tool, help *tools.ExtendedHelp) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n%s\n", def.Name, strings.TrimSpace(def.Description))

	if help == nil {
		b.WriteString("\nNo extended help is available for this tool.\n")
		return strings.TrimRight(b.String(), "\n")
	}

	if help.WhenToUse != "" {
		fmt.Fprintf(&b, "\nWhen to use: %s\n", help.WhenToUse)
	}
	if help.WhenNotToUse != "" {
		fmt.Fprintf(&b, "When not to use: %s\n", help.WhenNotToUse)
	}

	if len(help.ParameterDetails) > 0 {
		b.WriteString("\n## Parameters\n")
		names := make([]string, 0, len(help.ParameterDetails))
		for name := range help.ParameterDetails {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %s\n", name, help.ParameterDetails[name])
		}
	}

	if len(help.Examples) > 0 {
		b.WriteString("\n## Examples\n")
		for _, example := range help.Examples {
			arguments, err := json.Marshal(example.Arguments)
			if err != nil {
				arguments = []byte("{}")
			}
			fmt.Fprintf(&b, "- %s\n  arguments: %s\n", example.Description, arguments)
			if example.ExpectedResult != "" {
				fmt.Fprintf(&b, "  result: %s\n", example.ExpectedResult)
			}
		}
	}

	if len(help.CommonPatterns) > 0 {
		b.WriteString("\n## Common patterns\n")
		for _, pattern := range help.CommonPatterns {
			fmt.Fprintf(&b, "- %s\n", pattern)
		}
	}

	if len(help.Troubleshooting) > 0 {
		b.WriteString("\n## Troubleshooting\n")
		for _, tip := range help.Troubleshooting {
			fmt.Fprintf(&b, "- %s\n  %s\n", tip.Problem, tip.Solution)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
