// Package cli runs the review tools straight from the command line.
// Tools are resolved through the registry and executed in-process, so no MCP
// client or server is involved.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/BoTlInYQ/mcpserver/internal/registry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// OutputFormat controls how tool results are rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Runner executes CLI commands against the tool registry.
type Runner struct {
	logger *logrus.Logger
	out    io.Writer
	output OutputFormat
}

// NewRunner creates a Runner writing to out in the given format.
func NewRunner(logger *logrus.Logger, out io.Writer, output OutputFormat) *Runner {
	if output != OutputJSON {
		output = OutputText
	}
	return &Runner{logger: logger, out: out, output: output}
}

// ListTools prints every enabled tool with the first line of its description.
func (r *Runner) ListTools() error {
	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	entries := []entry{}
	for _, tool := range registry.GetEnabledTools() {
		def := tool.Definition()
		entries = append(entries, entry{Name: def.Name, Description: firstLine(def.Description)})
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.Name, b.Name) })

	if r.output == OutputJSON {
		return r.writeJSON(entries)
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Description)
	}
	return w.Flush()
}

// HelpTool prints the parameters a tool accepts as command line flags.
func (r *Runner) HelpTool(name string) error {
	def, err := lookup(name)
	if err != nil {
		return err
	}

	if r.output == OutputJSON {
		return r.writeJSON(def)
	}

	fmt.Fprintf(r.out, "Tool: %s\n\n%s\n\n", def.Name, def.Description)

	props := def.InputSchema.Properties
	if len(props) == 0 {
		fmt.Fprintln(r.out, "No parameters.")
		return nil
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprintln(r.out, "Parameters:")
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, pName := range names {
		prop, ok := props[pName].(map[string]any)
		if !ok {
			continue
		}
		pType, _ := prop["type"].(string)
		pDesc, _ := prop["description"].(string)

		suffix := ""
		if slices.Contains(def.InputSchema.Required, pName) {
			suffix = " (required)"
		}
		suffix += formatEnum(prop["enum"])

		fmt.Fprintf(w, "  --%s\t%s\t%s%s\n", toFlagName(pName), pType, firstLine(pDesc), suffix)
	}
	return w.Flush()
}

// RunTool executes a tool with flag style or JSON arguments:
//
//	search-movie-reviews --query Barbie --limit 3
//	get-critics-picks '{"begin_date": "2024-01-01"}'
//
// Array parameters may be repeated. Flags win over JSON keys.
func (r *Runner) RunTool(ctx context.Context, name string, args []string) error {
	def, err := lookup(name)
	if err != nil {
		return err
	}
	tool, _ := registry.GetTool(def.Name)

	params, err := parseArgs(args, def)
	if err != nil {
		return fmt.Errorf("argument error: %w", err)
	}

	r.logger.WithFields(logrus.Fields{"tool": def.Name, "args": params}).Debug("Running tool from CLI")

	result, err := tool.Execute(ctx, r.logger, params)
	if err != nil {
		return fmt.Errorf("tool error: %w", err)
	}
	return r.renderResult(result)
}

func lookup(name string) (mcp.Tool, error) {
	for _, candidate := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if tool, ok := registry.GetTool(candidate); ok {
			return tool.Definition(), nil
		}
	}
	return mcp.Tool{}, fmt.Errorf("unknown tool: %s (run 'list' to see available tools)", name)
}

// parseArgs converts CLI arguments into the argument map a tool receives
// over MCP. Numbers become float64 as they would after JSON decoding.
func parseArgs(args []string, def mcp.Tool) (map[string]any, error) {
	types := make(map[string]string, len(def.InputSchema.Properties))
	flags := make(map[string]string, len(def.InputSchema.Properties))
	for name, prop := range def.InputSchema.Properties {
		if pm, ok := prop.(map[string]any); ok {
			types[name], _ = pm["type"].(string)
		}
		flags[toFlagName(name)] = name
	}

	params := make(map[string]any)
	fromJSON := make(map[string]any)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case strings.HasPrefix(arg, "{"):
			if err := json.Unmarshal([]byte(arg), &fromJSON); err != nil {
				return nil, fmt.Errorf("invalid JSON argument: %w", err)
			}

		case strings.HasPrefix(arg, "--"):
			flagName, raw, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
			param, ok := flags[flagName]
			if !ok {
				param = strings.ReplaceAll(flagName, "-", "_")
			}
			if !hasValue {
				i++
				if i >= len(args) {
					return nil, fmt.Errorf("flag --%s requires a value", flagName)
				}
				raw = args[i]
			}

			value, err := coerceValue(raw, types[param])
			if err != nil {
				return nil, fmt.Errorf("flag --%s: %w", flagName, err)
			}
			if types[param] == "array" {
				existing, _ := params[param].([]any)
				value = append(existing, value.([]any)...)
			}
			params[param] = value

		default:
			return nil, fmt.Errorf("unexpected argument: %s (use --key value flags or a JSON object)", arg)
		}
	}

	for k, v := range fromJSON {
		if _, exists := params[k]; !exists {
			params[k] = v
		}
	}
	return params, nil
}

func coerceValue(raw, schemaType string) (any, error) {
	switch schemaType {
	case "number", "integer":
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q", raw)
		}
		return f, nil
	case "array":
		var arr []any
		if strings.HasPrefix(strings.TrimSpace(raw), "[") {
			if err := json.Unmarshal([]byte(raw), &arr); err != nil {
				return nil, fmt.Errorf("invalid JSON array: %w", err)
			}
			return arr, nil
		}
		return []any{raw}, nil
	default:
		return raw, nil
	}
}

func (r *Runner) renderResult(result *mcp.CallToolResult) error {
	if result == nil {
		return nil
	}

	if r.output == OutputJSON {
		if err := r.writeJSON(result); err != nil {
			return err
		}
	} else {
		for _, content := range result.Content {
			if text, ok := mcp.AsTextContent(content); ok {
				fmt.Fprintln(r.out, text.Text)
			}
		}
	}

	if result.IsError {
		return fmt.Errorf("tool returned an error")
	}
	return nil
}

func (r *Runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string) string {
	before, _, _ := strings.Cut(s, "\n")
	return before
}

func toFlagName(s string) string {
	return strings.ReplaceAll(s, "_", "-")
}

func formatEnum(raw any) string {
	var vals []string
	switch v := raw.(type) {
	case []string:
		vals = v
	case []any:
		for _, item := range v {
			vals = append(vals, fmt.Sprint(item))
		}
	}
	if len(vals) == 0 {
		return ""
	}
	return " [" + strings.Join(vals, "|") + "]"
}
