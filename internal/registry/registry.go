package registry

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/BoTlInYQ/mcpserver/internal/tools"
	"github.com/sirupsen/logrus"
)

// DisabledToolsEnvVar lists tool names, comma separated, to leave unregistered
const DisabledToolsEnvVar = "DISABLED_TOOLS"

var (
	mu sync.RWMutex

	// toolRegistry is a map of tool names to tool implementations
	toolRegistry = make(map[string]tools.Tool)

	// disabledTools is a set of tool names to disable
	disabledTools = make(map[string]bool)

	// logger is the shared logger instance
	logger *logrus.Logger
)

// Init sets the shared logger and re-reads DISABLED_TOOLS. Tools registered
// before Init keep their place unless they are now disabled.
func Init(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()

	logger = l
	parseDisabledTools()
}

// parseDisabledTools parses the DISABLED_TOOLS environment variable.
// Caller must hold mu.
func parseDisabledTools() {
	disabledTools = make(map[string]bool)

	for name := range strings.SplitSeq(os.Getenv(DisabledToolsEnvVar), ",") {
		name = normaliseName(name)
		if name == "" {
			continue
		}
		disabledTools[name] = true
		if logger != nil {
			logger.WithField("tool", name).Debug("Tool disabled")
		}
	}
}

// normaliseName lowercases and maps hyphens to underscores so
// "search-movie-reviews" and "search_movie_reviews" match
func normaliseName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
}

func isDisabledLocked(name string) bool {
	return disabledTools[normaliseName(name)]
}

// Register adds a tool implementation to the registry
func Register(tool tools.Tool) {
	// Definition may consult the registry, so resolve it before locking
	toolName := tool.Definition().Name

	mu.Lock()
	defer mu.Unlock()

	toolRegistry[toolName] = tool
	if logger != nil {
		logger.WithField("tool", toolName).Debug("Tool registered")
	}
}

// Unregister removes a tool; used by tests
func Unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(toolRegistry, name)
}

// GetTool retrieves a tool by name, returns false if disabled or unknown
func GetTool(name string) (tools.Tool, bool) {
	mu.RLock()
	defer mu.RUnlock()

	if isDisabledLocked(name) {
		return nil, false
	}
	tool, ok := toolRegistry[name]
	return tool, ok
}

// GetEnabledTools returns all tools that are enabled for MCP server registration
func GetEnabledTools() map[string]tools.Tool {
	mu.RLock()
	defer mu.RUnlock()

	filtered := make(map[string]tools.Tool)
	for name, tool := range toolRegistry {
		if isDisabledLocked(name) {
			continue
		}
		filtered[name] = tool
	}
	return filtered
}

// GetEnabledToolNames returns a sorted list of enabled tool names
func GetEnabledToolNames() []string {
	mu.RLock()
	defer mu.RUnlock()

	var names []string
	for name := range toolRegistry {
		if isDisabledLocked(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetToolNamesWithExtendedHelp returns a sorted list of enabled tool names that provide extended help
func GetToolNamesWithExtendedHelp() []string {
	mu.RLock()
	defer mu.RUnlock()

	var names []string
	for name, tool := range toolRegistry {
		if isDisabledLocked(name) {
			continue
		}
		if _, ok := tool.(tools.ExtendedHelpProvider); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// GetLogger returns the shared logger instance
func GetLogger() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
