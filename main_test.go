package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BoTlInYQ/mcpserver/internal/registry"
	"github.com/BoTlInYQ/mcpserver/internal/testutils"
	"github.com/BoTlInYQ/mcpserver/internal/tools/moviereviews"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"":        logrus.WarnLevel,
		"debug":   logrus.DebugLevel,
		" INFO ":  logrus.InfoLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"verbose": logrus.WarnLevel,
	}
	for value, want := range tests {
		t.Setenv("LOG_LEVEL", value)
		assert.Equal(t, want, parseLogLevel(), "LOG_LEVEL=%q", value)
	}
}

func TestRequireBearerToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := requireBearerToken("s3cret", testutils.CreateTestLogger(), next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer s3cret", want: http.StatusNoContent},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic s3cret", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/http", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestTimeoutSessionManager(t *testing.T) {
	manager := NewTimeoutSessionManager(time.Minute, testutils.CreateTestLogger())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return now }

	id := manager.Generate()
	assert.True(t, strings.HasPrefix(id, "session-"))
	assert.NotEqual(t, id, manager.Generate())

	terminated, err := manager.Validate(id)
	require.NoError(t, err)
	assert.False(t, terminated)

	now = now.Add(50 * time.Second)
	terminated, err = manager.Validate(id)
	require.NoError(t, err)
	assert.False(t, terminated, "validation refreshes the idle timer")

	now = now.Add(2 * time.Minute)
	terminated, err = manager.Validate(id)
	require.NoError(t, err)
	assert.True(t, terminated)

	_, err = manager.Validate(id)
	assert.Error(t, err, "expired sessions are forgotten")

	_, err = manager.Validate("")
	assert.Error(t, err)

	other := manager.Generate()
	notAllowed, err := manager.Terminate(other)
	require.NoError(t, err)
	assert.False(t, notAllowed)
	_, err = manager.Validate(other)
	assert.Error(t, err)
}

func TestToolHandler(t *testing.T) {
	registry.Init(testutils.CreateTestLogger())

	handler := toolHandler(moviereviews.SearchToolName, testutils.CreateTestLogger(), "stdio")

	var request mcp.CallToolRequest
	request.Params.Name = moviereviews.SearchToolName
	request.Params.Arguments = map[string]any{}

	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	assert.True(t, result.IsError, "missing query is reported as a tool error")

	_, err = toolHandler("not_registered", testutils.CreateTestLogger(), "stdio")(context.Background(), request)
	assert.ErrorContains(t, err, "tool not found")
}

func TestNewMCPServer_RegistersReviewTools(t *testing.T) {
	registry.Init(testutils.CreateTestLogger())
	names := registry.GetEnabledToolNames()

	assert.Contains(t, names, "search_movie_reviews")
	assert.Contains(t, names, "get_critics_picks")
	assert.Contains(t, names, "get_tool_help")
	assert.NotNil(t, newMCPServer(testutils.CreateTestLogger(), "stdio"))
}
