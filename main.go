package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/BoTlInYQ/mcpserver/internal/cli"
	"github.com/BoTlInYQ/mcpserver/internal/config"
	"github.com/BoTlInYQ/mcpserver/internal/registry"
	"github.com/BoTlInYQ/mcpserver/internal/telemetry"
	"github.com/BoTlInYQ/mcpserver/internal/tools"
	"github.com/BoTlInYQ/mcpserver/internal/utils/httpclient"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	cli3 "github.com/urfave/cli/v3"

	// Import all tool packages to register them
	_ "github.com/BoTlInYQ/mcpserver/internal/imports"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const serverName = "mcp-moviereviews"

// Global resources that need cleanup
var (
	logFile          atomic.Pointer[os.File]
	isStdioMode      atomic.Bool
	shutdownTracer   func() error
	shutdownTracerMu sync.Mutex
)

// parseLogLevel parses LOG_LEVEL, defaulting to warn when unset or invalid
func parseLogLevel() logrus.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discard output until the transport is known; stdio must never write to stdout
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithError(err).Debug("Failed to load .env file")
	}

	registry.Init(logger)

	defer performCleanup(logger)

	app := &cli3.Command{
		Name:    serverName,
		Usage:   "MCP server for New York Times movie reviews",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags: []cli3.Flag{
			&cli3.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Value:   "stdio",
				Usage:   "Transport type (stdio, sse, or http)",
			},
			&cli3.StringFlag{
				Name:  "port",
				Value: "18080",
				Usage: "Port to use for HTTP transports (SSE and Streamable HTTP)",
			},
			&cli3.StringFlag{
				Name:  "base-url",
				Value: "http://localhost",
				Usage: "Base URL for HTTP transports",
			},
			&cli3.StringFlag{
				Name:    "auth-token",
				Usage:   "Bearer token required by the Streamable HTTP transport (optional)",
				Sources: cli3.EnvVars("MCP_AUTH_TOKEN"),
			},
			&cli3.StringFlag{
				Name:  "endpoint-path",
				Value: "/http",
				Usage: "Endpoint path for Streamable HTTP transport",
			},
			&cli3.DurationFlag{
				Name:  "session-timeout",
				Value: 30 * time.Minute,
				Usage: "Idle session timeout for Streamable HTTP transport",
			},
			&cli3.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (default: ~/.mcp-moviereviews/config.yaml)",
				Sources: cli3.EnvVars(config.ConfigPathEnvVar),
			},
		},
		Commands: []*cli3.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli3.Command) error {
					fmt.Printf("%s version %s\n", serverName, Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
			cliCommand(logger),
		},
		Action: func(cliCtx context.Context, cmd *cli3.Command) error {
			transport := cmd.String("transport")
			isStdioMode.Store(transport == "stdio")

			setupLogging(logger, transport)
			initServices(logger, cmd, transport)

			if transport != "stdio" {
				logger.Infof("Starting %s version %s (commit: %s, built: %s)", serverName, Version, Commit, BuildDate)
			}

			mcpSrv := newMCPServer(logger, transport)

			logger.WithField("transport", transport).Debug("Starting server")
			switch transport {
			case "stdio":
				return mcpserver.ServeStdio(mcpSrv)
			case "sse":
				return startSSEServer(cliCtx, cmd, mcpSrv, logger)
			case "http":
				return startStreamableHTTPServer(cliCtx, cmd, mcpSrv, logger)
			default:
				return fmt.Errorf("unsupported transport: %s", transport)
			}
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		if !isStdioMode.Load() {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		performCleanup(logger)
		os.Exit(1)
	}
}

// cliCommand runs tools directly without an MCP client
func cliCommand(logger *logrus.Logger) *cli3.Command {
	outputFlag := &cli3.StringFlag{
		Name:  "output",
		Value: string(cli.OutputText),
		Usage: "Output format (text or json)",
	}
	runner := func(cmd *cli3.Command) *cli.Runner {
		return cli.NewRunner(logger, os.Stdout, cli.OutputFormat(cmd.String("output")))
	}

	return &cli3.Command{
		Name:  "cli",
		Usage: "Run tools directly from the command line",
		Flags: []cli3.Flag{outputFlag},
		Before: func(ctx context.Context, cmd *cli3.Command) (context.Context, error) {
			logger.SetOutput(os.Stderr)
			initServices(logger, cmd.Root(), "cli")
			return ctx, nil
		},
		Commands: []*cli3.Command{
			{
				Name:  "list",
				Usage: "List enabled tools",
				Action: func(ctx context.Context, cmd *cli3.Command) error {
					return runner(cmd).ListTools()
				},
			},
			{
				Name:      "help",
				Usage:     "Show the parameters of a tool",
				ArgsUsage: "<tool>",
				Action: func(ctx context.Context, cmd *cli3.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: %s cli help <tool>", serverName)
					}
					return runner(cmd).HelpTool(cmd.Args().First())
				},
			},
			{
				Name:            "run",
				Usage:           "Run a tool with --flag value arguments or a JSON object",
				ArgsUsage:       "<tool> [arguments...]",
				SkipFlagParsing: true,
				Action: func(ctx context.Context, cmd *cli3.Command) error {
					args := cmd.Args().Slice()
					if len(args) == 0 {
						return fmt.Errorf("usage: %s cli run <tool> [arguments...]", serverName)
					}
					return runner(cmd).RunTool(ctx, args[0], args[1:])
				},
			},
		},
	}
}

// setupLogging points the logger at the log file. Stdio mode never falls
// back to stderr.
func setupLogging(logger *logrus.Logger, transport string) {
	logLevel := parseLogLevel()
	logger.SetLevel(logLevel)
	logrus.SetLevel(logLevel)

	var fallback io.Writer = os.Stderr
	if transport == "stdio" {
		fallback = io.Discard
	}

	file, err := openLogFile()
	if err != nil {
		logger.SetOutput(fallback)
		logrus.SetOutput(fallback)
		logger.WithError(err).Debug("Logging to fallback output")
		return
	}

	logFile.Store(file)
	logger.SetOutput(file)
	logrus.SetOutput(file)
	logger.WithField("level", logLevel.String()).Debug("Logging configured")
}

func openLogFile() (*os.File, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	logDir := filepath.Join(homeDir, tools.LogDirName, "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(filepath.Join(logDir, serverName+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

// initServices loads configuration and starts the error log and tracer
func initServices(logger *logrus.Logger, cmd *cli3.Command, transport string) {
	registry.Init(logger)

	if err := config.Init(cmd.String("config")); err != nil {
		logger.WithError(err).Warn("Failed to load config file, using defaults and environment")
	}
	if !config.Get().HasAPIKey() {
		logger.Warnf("%s is not set; review searches will report a missing API key", config.APIKeyEnvVar)
	}

	if httpclient.IsProxyConfigured() {
		logger.Debug("Outbound API requests will use the configured HTTP proxy")
	}

	if err := tools.InitGlobalErrorLogger(logger, transport); err != nil {
		logger.WithError(err).Warn("Failed to initialise tool error logger")
	}

	shutdown, err := telemetry.InitTracer(logger, Version)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialise tracing")
		return
	}
	shutdownTracerMu.Lock()
	shutdownTracer = shutdown
	shutdownTracerMu.Unlock()
}

// newMCPServer registers every enabled tool with a new MCP server
func newMCPServer(logger *logrus.Logger, transport string) *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer(serverName, Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	enabledTools := registry.GetEnabledTools()
	logger.WithField("tool_count", len(enabledTools)).Debug("Registering tools")

	for name, tool := range enabledTools {
		if transport != "stdio" {
			logger.Infof("Registering tool: %s", name)
		}
		mcpSrv.AddTool(tool.Definition(), toolHandler(name, logger, transport))
	}
	return mcpSrv
}

func toolHandler(name string, logger *logrus.Logger, transport string) mcpserver.ToolHandlerFunc {
	return func(toolCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		currentTool, ok := registry.GetTool(name)
		if !ok {
			return nil, fmt.Errorf("tool not found: %s", name)
		}

		args := request.GetArguments()

		spanCtx, span := telemetry.StartToolSpan(toolCtx, name, args)
		result, err := currentTool.Execute(spanCtx, logger, args)
		telemetry.EndToolSpan(span, err)

		if err != nil {
			if transport != "stdio" {
				logger.WithError(err).Errorf("Tool execution failed: %s", name)
			}
			tools.GetGlobalErrorLogger().LogToolError(name, args, err)
			return nil, fmt.Errorf("tool execution failed: %w", err)
		}
		return result, nil
	}
}

func performCleanup(logger *logrus.Logger) {
	shutdownTracerMu.Lock()
	shutdown := shutdownTracer
	shutdownTracer = nil
	shutdownTracerMu.Unlock()
	if shutdown != nil {
		if err := shutdown(); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}

	if err := tools.GetGlobalErrorLogger().Close(); err != nil {
		logger.WithError(err).Warn("Failed to close tool error logger")
	}

	if file := logFile.Swap(nil); file != nil {
		_ = file.Close()
	}
}

func startSSEServer(ctx context.Context, cmd *cli3.Command, mcpSrv *mcpserver.MCPServer, logger *logrus.Logger) error {
	port := cmd.String("port")
	sseServer := mcpserver.NewSSEServer(mcpSrv, mcpserver.WithBaseURL(fmt.Sprintf("%s:%s", cmd.String("base-url"), port)))

	logger.WithField("port", port).Info("Starting SSE server")
	return serveUntilDone(ctx, logger, func() error { return sseServer.Start(":" + port) }, sseServer.Shutdown)
}

func startStreamableHTTPServer(ctx context.Context, cmd *cli3.Command, mcpSrv *mcpserver.MCPServer, logger *logrus.Logger) error {
	port := cmd.String("port")
	endpointPath := cmd.String("endpoint-path")
	sessionTimeout := cmd.Duration("session-timeout")

	logger.Infof("Starting Streamable HTTP server on port %s with endpoint %s", port, endpointPath)

	heartbeatInterval := 30 * time.Second
	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath(endpointPath),
		mcpserver.WithLogger(&logrusAdapter{logger: logger}),
	}
	if sessionTimeout > 0 {
		opts = append(opts, mcpserver.WithSessionIdManager(NewTimeoutSessionManager(sessionTimeout, logger)))
		heartbeatInterval = sessionTimeout / 4
	}
	opts = append(opts, mcpserver.WithHeartbeatInterval(heartbeatInterval))

	var handler http.Handler = mcpserver.NewStreamableHTTPServer(mcpSrv, opts...)
	if token := cmd.String("auth-token"); token != "" {
		handler = requireBearerToken(token, logger, handler)
		logger.Info("Bearer token authentication enabled")
	}

	mux := http.NewServeMux()
	mux.Handle(endpointPath, handler)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return serveUntilDone(ctx, logger, server.ListenAndServe, server.Shutdown)
}

// serveUntilDone runs serve until it fails or ctx is cancelled, then shuts down
func serveUntilDone(ctx context.Context, logger *logrus.Logger, serve func() error, shutdown func(context.Context) error) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// requireBearerToken rejects requests without the expected bearer token
func requireBearerToken(expected string, logger *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const bearerPrefix = "Bearer "

		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, bearerPrefix)
		if !found || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			logger.WithField("remote", r.RemoteAddr).Warn("Rejected request with missing or invalid bearer token")
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TimeoutSessionManager issues session IDs and expires idle sessions
type TimeoutSessionManager struct {
	timeout time.Duration
	logger  *logrus.Logger
	now     func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewTimeoutSessionManager creates a session manager expiring sessions idle for longer than timeout
func NewTimeoutSessionManager(timeout time.Duration, logger *logrus.Logger) *TimeoutSessionManager {
	return &TimeoutSessionManager{
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
	}
}

func (t *TimeoutSessionManager) Generate() string {
	id := "session-" + uuid.NewString()

	t.mu.Lock()
	t.lastSeen[id] = t.now()
	t.mu.Unlock()

	t.logger.Debugf("Session created: %s", id)
	return id
}

// Validate reports an expired session as terminated and refreshes live ones
func (t *TimeoutSessionManager) Validate(sessionID string) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("empty session ID")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen, ok := t.lastSeen[sessionID]
	if !ok {
		return false, fmt.Errorf("unknown session ID")
	}

	now := t.now()
	if now.Sub(seen) > t.timeout {
		delete(t.lastSeen, sessionID)
		t.logger.Debugf("Session expired: %s", sessionID)
		return true, nil
	}
	t.lastSeen[sessionID] = now
	return false, nil
}

func (t *TimeoutSessionManager) Terminate(sessionID string) (bool, error) {
	t.mu.Lock()
	delete(t.lastSeen, sessionID)
	t.mu.Unlock()

	t.logger.Debugf("Session terminated: %s", sessionID)
	return false, nil
}

type logrusAdapter struct {
	logger *logrus.Logger
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}
