package tools

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultLogRetentionDays is the default number of days to retain error logs
	DefaultLogRetentionDays = 60

	// LogDirName is the directory under the user's home that holds log files
	LogDirName = ".mcp-moviereviews"

	// ErrorLogEnvVar enables the tool error log when set to "true"
	ErrorLogEnvVar = "LOG_TOOL_ERRORS"
)

// KindedError is implemented by errors that carry a failure classification
type KindedError interface {
	error
	KindName() string
}

// ToolErrorLogEntry represents a logged tool error
type ToolErrorLogEntry struct {
	Timestamp string         `json:"timestamp"`
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Error     string         `json:"error"`
	Kind      string         `json:"kind,omitempty"`
	Transport string         `json:"transport,omitempty"`
}

// ToolErrorLogger appends tool failures as JSON lines to a file
type ToolErrorLogger struct {
	enabled   bool
	logFile   *os.File
	logger    *logrus.Logger
	mu        sync.Mutex
	filePath  string
	transport string
}

var (
	globalErrorLogger *ToolErrorLogger
	errorLoggerOnce   sync.Once
)

// NewToolErrorLogger opens (or creates) the log at filePath and prunes
// entries older than the retention period.
func NewToolErrorLogger(filePath string, transport string, logger *logrus.Logger) (*ToolErrorLogger, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &ToolErrorLogger{
		enabled:   true,
		logger:    logger,
		filePath:  filePath,
		transport: transport,
	}

	if err := l.rotateOldLogs(time.Now()); err != nil {
		return nil, err
	}
	return l, nil
}

// InitGlobalErrorLogger initialises the global error logger from LOG_TOOL_ERRORS
func InitGlobalErrorLogger(logger *logrus.Logger, transport string) error {
	var initErr error
	errorLoggerOnce.Do(func() {
		if os.Getenv(ErrorLogEnvVar) != "true" {
			globalErrorLogger = &ToolErrorLogger{logger: logger}
			return
		}

		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		l, err := NewToolErrorLogger(filepath.Join(homeDir, LogDirName, "logs", "tool-errors.log"), transport, logger)
		if err != nil {
			initErr = err
			return
		}
		globalErrorLogger = l
		logger.Infof("Tool error logging enabled: %s", l.filePath)
	})

	return initErr
}

// GetGlobalErrorLogger returns the global error logger, or a disabled one
// before initialisation
func GetGlobalErrorLogger() *ToolErrorLogger {
	if globalErrorLogger == nil {
		return &ToolErrorLogger{}
	}
	return globalErrorLogger
}

// LogToolError appends one entry for a failed tool call
func (l *ToolErrorLogger) LogToolError(toolName string, args map[string]any, err error) {
	if !l.enabled || err == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return
	}

	entry := ToolErrorLogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		ToolName:  toolName,
		Arguments: args,
		Error:     err.Error(),
		Transport: l.transport,
	}

	var kinded KindedError
	if errors.As(err, &kinded) {
		entry.Kind = kinded.KindName()
	}

	jsonData, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		l.logWarn(marshalErr, "Failed to marshal tool error log entry")
		return
	}

	if _, writeErr := l.logFile.Write(append(jsonData, '\n')); writeErr != nil {
		l.logWarn(writeErr, "Failed to write tool error log entry")
		return
	}

	if syncErr := l.logFile.Sync(); syncErr != nil {
		l.logWarn(syncErr, "Failed to sync tool error log file")
	}
}

// Close closes the error logger and its log file
func (l *ToolErrorLogger) Close() error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// IsEnabled returns whether error logging is enabled
func (l *ToolErrorLogger) IsEnabled() bool {
	return l.enabled
}

// GetLogFilePath returns the path to the error log file
func (l *ToolErrorLogger) GetLogFilePath() string {
	return l.filePath
}

func (l *ToolErrorLogger) logWarn(err error, msg string) {
	if l.logger != nil {
		l.logger.WithError(err).Warn(msg)
	}
}

// rotateOldLogs rewrites the log keeping only entries newer than the
// retention cutoff, then opens it for appending.
func (l *ToolErrorLogger) rotateOldLogs(now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		if err := l.logFile.Close(); err != nil {
			return fmt.Errorf("failed to close log file for rotation: %w", err)
		}
		l.logFile = nil
	}

	file, err := os.Open(l.filePath)
	if err != nil {
		return l.reopenLogFileLocked()
	}

	var kept []string
	cutoff := now.AddDate(0, 0, -DefaultLogRetentionDays)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry ToolErrorLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			// Keep malformed entries to avoid data loss
			kept = append(kept, line)
			continue
		}

		entryTime, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil || entryTime.After(cutoff) {
			kept = append(kept, line)
		}
	}

	scanErr := scanner.Err()
	_ = file.Close()

	if scanErr != nil {
		_ = l.reopenLogFileLocked()
		return fmt.Errorf("error reading log file during rotation: %w", scanErr)
	}

	content := ""
	if len(kept) > 0 {
		content = strings.Join(kept, "\n") + "\n"
	}

	tmpPath := l.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0600); err != nil {
		_ = l.reopenLogFileLocked()
		return fmt.Errorf("failed to write temporary rotated log file: %w", err)
	}

	if err := os.Rename(tmpPath, l.filePath); err != nil {
		_ = os.Remove(tmpPath)
		_ = l.reopenLogFileLocked()
		return fmt.Errorf("failed to rename temporary log file during rotation: %w", err)
	}

	return l.reopenLogFileLocked()
}

// reopenLogFileLocked reopens the log file in append mode.
// Caller must hold l.mu.
func (l *ToolErrorLogger) reopenLogFileLocked() error {
	logFile, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to reopen log file: %w", err)
	}

	l.logFile = logFile
	return nil
}
