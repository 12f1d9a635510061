package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

var (
	mu            sync.Mutex
	currentLogger *slog.Logger
	logFile       *os.File
)

// InitLogger sets up a new logging session for a specific run. Records go to
// <dir>/<run_id>.jsonl.
func InitLogger(dir, runID string) error {
	if runID == "" {
		runID = GenerateRunID()
	}
	if dir == "" {
		dir = "logs"
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.jsonl", runID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	mu.Lock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	currentLogger = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	mu.Unlock()

	LogEvent(context.Background(), runID, "heredity", "session_start", map[string]string{
		"message": "Inference session started",
	})

	return nil
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if currentLogger == nil {
		// Fallback if not initialized
		currentLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return currentLogger
}

// LogEvent writes a structured log entry
func LogEvent(ctx context.Context, runID, component, event string, payload interface{}) {
	if ctx == nil {
		ctx = context.Background()
	}
	current().InfoContext(ctx, event,
		slog.String("run_id", runID),
		slog.String("component", component),
		slog.Any("payload", payload),
	)
}

// LogError writes a structured error entry
func LogError(ctx context.Context, runID, component, event string, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	current().ErrorContext(ctx, event,
		slog.String("run_id", runID),
		slog.String("component", component),
		slog.String("error", err.Error()),
	)
}

// GenerateRunID helper
func GenerateRunID() string {
	return uuid.New().String()
}

// Close ensures the file is closed
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
		currentLogger = nil
	}
}
