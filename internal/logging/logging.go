package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vtable/vtable/internal/config"
)

const (
	DefaultDirectory = "~/.vtable/logs/"
	filePrefix       = "vtable-"
	dateLayout       = "2006-01-02"
)

// Setup initializes the logger with file and stdout output.
func Setup(level, directory string) (*slog.Logger, error) {
	return setup(os.Stdout, level, directory, time.Now())
}

func setup(stdout io.Writer, level, directory string, now time.Time) (*slog.Logger, error) {
	if directory == "" {
		directory = DefaultDirectory
	}
	directory = config.ExpandHome(directory)

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(directory, filePrefix+now.Format(dateLayout)+".log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := slog.NewTextHandler(io.MultiWriter(stdout, file), &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler), nil
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Prune removes daily log files older than retentionDays and returns how
// many were deleted. Files not written by Setup are left alone.
func Prune(directory string, retentionDays int, now time.Time) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	if directory == "" {
		directory = DefaultDirectory
	}
	directory = config.ExpandHome(directory)

	entries, err := os.ReadDir(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading log directory: %w", err)
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		day, err := time.ParseInLocation(dateLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".log"), now.Location())
		if err != nil || !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(directory, name)); err != nil {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
