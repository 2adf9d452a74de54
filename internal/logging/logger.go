// v1
// internal/logging/logger.go
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

// New builds the process logger: slog text handler writing to both
// stdout and the given file. If the file cannot be opened the logger
// degrades to stdout only; the returned closer is then a no-op.
func New(filePath string) (*slog.Logger, func()) {
	if filePath == "" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})), func() {}
	}

	_ = os.MkdirAll(filepath.Dir(filePath), 0o755)
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
		logger.Error("log file open failed; using stdout only", "path", filePath, "error", err)
		return logger, func() {}
	}

	mw := io.MultiWriter(os.Stdout, f)
	logger := slog.New(slog.NewTextHandler(mw, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// keep legacy stdlib log on the same sinks
	log.SetOutput(mw)
	return logger, func() { _ = f.Close() }
}
