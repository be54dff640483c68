package logs

import (
	"io"
	"log/slog"
	"os"
)

var level = new(slog.LevelVar)

func InitStdoutLogs(logLevel slog.Level) {
	InitLogs(os.Stdout, logLevel)
}

// InitLogs installs a JSON slog logger writing to w as the process default.
func InitLogs(w io.Writer, logLevel slog.Level) {
	level.Set(logLevel)
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// SetLevel changes the level of the logger installed by InitLogs.
func SetLevel(logLevel slog.Level) {
	level.Set(logLevel)
}
