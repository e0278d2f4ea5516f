package logging

import (
	"log/slog"
	"os"
)

// Logger 全局结构化日志
var Logger = slog.Default()

// InitLogger 初始化日志
// level: debug, info, warn, error（默认info）
// format: json 或 text（默认text）
func InitLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// WithArticle 带 article_id 字段的日志
func WithArticle(articleID string) *slog.Logger {
	return Logger.With("article_id", articleID)
}

// WithUser 带 user 字段的日志
func WithUser(user string) *slog.Logger {
	return Logger.With("user", user)
}
