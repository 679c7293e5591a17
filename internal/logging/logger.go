package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"biogas-server/internal/config"
)

const redacted = "[REDACTED]"

// New returns the process logger: coloured tint output in dev, JSON
// otherwise. Attributes whose key mentions a token or password are redacted.
func New(w io.Writer, cfg config.Config, version string, appName string) *slog.Logger {
	if cfg.AppEnv == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:       cfg.LogLevel,
			AddSource:   true,
			TimeFormat:  time.Kitchen,
			ReplaceAttr: redactSecrets,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       cfg.LogLevel,
		ReplaceAttr: redactSecrets,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	if a.Value.Kind() == slog.KindString && (strings.Contains(key, "token") || strings.Contains(key, "password")) {
		return slog.String(a.Key, redacted)
	}
	return a
}
