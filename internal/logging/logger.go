package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
)

const (
	FormatHuman = "human"
	FormatJSON  = "json"
)

// LevelSilent выше любого реального уровня
const LevelSilent = slog.Level(100)

// ParseLevel: debug | info | warn | error | silent; неизвестное даёт info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "silent", "off":
		return LevelSilent
	default:
		return slog.LevelInfo
	}
}

func rewriteLogLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && len(groups) == 0 {
		level, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}
		var levelText string
		switch level {
		case slog.LevelDebug:
			levelText = "DEBUG"
		case slog.LevelInfo:
			levelText = color.GreenString("INFO")
		case slog.LevelWarn:
			levelText = color.YellowString("WARN")
		case slog.LevelError:
			levelText = color.RedString("ERROR")
		default:
			levelText = level.String()
		}
		a.Value = slog.StringValue(levelText)
	}
	return a
}

// New собирает логгер: human (tint, цветные уровни) или json.
// Цвет выключается вместе с fatih/color (не терминал, NO_COLOR).
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  time.DateTime,
		NoColor:     color.NoColor,
		ReplaceAttr: rewriteLogLevel,
	}))
}

// Nop: логгер, который всё отбрасывает
func Nop() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: LevelSilent}))
}
