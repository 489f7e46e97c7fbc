// Package slogpretty настраивает логгер приложения в зависимости от окружения.
// В локальном окружении используется цветной человекочитаемый вывод,
// в dev и prod - стандартный JSON-handler с разным уровнем логирования.
package slogpretty

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"

	"github.com/fatih/color"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// SetupLogger возвращает логгер, сконфигурированный под указанное окружение.
func SetupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return newPretty(os.Stdout, slog.LevelDebug)
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

type prettyHandler struct {
	opts  slog.HandlerOptions
	out   *log.Logger
	attrs []slog.Attr
	mu    *sync.Mutex
}

func newPretty(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(&prettyHandler{
		opts: slog.HandlerOptions{Level: level},
		out:  log.New(w, "", 0),
		mu:   &sync.Mutex{},
	})
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	fields := make(map[string]any, r.NumAttrs()+len(h.attrs))

	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})

	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}

	var fieldsStr string
	if len(fields) > 0 {
		b, err := json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return err
		}
		fieldsStr = string(b)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.out.Println(
		r.Time.Format("[15:04:05.000]"),
		level,
		color.CyanString(r.Message),
		color.WhiteString(fieldsStr),
	)

	return nil
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyHandler{
		opts:  h.opts,
		out:   h.out,
		attrs: append(h.attrs, attrs...),
		mu:    h.mu,
	}
}

func (h *prettyHandler) WithGroup(_ string) slog.Handler {
	return h
}
