package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"placematch/internal/config"
)

// LogFileName is the file written inside paths.log_dir.
const LogFileName = "placematch.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Outputs lists sinks: "stdout", "stderr", or file paths. Defaults to
	// stderr so stdout stays free for tables and JSON.
	Outputs []string
	// Development adds source locations at every level.
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))

	w, err := openSinks(opts.Outputs)
	if err != nil {
		return nil, err
	}
	addSource := opts.Development || levelVar.Level() <= slog.LevelDebug

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		handler = newJSONHandler(w, levelVar, addSource)
	case "console", "":
		handler = newPrettyHandler(w, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	return slog.New(contextHandler{handler}), nil
}

// NewFromConfig creates a logger from the [logging] and [paths] sections.
// With a log_dir, lines go to stderr and to LogFileName inside it.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}
	outputs := []string{"stderr"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		outputs = append(outputs, filepath.Join(dir, LogFileName))
	}
	return New(Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: outputs,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// openSinks resolves output names to writers, skipping blanks and repeats.
// Files are opened for append and their directories created.
func openSinks(outputs []string) (io.Writer, error) {
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	var (
		seen    []string
		writers []io.Writer
	)
	for _, out := range outputs {
		out = strings.TrimSpace(out)
		if out == "" || slices.Contains(seen, out) {
			continue
		}
		seen = append(seen, out)

		switch out {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			file, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", out, err)
			}
			writers = append(writers, file)
		}
	}
	switch len(writers) {
	case 0:
		return nil, errors.New("log outputs: no usable sink")
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
